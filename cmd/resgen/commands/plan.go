package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/engine"
)

// planOutput is the machine-readable form of a plan.
type planOutput struct {
	Project   string                      `json:"project" yaml:"project"`
	Package   string                      `json:"package" yaml:"package"`
	Instances []*engine.GeneratorInstance `json:"instances" yaml:"instances"`
	Levels    [][]string                  `json:"levels" yaml:"levels"`
}

func newPlanCommand() *cobra.Command {
	var (
		output  string
		dotFile string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the generation tasks of the project",
		Long: `Resolve the resource configuration and list every generator instance
without running it.

The plan shows, per instance:
  - the resource kind and target family
  - the source set handle and host task name
  - the generated source and resource directories`,
		Example: `  # List generator instances
  resgen plan

  # Emit the plan as JSON
  resgen plan --output json

  # Write the task graph for graphviz
  resgen plan --dot tasks.dot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().
				Str("project", projectPath).
				Str("output", output).
				Str("dot", dotFile).
				Msg("Planning resource generation")

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			build, err := s.configure(cmd.Context())
			if err != nil {
				printFailure(cmd.ErrOrStderr(), err)
				return err
			}

			graph, err := buildhost.BuildTaskGraph(build.Project.Tasks().All())
			if err != nil {
				return fmt.Errorf("failed to build task graph: %w", err)
			}

			if dotFile != "" {
				if err := os.WriteFile(dotFile, []byte(graph.ToDOT()), 0o644); err != nil {
					return fmt.Errorf("failed to write DOT graph: %w", err)
				}
				log.Info().Str("file", dotFile).Msg("Wrote task graph")
			}

			plan := planOutput{
				Project:   build.Project.Name,
				Package:   build.Orchestrator.Context().Package(),
				Instances: build.Orchestrator.Instances(),
				Levels:    graph.Levels(),
			}
			return writePlan(cmd.OutOrStdout(), output, build.Project.Dir, plan)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")
	cmd.Flags().StringVar(&dotFile, "dot", "", "write the task graph in DOT format to this file")

	return cmd
}

func writePlan(w io.Writer, format, projectDir string, plan planOutput) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()

	case "text":
		fmt.Fprintf(w, "Project %s, package %s, %d generators\n\n", plan.Project, plan.Package, len(plan.Instances))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK\tKIND\tFAMILY\tTARGET\tSOURCES")
		for _, inst := range plan.Instances {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				inst.TaskName, inst.Kind, inst.Family, inst.Target, relativeTo(projectDir, inst.Output.Source))
		}
		return tw.Flush()

	default:
		return fmt.Errorf("unsupported output format: %s (must be text, json or yaml)", format)
	}
}

func relativeTo(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
