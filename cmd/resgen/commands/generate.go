package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/config"
)

// generateOptions tunes task execution.
type generateOptions struct {
	parallel int
	failFast bool
}

func newGenerateCommand() *cobra.Command {
	var (
		opts       generateOptions
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate resource sources for every target",
		Long: `Configure the project and run every registered generation task.

Tasks run level by level on a bounded worker pool. Generated sources and
resources are written under build/generated/moko/<target>/<kind>.`,
		Example: `  # Generate resources for the project in the current directory
  resgen generate

  # Generate with 8 workers and keep going after failures
  resgen generate --parallel 8 --fail-fast=false

  # Export metrics for a node exporter textfile collector
  resgen generate --metrics-file /var/lib/node_exporter/resgen.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().
				Str("project", projectPath).
				Int("parallel", opts.parallel).
				Bool("fail_fast", opts.failFast).
				Msg("Generating resources")

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

			run, runErr := runGeneration(cmd.Context(), s, build, opts)
			if run != nil {
				if jsonOutput {
					if err := writeRunJSON(cmd.OutOrStdout(), run); err != nil {
						return err
					}
				} else {
					printRun(cmd.OutOrStdout(), run)
				}
			}
			return runErr
		},
	}

	cmd.Flags().IntVarP(&opts.parallel, "parallel", "j", 4, "maximum number of concurrent tasks")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", true, "stop scheduling tasks after the first failure")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run result as JSON")

	return cmd
}

// runGeneration executes the registered tasks of a configured build.
func runGeneration(ctx context.Context, s *session, build *config.Build, opts generateOptions) (*buildhost.Run, error) {
	graph, err := buildhost.BuildTaskGraph(build.Project.Tasks().All())
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}

	executor := buildhost.NewExecutor(
		buildhost.WithMaxParallel(opts.parallel),
		buildhost.WithTelemetry(s.tel),
	)
	return executor.Run(ctx, graph, buildhost.RunOptions{FailFast: opts.failFast})
}

func printRun(w io.Writer, run *buildhost.Run) {
	names := make([]string, 0, len(run.Results))
	for name := range run.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result := run.Results[name]
		mark := "✓"
		if result.Status != buildhost.TaskStatusSucceeded {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s)", mark, name, result.Status)
		if result.Err != nil {
			fmt.Fprintf(w, ": %v", result.Err)
		}
		fmt.Fprintln(w)
	}

	sum := run.Summary
	fmt.Fprintf(w, "\n%d tasks in %s: %d succeeded, %d failed, %d skipped, %d cancelled\n",
		sum.Total, run.Duration.Round(time.Millisecond), sum.Succeeded, sum.Failed, sum.Skipped, sum.Cancelled)
}

func writeRunJSON(w io.Writer, run *buildhost.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
