package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/resgen/pkg/config"
	"github.com/openfroyo/resgen/pkg/engine"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate the project descriptor and resource configuration",
		Long: `Validate the project descriptor and resolve the resource configuration
without running any generation task.

This command checks:
  - descriptor syntax and schema conformance
  - plugin, target and setting values
  - the build script, if one is configured
  - the output package, shared source set and Android manifest`,
		Example: `  # Validate the project in the current directory
  resgen validate

  # Validate a specific descriptor
  resgen validate ./shared/resgen.cue`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				projectPath = args[0]
			}

			log.Info().Str("project", projectPath).Msg("Validating project")

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			out := cmd.OutOrStdout()
			build, err := s.configure(cmd.Context())
			if err != nil {
				printFailure(out, err)
				return fmt.Errorf("project is not valid")
			}

			d := build.Descriptor
			fmt.Fprintf(out, "✓ Descriptor %s (%s)\n", descriptorName(d), d.Format)
			fmt.Fprintf(out, "✓ Package %s\n", build.Orchestrator.Context().Package())
			if ns, ok := build.Orchestrator.Context().PackagedNamespace(); ok {
				fmt.Fprintf(out, "✓ Android namespace %s\n", ns)
			}
			fmt.Fprintf(out, "✓ %d generators registered\n", len(build.Orchestrator.Instances()))
			return nil
		},
	}

	return cmd
}

// printFailure writes a readable report of a load or configuration error.
func printFailure(w io.Writer, err error) {
	var descErr *config.DescriptorError
	if errors.As(err, &descErr) {
		fmt.Fprintf(w, "✗ Invalid project descriptor %s\n", descErr.File)
		for _, ve := range descErr.Errors {
			fmt.Fprintf(w, "  %s\n", ve.Error())
		}
		return
	}

	if class, code, ok := engine.ClassOf(err); ok {
		fmt.Fprintf(w, "✗ %s error", class)
		if code != "" {
			fmt.Fprintf(w, " (%s)", code)
		}
		fmt.Fprintf(w, ": %v\n", err)
		return
	}

	fmt.Fprintf(w, "✗ %v\n", err)
}
