package commands

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/resgen/pkg/config"
	"github.com/openfroyo/resgen/pkg/watch"
)

func newWatchCommand() *cobra.Command {
	var (
		opts     generateOptions
		debounce = watch.DefaultDebounce
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate resources when they change",
		Long: `Generate resources, then watch the project descriptor, the build script
and the shared resources directory and regenerate after every change.

The project is configured from scratch on each change, so descriptor and
build script edits take effect without restarting.`,
		Example: `  # Watch the project in the current directory
  resgen watch

  # Wait two seconds for edits to settle
  resgen watch --debounce 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log.Info().
				Str("project", projectPath).
				Dur("debounce", debounce).
				Msg("Starting watch mode")

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close(ctx)

			build, err := s.load(ctx)
			if err != nil {
				printFailure(cmd.ErrOrStderr(), err)
				return err
			}
			paths := watchPaths(build)
			regenerate(ctx, cmd, s, build, opts)

			w := watch.New(watch.WithLogger(s.tel.Logger), watch.WithDebounce(debounce))
			return w.Run(ctx, paths, func(ctx context.Context, changed []string) error {
				s.logger.WithField("files", len(changed)).Info("Resources changed, regenerating")

				build, err := s.load(ctx)
				if err != nil {
					printFailure(cmd.ErrOrStderr(), err)
					return nil
				}
				regenerate(ctx, cmd, s, build, opts)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.parallel, "parallel", "j", 4, "maximum number of concurrent tasks")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", true, "stop scheduling tasks after the first failure")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "time to wait for changes to settle")

	return cmd
}

// regenerate configures build and runs its tasks, reporting failures
// without stopping the watch loop.
func regenerate(ctx context.Context, cmd *cobra.Command, s *session, build *config.Build, opts generateOptions) {
	if err := build.Configure(ctx); err != nil {
		printFailure(cmd.ErrOrStderr(), err)
		return
	}

	run, err := runGeneration(ctx, s, build, opts)
	if run != nil {
		printRun(cmd.OutOrStdout(), run)
	}
	if err != nil {
		s.logger.WithError(err).Error("Generation failed")
	}
}

// watchPaths lists the inputs of a project: its descriptor files, its build
// script and its resource sources.
func watchPaths(build *config.Build) []string {
	d := build.Descriptor
	paths := append([]string(nil), d.SourceFiles...)
	if script := d.BuildScriptPath(); script != "" {
		paths = append(paths, script)
	}

	// The source tree covers the shared resources directory and the Android
	// manifest, including a shared source set renamed by the build script.
	paths = append(paths, filepath.Join(build.Project.Dir, "src"))
	return paths
}
