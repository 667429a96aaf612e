package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/config"
)

const sampleStrings = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">%s</string>
</resources>
`

const samplePlurals = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <plural name="items">
        <item quantity="one">%d item</item>
        <item quantity="other">%d items</item>
    </plural>
</resources>
`

const sampleManifest = `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="%s" />
`

func newInitCommand() *cobra.Command {
	var (
		format  string
		name    string
		pkg     string
		android bool
		ios     bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a resgen project",
		Long: `Initialize a project directory with a descriptor and the shared resource layout.

The project directory (--project) gets:
  - resgen.yaml or resgen.cue
  - src/commonMain/resources/MR with base strings, plurals, images and fonts
  - src/main/AndroidManifest.xml when the Android library plugin is enabled`,
		Example: `  # Initialize the current directory
  resgen init

  # Initialize a CUE project with an iOS target
  resgen init --project ./shared --format cue --ios

  # JVM-only project
  resgen init --android=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(projectPath)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(dir)
			}
			if pkg == "" {
				pkg = "com.example." + packageSegment(name)
			}

			log.Info().
				Str("dir", dir).
				Str("format", format).
				Str("package", pkg).
				Msg("Initializing project")

			spec := scaffoldSpec(name, pkg, android, ios)

			var (
				descriptorFile string
				content        []byte
			)
			switch format {
			case config.FormatYAML:
				descriptorFile = config.YAMLFileName
				content, err = yaml.Marshal(spec)
			case config.FormatCUE:
				descriptorFile = config.CUEFileName
				content = renderCUE(spec)
			default:
				return fmt.Errorf("unsupported descriptor format: %s (must be yaml or cue)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to render descriptor: %w", err)
			}

			out := cmd.OutOrStdout()
			mrDir := filepath.Join(dir, "src", "commonMain", "resources", "MR")
			files := []struct {
				path    string
				content string
			}{
				{filepath.Join(dir, descriptorFile), string(content)},
				{filepath.Join(mrDir, "base", "strings.xml"), fmt.Sprintf(sampleStrings, name)},
				{filepath.Join(mrDir, "base", "plurals.xml"), samplePlurals},
			}
			if android {
				files = append(files, struct {
					path    string
					content string
				}{filepath.Join(dir, "src", "main", "AndroidManifest.xml"), fmt.Sprintf(sampleManifest, pkg)})
			}

			for _, f := range files {
				if _, err := os.Stat(f.path); err == nil && !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", f.path)
				}
			}

			for _, sub := range []string{"images", "fonts"} {
				path := filepath.Join(mrDir, sub)
				if err := os.MkdirAll(path, 0o755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", path, err)
				}
				fmt.Fprintf(out, "✓ Created directory: %s\n", path)
			}

			for _, f := range files {
				if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(f.path), err)
				}
				if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", f.path, err)
				}
				fmt.Fprintf(out, "✓ Created file: %s\n", f.path)
			}

			fmt.Fprintf(out, "\nProject %s initialized. Next steps:\n", name)
			fmt.Fprintln(out, "  1. Add strings to src/commonMain/resources/MR/base/strings.xml")
			fmt.Fprintln(out, "  2. Run 'resgen plan' to review the generation tasks")
			fmt.Fprintln(out, "  3. Run 'resgen generate'")
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", config.FormatYAML, "descriptor format (yaml, cue)")
	cmd.Flags().StringVar(&name, "name", "", "project name (default: directory name)")
	cmd.Flags().StringVar(&pkg, "package", "", "package of the generated sources (default: com.example.<name>)")
	cmd.Flags().BoolVar(&android, "android", true, "apply the Android library plugin and declare an Android target")
	cmd.Flags().BoolVar(&ios, "ios", false, "declare an iosArm64 target")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	return cmd
}

func scaffoldSpec(name, pkg string, android, ios bool) config.ProjectSpec {
	spec := config.ProjectSpec{
		Name:      name,
		Plugins:   []string{buildhost.PluginMultiplatform},
		Resources: config.ResourcesSpec{Package: pkg},
	}
	if android {
		spec.Plugins = append(spec.Plugins, buildhost.PluginAndroidLibrary)
		spec.Targets = append(spec.Targets, config.TargetSpec{Name: "android", Platform: "androidJvm"})
	}
	spec.Targets = append(spec.Targets, config.TargetSpec{Name: "jvm", Platform: "jvm"})
	if ios {
		spec.Targets = append(spec.Targets, config.TargetSpec{Name: "iosArm64", Platform: "native", Family: "ios"})
	}
	return spec
}

// renderCUE writes spec as a CUE descriptor.
func renderCUE(spec config.ProjectSpec) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %q\n", spec.Name)

	plugins := make([]string, len(spec.Plugins))
	for i, p := range spec.Plugins {
		plugins[i] = fmt.Sprintf("%q", p)
	}
	fmt.Fprintf(&b, "plugins: [%s]\n\n", strings.Join(plugins, ", "))

	fmt.Fprintf(&b, "resources: \"package\": %q\n\n", spec.Resources.Package)

	b.WriteString("targets: [\n")
	for _, t := range spec.Targets {
		fmt.Fprintf(&b, "\t{name: %q, platform: %q", t.Name, t.Platform)
		if t.Family != "" {
			fmt.Fprintf(&b, ", family: %q", t.Family)
		}
		b.WriteString("},\n")
	}
	b.WriteString("]\n")
	return []byte(b.String())
}

// packageSegment turns a project name into a valid package segment.
func packageSegment(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		}
	}
	seg := b.String()
	if seg == "" || unicode.IsDigit(rune(seg[0])) {
		seg = "app" + seg
	}
	return seg
}
