package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/openfroyo/resgen/pkg/engine"
)

func writeProjectFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestDescriptor(t *testing.T, spec ProjectSpec) *Descriptor {
	t.Helper()
	dir := t.TempDir()
	writeProjectFile(t, filepath.Join(dir, "src", "commonMain", "resources", "MR", "base", "strings.xml"),
		`<resources><string name="title">Title</string></resources>`)
	writeProjectFile(t, filepath.Join(dir, "src", "main", "AndroidManifest.xml"),
		`<manifest package="com.example.app"/>`)
	return &Descriptor{Spec: spec, Dir: dir, Format: FormatYAML}
}

func fullSpec() ProjectSpec {
	return ProjectSpec{
		Name:      "shared",
		Plugins:   []string{"multiplatform", "android-library"},
		Resources: ResourcesSpec{Package: "com.example.mr"},
		Targets: []TargetSpec{
			{Name: "android", Platform: "androidJvm"},
			{Name: "jvm", Platform: "jvm"},
			{Name: "iosArm64", Platform: "native", Family: "ios"},
			{Name: "macosX64", Platform: "native", Family: "osx"},
		},
	}
}

func TestBuildProject_Configure(t *testing.T) {
	d := newTestDescriptor(t, fullSpec())

	build, err := BuildProject(d)
	if err != nil {
		t.Fatalf("BuildProject() error = %v", err)
	}

	if got := build.Project.Plugins(); len(got) != 2 || got[0] != "multiplatform" {
		t.Errorf("Expected plugins applied in order, got %v", got)
	}
	if got := len(build.Project.Multiplatform().Targets()); got != 4 {
		t.Errorf("Expected 4 targets, got %d", got)
	}

	if err := build.Configure(context.Background()); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	// Shared + packaged + one iOS target, four features each.
	if got := len(build.Orchestrator.Instances()); got != 12 {
		t.Errorf("Expected 12 instances, got %d", got)
	}
	if got := build.Project.Tasks().Len(); got != 12 {
		t.Errorf("Expected 12 tasks, got %d", got)
	}

	ns, ok := build.Orchestrator.Context().PackagedNamespace()
	if !ok || ns != "com.example.app" {
		t.Errorf("Expected namespace com.example.app, got %q (%v)", ns, ok)
	}
}

func TestBuildProject_ResourceSettings(t *testing.T) {
	spec := fullSpec()
	spec.Resources.BaseLocalizationRegion = "de"
	d := newTestDescriptor(t, spec)

	build, err := BuildProject(d)
	if err != nil {
		t.Fatalf("BuildProject() error = %v", err)
	}

	if build.Extension.Package != "com.example.mr" {
		t.Errorf("Expected package com.example.mr, got %s", build.Extension.Package)
	}
	if build.Extension.BaseLocalizationRegion != "de" {
		t.Errorf("Expected region de, got %s", build.Extension.BaseLocalizationRegion)
	}
	if build.Extension.SourceSetName != engine.DefaultSourceSetName {
		t.Errorf("Expected default source set, got %s", build.Extension.SourceSetName)
	}
}

func TestBuildProject_BuildScript(t *testing.T) {
	spec := fullSpec()
	spec.Resources.Package = ""
	spec.BuildScript = "build.star"
	d := newTestDescriptor(t, spec)

	writeProjectFile(t, filepath.Join(d.Dir, "build.star"), `
def has_ios(targets):
    return len([t for t in targets if t["family"] == "ios"]) > 0

package = "com.example." + project_name
base_localization_region = "fr" if has_ios(targets) else defaults["base_localization_region"]
`)

	build, err := BuildProject(d)
	if err != nil {
		t.Fatalf("BuildProject() error = %v", err)
	}
	if err := build.Configure(context.Background()); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if got := build.Orchestrator.Context().Package(); got != "com.example.shared" {
		t.Errorf("Expected package com.example.shared, got %s", got)
	}
	if build.Extension.BaseLocalizationRegion != "fr" {
		t.Errorf("Expected region fr, got %s", build.Extension.BaseLocalizationRegion)
	}
}

func TestBuildProject_BuildScriptErrors(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantCode string
	}{
		{name: "missing script", wantCode: engine.ErrCodeBuildScriptFailed},
		{name: "syntax error", script: "package = \n", wantCode: engine.ErrCodeBuildScriptFailed},
		{name: "runtime error", script: "package = undefined\n", wantCode: engine.ErrCodeBuildScriptFailed},
		{name: "non-string setting", script: "package = 42\n", wantCode: engine.ErrCodeInvalidSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := fullSpec()
			spec.BuildScript = "build.star"
			d := newTestDescriptor(t, spec)
			if tt.script != "" {
				writeProjectFile(t, filepath.Join(d.Dir, "build.star"), tt.script)
			}

			build, err := BuildProject(d)
			if err != nil {
				t.Fatalf("BuildProject() error = %v", err)
			}

			err = build.Configure(context.Background())
			if !engine.IsConfigurationError(err) {
				t.Fatalf("Expected configuration error, got %v", err)
			}
			if _, code, _ := engine.ClassOf(err); code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, code)
			}
			if got := len(build.Orchestrator.Instances()); got != 0 {
				t.Errorf("Expected no instances, got %d", got)
			}
			if got := build.Project.Tasks().Len(); got != 0 {
				t.Errorf("Expected no tasks, got %d", got)
			}
		})
	}
}

func TestBuildProject_MissingMultiplatform(t *testing.T) {
	t.Run("targets declared", func(t *testing.T) {
		d := newTestDescriptor(t, ProjectSpec{
			Name:    "shared",
			Plugins: []string{"android-library"},
			Targets: []TargetSpec{{Name: "jvm", Platform: "jvm"}},
		})

		_, err := BuildProject(d)
		if _, code, _ := engine.ClassOf(err); code != engine.ErrCodeMissingMultiplatform {
			t.Errorf("Expected code %s, got %v", engine.ErrCodeMissingMultiplatform, err)
		}
		if !engine.IsDiscoveryError(err) {
			t.Errorf("Expected discovery error, got %v", err)
		}
	})

	t.Run("no targets", func(t *testing.T) {
		d := newTestDescriptor(t, ProjectSpec{
			Name:      "shared",
			Plugins:   []string{"android-library"},
			Resources: ResourcesSpec{Package: "com.example.mr"},
		})

		build, err := BuildProject(d)
		if err != nil {
			t.Fatalf("BuildProject() error = %v", err)
		}
		err = build.Configure(context.Background())
		if _, code, _ := engine.ClassOf(err); code != engine.ErrCodeMissingMultiplatform {
			t.Errorf("Expected code %s, got %v", engine.ErrCodeMissingMultiplatform, err)
		}
		if !engine.IsDiscoveryError(err) {
			t.Errorf("Expected discovery error, got %v", err)
		}
	})
}

func TestBuildProject_MissingPackage(t *testing.T) {
	spec := fullSpec()
	spec.Resources.Package = ""
	d := newTestDescriptor(t, spec)

	build, err := BuildProject(d)
	if err != nil {
		t.Fatalf("BuildProject() error = %v", err)
	}

	err = build.Configure(context.Background())
	if !errors.Is(err, engine.ErrMissingOutputPackage) {
		t.Errorf("Expected ErrMissingOutputPackage, got %v", err)
	}
	if build.Orchestrator.Phase() != engine.PhaseFailed {
		t.Errorf("Expected phase failed, got %s", build.Orchestrator.Phase())
	}
}

func TestBuildProject_DuplicateTarget(t *testing.T) {
	spec := fullSpec()
	spec.Targets = append(spec.Targets, TargetSpec{Name: "jvm", Platform: "js"})
	d := newTestDescriptor(t, spec)

	_, err := BuildProject(d)
	if _, code, _ := engine.ClassOf(err); code != engine.ErrCodeInvalidSetting {
		t.Errorf("Expected code %s, got %v", engine.ErrCodeInvalidSetting, err)
	}
}

func TestDescriptor_BuildScriptPath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "resgen.star")
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{name: "none", script: "", want: ""},
		{name: "relative", script: "resgen.star", want: filepath.Join("/work/shared", "resgen.star")},
		{name: "absolute", script: abs, want: abs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Descriptor{Dir: "/work/shared", Spec: ProjectSpec{BuildScript: tt.script}}
			if got := d.BuildScriptPath(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
