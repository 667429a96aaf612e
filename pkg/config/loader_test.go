package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validCUE = `
name: "shared"
plugins: ["multiplatform", "android-library"]
resources: {
	"package":                "com.example.mr"
	base_localization_region: "de"
}
targets: [
	{name: "android", platform:  "androidJvm"},
	{name: "iosArm64", platform: "native", family: "ios"},
]
`

const validYAML = `
name: shared
plugins: [multiplatform, android-library]
resources:
  package: com.example.mr
  source_set_name: sharedMain
targets:
  - name: android
    platform: androidJvm
  - name: iosX64
    platform: native
    family: ios
build_script: build.star
`

func writeDescriptor(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_LoadCUE(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, CUEFileName, validCUE)

	d, err := NewLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if d.Format != FormatCUE {
		t.Errorf("Expected format cue, got %s", d.Format)
	}
	if d.Dir != dir {
		t.Errorf("Expected dir %s, got %s", dir, d.Dir)
	}
	if d.Spec.Name != "shared" {
		t.Errorf("Expected name shared, got %s", d.Spec.Name)
	}
	if len(d.Spec.Plugins) != 2 || d.Spec.Plugins[1] != "android-library" {
		t.Errorf("Unexpected plugins: %v", d.Spec.Plugins)
	}
	if d.Spec.Resources.Package != "com.example.mr" {
		t.Errorf("Expected package com.example.mr, got %s", d.Spec.Resources.Package)
	}
	if d.Spec.Resources.BaseLocalizationRegion != "de" {
		t.Errorf("Expected region de, got %s", d.Spec.Resources.BaseLocalizationRegion)
	}
	if len(d.Spec.Targets) != 2 || d.Spec.Targets[1].Family != "ios" {
		t.Errorf("Unexpected targets: %+v", d.Spec.Targets)
	}
	if !d.Spec.HasPlugin("android-library") || d.Spec.HasPlugin("java") {
		t.Error("HasPlugin() returned unexpected results")
	}
}

func TestLoader_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, YAMLFileName, validYAML)

	d, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if d.Format != FormatYAML {
		t.Errorf("Expected format yaml, got %s", d.Format)
	}
	if len(d.SourceFiles) != 1 || d.SourceFiles[0] != path {
		t.Errorf("Expected source file %s, got %v", path, d.SourceFiles)
	}
	if d.Spec.Resources.SourceSetName != "sharedMain" {
		t.Errorf("Expected source set sharedMain, got %s", d.Spec.Resources.SourceSetName)
	}
	if d.Spec.BuildScript != "build.star" {
		t.Errorf("Expected build script build.star, got %s", d.Spec.BuildScript)
	}
	if len(d.Spec.Targets) != 2 || d.Spec.Targets[1].Name != "iosX64" {
		t.Errorf("Unexpected targets: %+v", d.Spec.Targets)
	}
}

func TestLoader_LookupOrder(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, YAMLFileName, validYAML)
	writeDescriptor(t, dir, CUEFileName, validCUE)

	d, err := NewLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Format != FormatCUE {
		t.Errorf("Expected resgen.cue to win, got format %s", d.Format)
	}
}

func TestLoader_NoDescriptor(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("Expected ErrNoDescriptor, got %v", err)
	}
}

func TestLoader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{
			name:    "cue syntax error",
			file:    CUEFileName,
			content: "name: \"shared\"\nplugins: [\n",
		},
		{
			name:    "cue unknown field",
			file:    CUEFileName,
			content: "name: \"shared\"\nplugins: [\"multiplatform\"]\npakage: \"com.example\"\n",
			wantMsg: "not allowed",
		},
		{
			name:    "cue unknown plugin",
			file:    CUEFileName,
			content: "name: \"shared\"\nplugins: [\"java\"]\n",
		},
		{
			name:    "yaml unknown field",
			file:    YAMLFileName,
			content: "name: shared\nplugins: [multiplatform]\npackge: com.example\n",
			wantMsg: "packge",
		},
		{
			name:    "yaml native target without family",
			file:    YAMLFileName,
			content: "name: shared\nplugins: [multiplatform]\ntargets:\n  - name: iosArm64\n    platform: native\n",
		},
		{
			name:    "yaml empty",
			file:    YAMLFileName,
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeDescriptor(t, dir, tt.file, tt.content)

			_, err := NewLoader().LoadFile(path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var descErr *DescriptorError
			if !errors.As(err, &descErr) {
				t.Fatalf("Expected *DescriptorError, got %T: %v", err, err)
			}
			if len(descErr.Errors) == 0 {
				t.Error("Expected at least one validation error")
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error to contain %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoader_CUEErrorPosition(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, CUEFileName, "name: \"shared\"\nplugins: [\"multiplatform\"]\nresources: \"package\": \"com..mr\"\n")

	_, err := NewLoader().LoadFile(path)

	var descErr *DescriptorError
	if !errors.As(err, &descErr) {
		t.Fatalf("Expected *DescriptorError, got %v", err)
	}

	found := false
	for _, ve := range descErr.Errors {
		if ve.Line > 0 && ve.File != "" {
			found = true
		}
		if ve.Severity != "error" {
			t.Errorf("Expected severity error, got %s", ve.Severity)
		}
	}
	if !found {
		t.Errorf("Expected an error with a file position, got %+v", descErr.Errors)
	}
}

func TestLoader_ValidatorRules(t *testing.T) {
	l := NewLoader()

	tests := []struct {
		name     string
		spec     ProjectSpec
		wantPath string
	}{
		{
			name:     "duplicate plugin",
			spec:     ProjectSpec{Name: "shared", Plugins: []string{"multiplatform", "multiplatform"}},
			wantPath: "plugins",
		},
		{
			name: "package with invalid segment",
			spec: ProjectSpec{
				Name:      "shared",
				Plugins:   []string{"multiplatform"},
				Resources: ResourcesSpec{Package: "com.1example"},
			},
			wantPath: "resources.package",
		},
		{
			name: "native target without family",
			spec: ProjectSpec{
				Name:    "shared",
				Plugins: []string{"multiplatform"},
				Targets: []TargetSpec{{Name: "iosArm64", Platform: "native"}},
			},
			wantPath: "targets[0].family",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.validate(t.TempDir(), []string{"inline"}, FormatYAML, tt.spec)

			var descErr *DescriptorError
			if !errors.As(err, &descErr) {
				t.Fatalf("Expected *DescriptorError, got %v", err)
			}
			if descErr.Errors[0].Path != tt.wantPath {
				t.Errorf("Expected path %s, got %s", tt.wantPath, descErr.Errors[0].Path)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		ve   ValidationError
		want string
	}{
		{ValidationError{Message: "bad"}, "bad"},
		{ValidationError{File: "resgen.cue", Line: 3, Column: 7, Message: "bad"}, "resgen.cue:3:7: bad"},
		{ValidationError{File: "resgen.yaml", Path: "targets[0].family", Message: "bad"}, "resgen.yaml: targets[0].family: bad"},
	}

	for _, tt := range tests {
		if got := tt.ve.Error(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
