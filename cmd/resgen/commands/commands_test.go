package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCommand("test", "none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func generatedSources(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	root := filepath.Join(dir, "build", "generated", "moko")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".kt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	return files
}

func TestInitAndGenerate(t *testing.T) {
	dir := t.TempDir()

	if out, err := execute(t, "init", "-p", dir, "--name", "shared"); err != nil {
		t.Fatalf("init error = %v\n%s", err, out)
	}
	for _, rel := range []string{
		"resgen.yaml",
		"src/commonMain/resources/MR/base/strings.xml",
		"src/commonMain/resources/MR/base/plurals.xml",
		"src/main/AndroidManifest.xml",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("Expected %s to exist: %v", rel, err)
		}
	}

	metrics := filepath.Join(t.TempDir(), "resgen.prom")
	out, err := execute(t, "generate", "-p", dir, "--metrics-file", metrics)
	if err != nil {
		t.Fatalf("generate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "8 succeeded") {
		t.Errorf("Expected 8 succeeded tasks, got:\n%s", out)
	}
	if len(generatedSources(t, dir)) == 0 {
		t.Error("Expected generated Kotlin sources")
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("Expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), "resgen_") {
		t.Errorf("Expected resgen metrics, got:\n%s", data)
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, "init", "-p", dir); err != nil {
		t.Fatalf("init error = %v", err)
	}
	if _, err := execute(t, "init", "-p", dir); err == nil {
		t.Error("Expected error on second init")
	}
	if _, err := execute(t, "init", "-p", dir, "--force"); err != nil {
		t.Errorf("Expected --force to overwrite, got %v", err)
	}
}

func TestInitCUE_Validate(t *testing.T) {
	dir := t.TempDir()

	if out, err := execute(t, "init", "-p", dir, "--format", "cue", "--name", "shared", "--ios"); err != nil {
		t.Fatalf("init error = %v\n%s", err, out)
	}

	out, err := execute(t, "validate", filepath.Join(dir, "resgen.cue"))
	if err != nil {
		t.Fatalf("validate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Package com.example.shared") {
		t.Errorf("Expected resolved package, got:\n%s", out)
	}
	// Shared, packaged and iosArm64, four features each.
	if !strings.Contains(out, "12 generators registered") {
		t.Errorf("Expected 12 generators, got:\n%s", out)
	}
}

func TestValidate_InvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	content := "name: shared\nplugins: [multiplatform, gradle]\n"
	if err := os.WriteFile(filepath.Join(dir, "resgen.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "validate", "-p", dir)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(out, "Invalid project descriptor") {
		t.Errorf("Expected descriptor report, got:\n%s", out)
	}
}

func TestValidate_ConfigurationError(t *testing.T) {
	dir := t.TempDir()
	content := "name: shared\nplugins: [multiplatform]\ntargets:\n  - name: jvm\n    platform: jvm\n"
	if err := os.WriteFile(filepath.Join(dir, "resgen.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src", "commonMain", "resources"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "validate", "-p", dir)
	if err == nil {
		t.Fatal("Expected configuration error")
	}
	if !strings.Contains(out, "MISSING_OUTPUT_PACKAGE") {
		t.Errorf("Expected missing package code, got:\n%s", out)
	}
}

func TestPlan_JSON(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "-p", dir, "--name", "shared"); err != nil {
		t.Fatalf("init error = %v", err)
	}

	dot := filepath.Join(t.TempDir(), "tasks.dot")
	out, err := execute(t, "plan", "-p", dir, "--output", "json", "--dot", dot)
	if err != nil {
		t.Fatalf("plan error = %v\n%s", err, out)
	}

	var plan planOutput
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("failed to decode plan: %v\n%s", err, out)
	}
	if plan.Package != "com.example.shared" {
		t.Errorf("Expected package com.example.shared, got %s", plan.Package)
	}
	if len(plan.Instances) != 8 {
		t.Errorf("Expected 8 instances, got %d", len(plan.Instances))
	}
	if len(generatedSources(t, dir)) != 0 {
		t.Error("Expected plan not to generate sources")
	}

	data, err := os.ReadFile(dot)
	if err != nil {
		t.Fatalf("Expected DOT file: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("Expected DOT graph, got:\n%s", data)
	}
}

func TestPlan_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "-p", dir); err != nil {
		t.Fatalf("init error = %v", err)
	}
	if _, err := execute(t, "plan", "-p", dir, "--output", "xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestPackageSegment(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"shared", "shared"},
		{"Shared-Resources", "sharedresources"},
		{"001", "app001"},
		{"---", "app"},
	}

	for _, tt := range tests {
		if got := packageSegment(tt.name); got != tt.want {
			t.Errorf("packageSegment(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerate_JSONKeepsStdoutClean(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "-p", dir); err != nil {
		t.Fatalf("init error = %v", err)
	}

	stdout, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	if err != nil {
		t.Fatal(err)
	}
	defer stdout.Close()
	orig := os.Stdout
	os.Stdout = stdout
	defer func() { os.Stdout = orig }()

	t.Setenv("LOG_LEVEL", "debug")
	cmd := newRootCommand("test", "none", "unknown")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"generate", "-p", dir, "--json"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("generate error = %v\n%s", err, errOut.String())
	}
	os.Stdout = orig

	var run struct {
		Summary struct {
			Succeeded int `json:"succeeded"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &run); err != nil {
		t.Fatalf("Expected pure JSON output, got %v:\n%s", err, out.String())
	}

	leaked, err := os.ReadFile(stdout.Name())
	if err != nil {
		t.Fatal(err)
	}
	if len(leaked) != 0 {
		t.Errorf("Expected no log lines on stdout, got:\n%s", leaked)
	}
}

func TestWatchPaths_AbsoluteBuildScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(t.TempDir(), "resgen.star")
	project, err := buildhost.NewProject("shared", dir)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	build := &config.Build{
		Descriptor: &config.Descriptor{
			Dir:         dir,
			SourceFiles: []string{filepath.Join(dir, "resgen.yaml")},
			Spec:        config.ProjectSpec{BuildScript: script},
		},
		Project: project,
	}

	paths := watchPaths(build)
	want := []string{filepath.Join(dir, "resgen.yaml"), script, filepath.Join(dir, "src")}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Expected %v, got %v", want, paths)
	}
}

func TestTelemetryConfig_CI(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	ciMode, logFormat = true, ""
	defer func() { ciMode = false }()

	cfg := telemetryConfig()
	if cfg.Environment != "ci" || cfg.Logging.Format != "json" {
		t.Errorf("Expected CI logging, got environment %s and format %s", cfg.Environment, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	logFormat = "console"
	defer func() { logFormat = "" }()
	if cfg := telemetryConfig(); cfg.Logging.Format != "console" {
		t.Errorf("Expected --log-format to win over CI defaults, got %s", cfg.Logging.Format)
	}
}

func TestValidate_CIMode(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "-p", dir); err != nil {
		t.Fatalf("init error = %v", err)
	}

	out, err := execute(t, "validate", "-p", dir, "--ci")
	if err != nil {
		t.Fatalf("validate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "8 generators registered") {
		t.Errorf("Expected 8 generators, got:\n%s", out)
	}
}
