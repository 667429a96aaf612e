package buildhost

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := NewProject("sample", t.TempDir())
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	return p
}

func TestNewProject(t *testing.T) {
	dir := t.TempDir()
	p, err := NewProject("sample", dir)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}

	if p.BuildDir != filepath.Join(dir, "build") {
		t.Errorf("Expected build dir under project dir, got %s", p.BuildDir)
	}
	if p.Multiplatform() != nil || p.Android() != nil {
		t.Error("Expected no extensions before plugins are applied")
	}
	if p.Tasks().Len() != 0 {
		t.Errorf("Expected no tasks, got %d", p.Tasks().Len())
	}
}

func TestProject_ApplyPlugin_CreatesExtensions(t *testing.T) {
	p := newTestProject(t)

	if err := p.ApplyPlugin(PluginMultiplatform); err != nil {
		t.Fatalf("ApplyPlugin() error = %v", err)
	}
	if err := p.ApplyPlugin(PluginAndroidLibrary); err != nil {
		t.Fatalf("ApplyPlugin() error = %v", err)
	}

	if p.Multiplatform() == nil {
		t.Fatal("Expected multiplatform extension")
	}
	if _, ok := p.Multiplatform().SourceSet(CommonMainName); !ok {
		t.Error("Expected commonMain source set")
	}
	if ext, ok := p.Extension(ExtensionKotlin); !ok || ext != p.Multiplatform() {
		t.Error("Expected kotlin extension to be the multiplatform extension")
	}

	android := p.Android()
	if android == nil {
		t.Fatal("Expected android extension")
	}
	main, ok := android.SourceSet(MainSourceSetName)
	if !ok {
		t.Fatal("Expected android main source set")
	}
	if main.ManifestFile != filepath.Join(p.Dir, "src", "main", "AndroidManifest.xml") {
		t.Errorf("Unexpected manifest path %s", main.ManifestFile)
	}

	want := []string{PluginMultiplatform, PluginAndroidLibrary}
	if got := p.Plugins(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected plugins %v, got %v", want, got)
	}
}

func TestProject_ApplyPlugin_Idempotent(t *testing.T) {
	p := newTestProject(t)

	calls := 0
	_ = p.WithPlugin(PluginMultiplatform, func() error {
		calls++
		return nil
	})

	_ = p.ApplyPlugin(PluginMultiplatform)
	ext := p.Multiplatform()
	if err := p.ApplyPlugin(PluginMultiplatform); err != nil {
		t.Fatalf("ApplyPlugin() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected hook to run once, ran %d times", calls)
	}
	if p.Multiplatform() != ext {
		t.Error("Expected re-applying to keep the extension")
	}
}

func TestProject_WithPlugin_Ordering(t *testing.T) {
	p := newTestProject(t)
	var order []string

	_ = p.WithPlugin(PluginMultiplatform, func() error {
		order = append(order, "first")
		return nil
	})
	_ = p.WithPlugin(PluginMultiplatform, func() error {
		order = append(order, "second")
		return nil
	})

	if len(order) != 0 {
		t.Fatalf("Expected hooks to wait for plugin, ran %v", order)
	}

	_ = p.ApplyPlugin(PluginMultiplatform)

	// Already applied: runs immediately.
	_ = p.WithPlugin(PluginMultiplatform, func() error {
		order = append(order, "late")
		return nil
	})

	want := []string{"first", "second", "late"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestProject_WithPlugin_NeverApplied(t *testing.T) {
	p := newTestProject(t)
	ran := false
	_ = p.WithPlugin(PluginAndroidLibrary, func() error {
		ran = true
		return nil
	})
	_ = p.ApplyPlugin(PluginMultiplatform)

	if ran {
		t.Error("Expected hook for an unapplied plugin not to run")
	}
}

func TestProject_ApplyPlugin_HookError(t *testing.T) {
	p := newTestProject(t)
	sentinel := errors.New("boom")
	_ = p.WithPlugin(PluginMultiplatform, func() error { return sentinel })

	err := p.ApplyPlugin(PluginMultiplatform)
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected hook error to propagate, got %v", err)
	}
}

func TestProject_Evaluate_Ordering(t *testing.T) {
	p := newTestProject(t)
	var order []string

	_ = p.AfterEvaluate(func(ctx context.Context, p *Project) error {
		order = append(order, "after")
		// Hooks registered while evaluating still run.
		return p.AfterEvaluate(func(ctx context.Context, p *Project) error {
			order = append(order, "nested")
			return nil
		})
	})
	_ = p.Configure(func(ctx context.Context, p *Project) error {
		order = append(order, "configure")
		return nil
	})

	if err := p.Evaluate(context.Background()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := []string{"configure", "after", "nested"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
	if !p.Evaluated() {
		t.Error("Expected project to be evaluated")
	}
}

func TestProject_Evaluate_Once(t *testing.T) {
	p := newTestProject(t)

	if err := p.Evaluate(context.Background()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if err := p.Evaluate(context.Background()); err == nil {
		t.Error("Expected error on second evaluation")
	}
	if err := p.AfterEvaluate(func(context.Context, *Project) error { return nil }); err == nil {
		t.Error("Expected error registering hook after evaluation")
	}
	if err := p.ApplyPlugin(PluginMultiplatform); err == nil {
		t.Error("Expected error applying plugin after evaluation")
	}
}

func TestProject_Evaluate_HookErrorUnwrapped(t *testing.T) {
	p := newTestProject(t)
	sentinel := errors.New("hook failed")
	ranSecond := false

	_ = p.AfterEvaluate(func(context.Context, *Project) error { return sentinel })
	_ = p.AfterEvaluate(func(context.Context, *Project) error {
		ranSecond = true
		return nil
	})

	err := p.Evaluate(context.Background())
	if err != sentinel {
		t.Errorf("Expected hook error returned as-is, got %v", err)
	}
	if ranSecond {
		t.Error("Expected evaluation to stop at the first failing hook")
	}
}

func TestMultiplatformExtension_Targets(t *testing.T) {
	m := NewMultiplatformExtension("/project")

	android, err := m.Android("android")
	if err != nil {
		t.Fatalf("Android() error = %v", err)
	}
	if len(android.Compilations()) != 5 {
		t.Errorf("Expected 5 android compilations, got %d", len(android.Compilations()))
	}
	debug, ok := android.Compilation("debug")
	if !ok || debug.DefaultSourceSet.Name != "androidDebug" {
		t.Error("Expected debug compilation bound to androidDebug")
	}

	ios, err := m.Native("iosArm64", NativeFamilyIOS)
	if err != nil {
		t.Fatalf("Native() error = %v", err)
	}
	main, ok := ios.Compilation(MainCompilationName)
	if !ok {
		t.Fatal("Expected main compilation")
	}
	if main.DefaultSourceSet.Name != "iosArm64Main" {
		t.Errorf("Expected iosArm64Main, got %s", main.DefaultSourceSet.Name)
	}
	if !main.DefaultSourceSet.Resources.Contains("/project/src/iosArm64Main/resources") {
		t.Error("Expected conventional resources dir")
	}

	if _, err := m.Jvm("iosArm64"); err == nil {
		t.Error("Expected duplicate target name to be rejected")
	}
	if err := m.AddTarget(&Target{Name: "weird", Platform: "wasm"}); err == nil {
		t.Error("Expected unknown platform to be rejected")
	}

	if len(m.Targets()) != 2 {
		t.Errorf("Expected 2 targets, got %d", len(m.Targets()))
	}
}

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"main":  "Main",
		"Main":  "Main",
		"debug": "Debug",
		"1abc":  "1abc",
	}
	for in, want := range tests {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
