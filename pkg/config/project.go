package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/engine"
	"github.com/openfroyo/resgen/pkg/features"
	"github.com/openfroyo/resgen/pkg/manifest"
	"github.com/openfroyo/resgen/pkg/telemetry"
)

// Build script globals that override extension settings.
const (
	ScriptPackage                = "package"
	ScriptBaseLocalizationRegion = "base_localization_region"
	ScriptSourceSetName          = "source_set_name"
)

// Build is a host project materialized from a descriptor with resource
// generation applied. It is not evaluated yet.
type Build struct {
	Descriptor   *Descriptor
	Project      *buildhost.Project
	Orchestrator *engine.Orchestrator
	Extension    *engine.Extension
}

// Configure evaluates the project: the build script first, then resource
// orchestration.
func (b *Build) Configure(ctx context.Context) error {
	if err := b.Project.Evaluate(ctx); err != nil {
		return err
	}
	// Evaluation never reaches the orchestrator without the multiplatform plugin.
	if b.Orchestrator.Phase() != engine.PhaseGeneratorsInstantiated {
		return engine.NewDiscoveryError("the multiplatform plugin is not applied", nil).
			WithCode(engine.ErrCodeMissingMultiplatform)
	}
	return nil
}

type buildOptions struct {
	tel           *telemetry.Telemetry
	registry      engine.FeatureRegistry
	resolver      engine.PackageIdentityResolver
	scriptTimeout time.Duration
}

// BuildOption configures BuildProject.
type BuildOption func(*buildOptions)

// WithTelemetry attaches telemetry to the orchestrator and the build script.
func WithTelemetry(tel *telemetry.Telemetry) BuildOption {
	return func(o *buildOptions) { o.tel = tel }
}

// WithRegistry replaces the resource feature registry.
func WithRegistry(registry engine.FeatureRegistry) BuildOption {
	return func(o *buildOptions) { o.registry = registry }
}

// WithResolver replaces the android manifest resolver.
func WithResolver(resolver engine.PackageIdentityResolver) BuildOption {
	return func(o *buildOptions) { o.resolver = resolver }
}

// WithScriptTimeout bounds the build script run.
func WithScriptTimeout(timeout time.Duration) BuildOption {
	return func(o *buildOptions) { o.scriptTimeout = timeout }
}

// BuildProject creates the host project described by d: it registers
// resource generation, applies the plugins in order, declares the targets and
// schedules the build script as a configure action.
func BuildProject(d *Descriptor, opts ...BuildOption) (*Build, error) {
	o := &buildOptions{
		tel:      telemetry.Noop(),
		registry: features.Registry,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tel == nil {
		o.tel = telemetry.Noop()
	}
	if o.resolver == nil {
		o.resolver = manifest.NewResolver(manifest.WithLogger(o.tel.Logger))
	}

	spec := d.Spec
	project, err := buildhost.NewProject(spec.Name, d.Dir)
	if err != nil {
		return nil, err
	}

	orchestrator := engine.NewOrchestrator(o.registry, o.resolver, engine.WithTelemetry(o.tel))
	ext, err := orchestrator.Apply(project)
	if err != nil {
		return nil, err
	}
	applyResources(ext, spec.Resources)

	if script := d.BuildScriptPath(); script != "" {
		evaluator := NewStarlarkEvaluator(o.scriptTimeout, o.tel.Logger.NewComponentLogger("build-script"))
		if err := project.Configure(scriptAction(ext, script, evaluator)); err != nil {
			return nil, err
		}
	}

	for _, id := range spec.Plugins {
		if err := project.ApplyPlugin(id); err != nil {
			return nil, fmt.Errorf("failed to apply plugin %s: %w", id, err)
		}
	}

	if len(spec.Targets) > 0 {
		mpp := project.Multiplatform()
		if mpp == nil {
			return nil, engine.NewDiscoveryError("targets are declared but the multiplatform plugin is not applied", nil).
				WithCode(engine.ErrCodeMissingMultiplatform)
		}
		for _, t := range spec.Targets {
			if err := declareTarget(mpp, t); err != nil {
				return nil, engine.NewConfigurationError("failed to declare target", err).
					WithCode(engine.ErrCodeInvalidSetting).
					WithTarget(t.Name)
			}
		}
	}

	return &Build{
		Descriptor:   d,
		Project:      project,
		Orchestrator: orchestrator,
		Extension:    ext,
	}, nil
}

func applyResources(ext *engine.Extension, r ResourcesSpec) {
	if r.Package != "" {
		ext.Package = r.Package
	}
	if r.BaseLocalizationRegion != "" {
		ext.BaseLocalizationRegion = r.BaseLocalizationRegion
	}
	if r.SourceSetName != "" {
		ext.SourceSetName = r.SourceSetName
	}
}

func declareTarget(mpp *buildhost.MultiplatformExtension, t TargetSpec) error {
	var err error
	switch buildhost.Platform(t.Platform) {
	case buildhost.PlatformAndroidJvm:
		_, err = mpp.Android(t.Name)
	case buildhost.PlatformJvm:
		_, err = mpp.Jvm(t.Name)
	case buildhost.PlatformJs:
		_, err = mpp.Js(t.Name)
	case buildhost.PlatformNative:
		_, err = mpp.Native(t.Name, buildhost.NativeFamily(t.Family))
	default:
		err = fmt.Errorf("unsupported platform %q", t.Platform)
	}
	return err
}

// scriptAction runs the build script and applies the settings it exports.
func scriptAction(ext *engine.Extension, path string, evaluator *StarlarkEvaluator) buildhost.ProjectAction {
	return func(ctx context.Context, p *buildhost.Project) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return engine.NewConfigurationError("failed to read build script", err).
				WithCode(engine.ErrCodeBuildScriptFailed).
				WithPath(path)
		}

		result, err := evaluator.Evaluate(ctx, path, string(content), scriptInput(ext, p))
		if err != nil {
			return engine.NewConfigurationError("build script failed", err).
				WithCode(engine.ErrCodeBuildScriptFailed).
				WithPath(path)
		}

		return applyScriptOutput(ext, path, result.Output)
	}
}

func scriptInput(ext *engine.Extension, p *buildhost.Project) map[string]interface{} {
	plugins := make([]interface{}, 0)
	for _, id := range p.Plugins() {
		plugins = append(plugins, id)
	}

	targets := make([]interface{}, 0)
	if mpp := p.Multiplatform(); mpp != nil {
		for _, t := range mpp.Targets() {
			targets = append(targets, map[string]interface{}{
				"name":     t.Name,
				"platform": string(t.Platform),
				"family":   string(t.NativeFamily),
			})
		}
	}

	return map[string]interface{}{
		"project_name": p.Name,
		"project_dir":  p.Dir,
		"plugins":      plugins,
		"targets":      targets,
		"defaults": map[string]interface{}{
			ScriptPackage:                ext.Package,
			ScriptBaseLocalizationRegion: ext.BaseLocalizationRegion,
			ScriptSourceSetName:          ext.SourceSetName,
		},
	}
}

func applyScriptOutput(ext *engine.Extension, path string, output map[string]interface{}) error {
	settings := map[string]*string{
		ScriptPackage:                &ext.Package,
		ScriptBaseLocalizationRegion: &ext.BaseLocalizationRegion,
		ScriptSourceSetName:          &ext.SourceSetName,
	}

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		val, ok := output[name]
		if !ok {
			continue
		}
		s, ok := val.(string)
		if !ok {
			return engine.NewConfigurationError(
				fmt.Sprintf("build script setting %s must be a string, got %T", name, val), nil).
				WithCode(engine.ErrCodeInvalidSetting).
				WithPath(path).
				WithDetail("setting", name)
		}
		*settings[name] = s
	}
	return nil
}
