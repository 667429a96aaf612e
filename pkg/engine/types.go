package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// BuildTargetFamily classifies build targets by how their generated output is wired.
type BuildTargetFamily string

const (
	// FamilyShared is the platform-agnostic compile unit. Exactly one per project.
	FamilyShared BuildTargetFamily = "shared"

	// FamilyPackaged is the manifest-based android library unit. Zero or one.
	FamilyPackaged BuildTargetFamily = "packaged"

	// FamilyNative is a native compile unit of the supported OS family. Zero or many.
	FamilyNative BuildTargetFamily = "native"
)

// Families returns every family in orchestration order.
func Families() []BuildTargetFamily {
	return []BuildTargetFamily{FamilyShared, FamilyPackaged, FamilyNative}
}

// Validate checks if the family is known.
func (f BuildTargetFamily) Validate() error {
	switch f {
	case FamilyShared, FamilyPackaged, FamilyNative:
		return nil
	default:
		return fmt.Errorf("invalid build target family: %s", f)
	}
}

// ResourceKind identifies a resource feature.
type ResourceKind string

const (
	KindStrings ResourceKind = "strings"
	KindPlurals ResourceKind = "plurals"
	KindImages  ResourceKind = "images"
	KindFonts   ResourceKind = "fonts"
)

// Extension names and defaults of the user-facing configuration object.
const (
	ExtensionName                 = "multiplatformResources"
	DefaultSourceSetName          = "commonMain"
	DefaultBaseLocalizationRegion = "en"
)

// Extension is the project-level configuration of resource generation.
// Build scripts may change it until the host finishes configuration.
type Extension struct {
	// Package is the package of the generated MR classes. Required.
	Package string `json:"package,omitempty" yaml:"package,omitempty"`

	// BaseLocalizationRegion is the locale served by the default resource bucket.
	BaseLocalizationRegion string `json:"base_localization_region" yaml:"base_localization_region"`

	// SourceSetName names the shared source set holding the resources.
	SourceSetName string `json:"source_set_name" yaml:"source_set_name"`
}

// DefaultExtension returns an extension with default values and no package.
func DefaultExtension() *Extension {
	return &Extension{
		BaseLocalizationRegion: DefaultBaseLocalizationRegion,
		SourceSetName:          DefaultSourceSetName,
	}
}

// ContextParams are the inputs of a GenerationContext.
type ContextParams struct {
	GeneratedDir      string
	ResourcesDir      string
	Package           string
	PackagedNamespace string
}

// GenerationContext is the frozen configuration shared by every generator
// instance of a run. It has no setters.
type GenerationContext struct {
	generatedDir string
	resourcesDir string
	pkg          string
	namespace    string
}

// NewGenerationContext validates params and freezes them.
func NewGenerationContext(p ContextParams) (*GenerationContext, error) {
	if strings.TrimSpace(p.Package) == "" {
		return nil, MissingOutputPackageError()
	}
	if p.GeneratedDir == "" {
		return nil, NewInternalError("generated output root is empty", nil)
	}

	return &GenerationContext{
		generatedDir: filepath.Clean(p.GeneratedDir),
		resourcesDir: p.ResourcesDir,
		pkg:          p.Package,
		namespace:    p.PackagedNamespace,
	}, nil
}

// GeneratedDir returns the generated output root.
func (c *GenerationContext) GeneratedDir() string { return c.generatedDir }

// ResourcesDir returns the shared resource input directory.
func (c *GenerationContext) ResourcesDir() string { return c.resourcesDir }

// Package returns the output package of the generated classes.
func (c *GenerationContext) Package() string { return c.pkg }

// PackagedNamespace returns the manifest-derived namespace, if one was resolved.
func (c *GenerationContext) PackagedNamespace() (string, bool) {
	return c.namespace, c.namespace != ""
}

// OutputDirs returns the output directories of one (target, kind) pair.
func (c *GenerationContext) OutputDirs(targetName string, kind ResourceKind) OutputDirs {
	base := filepath.Join(c.generatedDir, targetName, string(kind))
	return OutputDirs{
		Source:    filepath.Join(base, "src"),
		Resources: filepath.Join(base, "res"),
	}
}

// OutputDirs are the directories a generator instance writes to.
type OutputDirs struct {
	Source    string `json:"source" yaml:"source"`
	Resources string `json:"resources" yaml:"resources"`
}

// SourceSetHandle binds one build target to directory registration.
type SourceSetHandle interface {
	// Name identifies the target and namespaces its generated output.
	Name() string

	// AddSourceDir registers an additional compilable-source root.
	AddSourceDir(dir string) error

	// AddResourcesDir registers an additional raw-resource root.
	AddResourcesDir(dir string) error
}

// Generator emits the artifacts of one resource kind for one target.
type Generator interface {
	Generate(ctx context.Context, out OutputDirs) error
}

// ResourceFeature produces generators for a resource kind, one per family.
type ResourceFeature interface {
	Kind() ResourceKind
	SharedGenerator() Generator
	PackagedGenerator() Generator
	NativeGenerator() Generator
}

// FeatureRegistry builds the ordered feature list of a run from the frozen context.
type FeatureRegistry func(genCtx *GenerationContext, ext Extension) []ResourceFeature

// PackageIdentityResolver extracts the packaged-family namespace from a manifest.
type PackageIdentityResolver interface {
	Resolve(manifestPath string) (string, error)
}

// generatorFor selects the family-specific generator of a feature.
func generatorFor(feature ResourceFeature, family BuildTargetFamily) (Generator, error) {
	var gen Generator
	switch family {
	case FamilyShared:
		gen = feature.SharedGenerator()
	case FamilyPackaged:
		gen = feature.PackagedGenerator()
	case FamilyNative:
		gen = feature.NativeGenerator()
	default:
		return nil, NewInternalError(fmt.Sprintf("unsupported family %s", family), nil).
			WithCode(ErrCodeUnsupportedFamily)
	}
	if gen == nil {
		return nil, NewInternalError(
			fmt.Sprintf("feature %s has no %s generator", feature.Kind(), family), nil).
			WithCode(ErrCodeUnsupportedFamily)
	}
	return gen, nil
}

// GeneratorInstance is one (feature, family, target) generation step.
type GeneratorInstance struct {
	// ID is stable across runs for the same project inputs.
	ID string `json:"id" yaml:"id"`

	// Kind is the resource kind of the feature.
	Kind ResourceKind `json:"kind" yaml:"kind"`

	// Family is the target family.
	Family BuildTargetFamily `json:"family" yaml:"family"`

	// Target is the name of the source set handle.
	Target string `json:"target" yaml:"target"`

	// TaskName is the host task executing this instance.
	TaskName string `json:"task" yaml:"task"`

	// Output are the directories this instance writes.
	Output OutputDirs `json:"output" yaml:"output"`

	// Namespace is the manifest-derived namespace for packaged instances.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	feature   ResourceFeature
	generator Generator
	handle    SourceSetHandle
	context   *GenerationContext
}

// Context returns the generation context bound to the instance.
func (g *GeneratorInstance) Context() *GenerationContext { return g.context }

// Handle returns the source set handle bound to the instance.
func (g *GeneratorInstance) Handle() SourceSetHandle { return g.handle }

// Feature returns the feature that produced the instance.
func (g *GeneratorInstance) Feature() ResourceFeature { return g.feature }

// Generate runs the generator into the instance output directories.
func (g *GeneratorInstance) Generate(ctx context.Context) error {
	return g.generator.Generate(ctx, g.Output)
}
