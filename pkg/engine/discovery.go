package engine

import (
	"fmt"
	"strings"

	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/sourceset"
)

const (
	// SupportedNativeFamily is the only native OS family generated for.
	SupportedNativeFamily = buildhost.NativeFamilyIOS

	// TestCompilationSuffix marks compilations excluded from the packaged family.
	TestCompilationSuffix = "Test"
)

// DiscoveredTarget is one build target selected for generation.
type DiscoveredTarget struct {
	Family BuildTargetFamily
	Handle SourceSetHandle
}

// Discovery partitions a configured project into target families.
type Discovery struct {
	// Shared is the shared source set target. Always present.
	Shared DiscoveredTarget

	// SharedResourcesDir is the first resource root of the shared source set.
	SharedResourcesDir string

	// Packaged is set iff the android library plugin is applied.
	Packaged *DiscoveredTarget

	// ManifestFile is the manifest of the android main source set.
	ManifestFile string

	// Native holds the main compilation of every supported native target in
	// declaration order.
	Native []DiscoveredTarget
}

// Targets returns every discovered target in family order.
func (d *Discovery) Targets() []DiscoveredTarget {
	var out []DiscoveredTarget
	for _, family := range Families() {
		switch family {
		case FamilyShared:
			out = append(out, d.Shared)
		case FamilyPackaged:
			if d.Packaged != nil {
				out = append(out, *d.Packaged)
			}
		case FamilyNative:
			out = append(out, d.Native...)
		}
	}
	return out
}

// Discover classifies the targets of an evaluated project. packaged reports
// whether the android library plugin has been applied. It performs no I/O.
func Discover(project *buildhost.Project, ext Extension, packaged bool) (*Discovery, error) {
	mpp := project.Multiplatform()
	if mpp == nil {
		return nil, NewDiscoveryError("the multiplatform plugin is not applied", nil).
			WithCode(ErrCodeMissingMultiplatform)
	}

	shared, ok := mpp.SourceSet(ext.SourceSetName)
	if !ok {
		return nil, UnknownSourceSetError(ext.SourceSetName)
	}

	d := &Discovery{
		Shared: DiscoveredTarget{Family: FamilyShared, Handle: sourceset.NewShared(shared)},
	}
	if dirs := shared.Resources.Dirs(); len(dirs) > 0 {
		d.SharedResourcesDir = dirs[0]
	}

	if packaged {
		android := project.Android()
		if android == nil {
			return nil, NewDiscoveryError("the android library plugin is applied but has no extension", nil).
				WithCode(ErrCodeMissingAndroidSourceSet)
		}
		target, manifest, err := discoverPackaged(mpp, android)
		if err != nil {
			return nil, err
		}
		d.Packaged = target
		d.ManifestFile = manifest
	}

	native, err := discoverNative(mpp)
	if err != nil {
		return nil, err
	}
	d.Native = native

	return d, nil
}

func discoverPackaged(
	mpp *buildhost.MultiplatformExtension,
	android *buildhost.LibraryExtension,
) (*DiscoveredTarget, string, error) {
	main, ok := android.SourceSet(buildhost.MainSourceSetName)
	if !ok {
		return nil, "", NewDiscoveryError("android library has no main source set", nil).
			WithCode(ErrCodeMissingAndroidSourceSet).
			WithTarget(buildhost.MainSourceSetName)
	}

	var consumers []*buildhost.SourceSet
	for _, target := range mpp.Targets() {
		if target.Platform != buildhost.PlatformAndroidJvm {
			continue
		}
		for _, c := range target.Compilations() {
			if strings.HasSuffix(c.Name, TestCompilationSuffix) {
				continue
			}
			consumers = append(consumers, c.DefaultSourceSet)
		}
	}

	return &DiscoveredTarget{
		Family: FamilyPackaged,
		Handle: sourceset.NewPackaged(main, consumers),
	}, main.ManifestFile, nil
}

func discoverNative(mpp *buildhost.MultiplatformExtension) ([]DiscoveredTarget, error) {
	var out []DiscoveredTarget
	for _, target := range mpp.Targets() {
		if target.Platform != buildhost.PlatformNative || target.NativeFamily != SupportedNativeFamily {
			continue
		}
		main, ok := target.Compilation(buildhost.MainCompilationName)
		if !ok {
			return nil, NewDiscoveryError(
				fmt.Sprintf("native target %s has no %q compilation", target.Name, buildhost.MainCompilationName), nil).
				WithCode(ErrCodeMissingMainCompilation).
				WithTarget(target.Name)
		}
		out = append(out, DiscoveredTarget{
			Family: FamilyNative,
			Handle: sourceset.NewNative(target.Name, main),
		})
	}
	return out, nil
}
