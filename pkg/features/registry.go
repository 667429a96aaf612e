// Package features implements the resource kinds of resgen: strings, plurals,
// images and fonts.
//
// Each feature produces one generator per target family. Generators read the
// shared resource directory laid out as
//
//	MR/base/strings.xml
//	MR/<locale>/strings.xml
//	MR/base/plurals.xml
//	MR/images/<name>[@2x|@3x].png
//	MR/fonts/<name>.ttf
//
// and write one Kotlin source file per instance plus the platform resources
// of packaged and native targets.
package features

import (
	"github.com/openfroyo/resgen/pkg/engine"
)

// Registry returns the features of a run in generation order.
func Registry(genCtx *engine.GenerationContext, ext engine.Extension) []engine.ResourceFeature {
	return []engine.ResourceFeature{
		NewStrings(genCtx, ext.BaseLocalizationRegion),
		NewPlurals(genCtx, ext.BaseLocalizationRegion),
		NewImages(genCtx),
		NewFonts(genCtx),
	}
}

// Kinds returns the resource kinds in registry order.
func Kinds() []engine.ResourceKind {
	return []engine.ResourceKind{engine.KindStrings, engine.KindPlurals, engine.KindImages, engine.KindFonts}
}

// feature builds a generator for a family on demand.
type feature struct {
	kind         engine.ResourceKind
	newGenerator func(family engine.BuildTargetFamily) engine.Generator
}

func (f *feature) Kind() engine.ResourceKind { return f.kind }

func (f *feature) SharedGenerator() engine.Generator {
	return f.newGenerator(engine.FamilyShared)
}

func (f *feature) PackagedGenerator() engine.Generator {
	return f.newGenerator(engine.FamilyPackaged)
}

func (f *feature) NativeGenerator() engine.Generator {
	return f.newGenerator(engine.FamilyNative)
}
