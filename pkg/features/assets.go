package features

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/openfroyo/resgen/pkg/engine"
	"github.com/openfroyo/resgen/pkg/telemetry"
)

var (
	imageExtensions = []string{".png", ".jpg", ".jpeg"}
	fontExtensions  = []string{".ttf", ".otf"}
)

// android density buckets by image scale suffix.
var densityDirs = map[string]string{
	"":    "drawable",
	"@1x": "drawable-mdpi",
	"@2x": "drawable-xhdpi",
	"@3x": "drawable-xxhdpi",
}

// NewImages creates the images feature.
func NewImages(genCtx *engine.GenerationContext) engine.ResourceFeature {
	return &feature{
		kind: engine.KindImages,
		newGenerator: func(family engine.BuildTargetFamily) engine.Generator {
			return &assetGenerator{
				genCtx:       genCtx,
				family:       family,
				kind:         engine.KindImages,
				sub:          imagesDir,
				exts:         imageExtensions,
				resourceType: "ImageResource",
				androidType:  "drawable",
				name:         imageName,
				androidPath:  imageAndroidPath,
			}
		},
	}
}

// NewFonts creates the fonts feature.
func NewFonts(genCtx *engine.GenerationContext) engine.ResourceFeature {
	return &feature{
		kind: engine.KindFonts,
		newGenerator: func(family engine.BuildTargetFamily) engine.Generator {
			return &assetGenerator{
				genCtx:       genCtx,
				family:       family,
				kind:         engine.KindFonts,
				sub:          fontsDir,
				exts:         fontExtensions,
				resourceType: "FontResource",
				androidType:  "font",
				name:         fontName,
				androidPath:  fontAndroidPath,
			}
		},
	}
}

// assetGenerator declares one property per asset name and copies the files.
type assetGenerator struct {
	genCtx       *engine.GenerationContext
	family       engine.BuildTargetFamily
	kind         engine.ResourceKind
	sub          string
	exts         []string
	resourceType string
	androidType  string

	// name maps a file to its resource key.
	name func(file string) string
	// androidPath maps a file to its path under the android res dir.
	androidPath func(file string) string
}

func (g *assetGenerator) Generate(ctx context.Context, out engine.OutputDirs) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, err := assetFiles(g.genCtx.ResourcesDir(), g.sub, g.exts...)
	if err != nil {
		return err
	}

	keys := make(map[string]struct{})
	for _, f := range files {
		keys[g.name(f)] = struct{}{}
	}

	entries, err := sortedEntries(keys)
	if err != nil {
		return err
	}
	if err := resetOutput(out); err != nil {
		return err
	}
	if _, err := writeSource(g.genCtx, g.family, g.kind, g.resourceType, g.androidType, entries, out.Source); err != nil {
		return err
	}

	for _, f := range files {
		var dst string
		switch g.family {
		case engine.FamilyPackaged:
			dst = filepath.Join(out.Resources, g.androidPath(f))
		case engine.FamilyNative:
			dst = filepath.Join(out.Resources, filepath.Base(f))
		default:
			continue
		}
		if err := copyFile(f, dst); err != nil {
			return err
		}
	}

	telemetry.FromContext(ctx).WithFamily(string(g.family)).
		Debugf("Generated %d %s from %d files", len(keys), g.kind, len(files))
	return nil
}

// splitScale splits "icon@2x.png" into "icon" and "@2x".
func splitScale(file string) (string, string) {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	for _, scale := range []string{"@1x", "@2x", "@3x"} {
		if strings.HasSuffix(base, scale) {
			return strings.TrimSuffix(base, scale), scale
		}
	}
	return base, ""
}

func imageName(file string) string {
	name, _ := splitScale(file)
	return name
}

func imageAndroidPath(file string) string {
	name, scale := splitScale(file)
	ext := strings.ToLower(filepath.Ext(file))
	return filepath.Join(densityDirs[scale], identifier(name)+ext)
}

// fontName lower-cases the file name since android font resources must be lower case.
func fontName(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return strings.ToLower(base)
}

func fontAndroidPath(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	return filepath.Join("font", identifier(fontName(file))+ext)
}
