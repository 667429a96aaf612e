package features

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openfroyo/resgen/pkg/engine"
	"github.com/openfroyo/resgen/pkg/telemetry"
)

// NewStrings creates the strings feature. baseRegion names the locale of the
// base bucket on native targets.
func NewStrings(genCtx *engine.GenerationContext, baseRegion string) engine.ResourceFeature {
	return &feature{
		kind: engine.KindStrings,
		newGenerator: func(family engine.BuildTargetFamily) engine.Generator {
			return &stringsGenerator{genCtx: genCtx, family: family, baseRegion: baseRegion}
		},
	}
}

type stringsGenerator struct {
	genCtx     *engine.GenerationContext
	family     engine.BuildTargetFamily
	baseRegion string
}

type localizedStrings struct {
	locale  localeDir
	entries []stringEntry
}

func (g *stringsGenerator) Generate(ctx context.Context, out engine.OutputDirs) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	locales, err := localeDirs(g.genCtx.ResourcesDir(), stringsFile)
	if err != nil {
		return err
	}

	var all []localizedStrings
	keys := make(map[string]struct{})
	for _, l := range locales {
		doc, err := readResources(filepath.Join(l.Path, stringsFile))
		if err != nil {
			return err
		}
		for _, s := range doc.Strings {
			keys[s.Name] = struct{}{}
		}
		all = append(all, localizedStrings{locale: l, entries: doc.Strings})
	}

	entries, err := sortedEntries(keys)
	if err != nil {
		return err
	}
	if err := resetOutput(out); err != nil {
		return err
	}
	path, err := writeSource(g.genCtx, g.family, engine.KindStrings, "StringResource", "string", entries, out.Source)
	if err != nil {
		return err
	}

	switch g.family {
	case engine.FamilyPackaged:
		err = g.writeAndroid(all, out.Resources)
	case engine.FamilyNative:
		err = g.writeApple(all, out.Resources)
	}
	if err != nil {
		return err
	}

	telemetry.FromContext(ctx).WithFamily(string(g.family)).
		Debugf("Generated %d strings in %d locales into %s", len(keys), len(all), path)
	return nil
}

type androidString struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type androidStrings struct {
	XMLName xml.Name        `xml:"resources"`
	Strings []androidString `xml:"string"`
}

func (g *stringsGenerator) writeAndroid(all []localizedStrings, dir string) error {
	for _, ls := range all {
		doc := androidStrings{}
		for _, s := range ls.entries {
			doc.Strings = append(doc.Strings, androidString{
				Name:  identifier(s.Name),
				Value: escapeAndroid(s.Value),
			})
		}
		data, err := marshalXML(doc)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, valuesDir(ls.locale), stringsFile), data); err != nil {
			return err
		}
	}
	return nil
}

func (g *stringsGenerator) writeApple(all []localizedStrings, dir string) error {
	locales := make([]localeDir, 0, len(all))
	for _, ls := range all {
		locales = append(locales, ls.locale)
	}
	for _, ls := range all {
		var buf bytes.Buffer
		for _, s := range ls.entries {
			fmt.Fprintf(&buf, "%s = %s;\n", quoteApple(s.Name), quoteApple(s.Value))
		}
		for _, lproj := range lprojDirs(ls.locale, g.baseRegion, locales) {
			if err := writeFile(filepath.Join(dir, lproj, "Localizable.strings"), buf.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

// valuesDir returns the android values bucket of a locale.
func valuesDir(l localeDir) string {
	if l.IsBase() {
		return "values"
	}
	return "values-" + androidQualifier(l.Locale)
}

// lprojDirs returns the bundle localization dirs of a locale. The base bucket
// also serves baseRegion unless that region has its own bucket.
func lprojDirs(l localeDir, baseRegion string, locales []localeDir) []string {
	if !l.IsBase() {
		return []string{l.Locale + ".lproj"}
	}
	dirs := []string{"Base.lproj"}
	if baseRegion == "" {
		return dirs
	}
	for _, other := range locales {
		if other.Locale == baseRegion {
			return dirs
		}
	}
	return append(dirs, baseRegion+".lproj")
}

// sortedEntries returns the entries of keys ordered by key. Two keys that map
// to the same identifier are rejected.
func sortedEntries(keys map[string]struct{}) ([]entry, error) {
	out := make([]entry, 0, len(keys))
	for key := range keys {
		out = append(out, entry{Ident: identifier(key), Key: key})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	owners := make(map[string]string, len(out))
	for _, e := range out {
		if other, taken := owners[e.Ident]; taken {
			return nil, fmt.Errorf("resource keys %q and %q both map to identifier %s", other, e.Key, e.Ident)
		}
		owners[e.Ident] = e.Key
	}
	return out, nil
}

func marshalXML(v any) ([]byte, error) {
	data, err := xml.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resources: %w", err)
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

var androidEscaper = strings.NewReplacer(`'`, `\'`, `"`, `\"`)

func escapeAndroid(s string) string {
	return androidEscaper.Replace(s)
}

var appleEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quoteApple(s string) string {
	return `"` + appleEscaper.Replace(s) + `"`
}
