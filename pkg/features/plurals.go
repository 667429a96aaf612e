package features

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/openfroyo/resgen/pkg/engine"
	"github.com/openfroyo/resgen/pkg/telemetry"
)

// NewPlurals creates the plurals feature. baseRegion names the locale of the
// base bucket on native targets.
func NewPlurals(genCtx *engine.GenerationContext, baseRegion string) engine.ResourceFeature {
	return &feature{
		kind: engine.KindPlurals,
		newGenerator: func(family engine.BuildTargetFamily) engine.Generator {
			return &pluralsGenerator{genCtx: genCtx, family: family, baseRegion: baseRegion}
		},
	}
}

type pluralsGenerator struct {
	genCtx     *engine.GenerationContext
	family     engine.BuildTargetFamily
	baseRegion string
}

type localizedPlurals struct {
	locale  localeDir
	entries []pluralEntry
}

func (g *pluralsGenerator) Generate(ctx context.Context, out engine.OutputDirs) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	locales, err := localeDirs(g.genCtx.ResourcesDir(), pluralsFile)
	if err != nil {
		return err
	}

	var all []localizedPlurals
	keys := make(map[string]struct{})
	for _, l := range locales {
		doc, err := readResources(filepath.Join(l.Path, pluralsFile))
		if err != nil {
			return err
		}
		for _, p := range doc.Plurals {
			keys[p.Name] = struct{}{}
		}
		all = append(all, localizedPlurals{locale: l, entries: doc.Plurals})
	}

	entries, err := sortedEntries(keys)
	if err != nil {
		return err
	}
	if err := resetOutput(out); err != nil {
		return err
	}
	if _, err := writeSource(g.genCtx, g.family, engine.KindPlurals, "PluralsResource", "plurals", entries, out.Source); err != nil {
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
		Debugf("Generated %d plurals in %d locales", len(keys), len(all))
	return nil
}

type androidPlurals struct {
	XMLName xml.Name              `xml:"resources"`
	Plurals []androidPluralsEntry `xml:"plurals"`
}

type androidPluralsEntry struct {
	Name  string       `xml:"name,attr"`
	Items []pluralItem `xml:"item"`
}

func (g *pluralsGenerator) writeAndroid(all []localizedPlurals, dir string) error {
	for _, lp := range all {
		doc := androidPlurals{}
		for _, p := range lp.entries {
			items := make([]pluralItem, 0, len(p.Items))
			for _, item := range p.Items {
				items = append(items, pluralItem{Quantity: item.Quantity, Value: escapeAndroid(item.Value)})
			}
			doc.Plurals = append(doc.Plurals, androidPluralsEntry{Name: identifier(p.Name), Items: items})
		}
		data, err := marshalXML(doc)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, valuesDir(lp.locale), pluralsFile), data); err != nil {
			return err
		}
	}
	return nil
}

var stringsdict = template.Must(template.New("stringsdict").Funcs(template.FuncMap{
	"xml": xmlText,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
{{- range .}}
    <key>{{xml .Name}}</key>
    <dict>
        <key>NSStringLocalizedFormatKey</key>
        <string>%#@value@</string>
        <key>value</key>
        <dict>
            <key>NSStringFormatSpecTypeKey</key>
            <string>NSStringPluralRuleType</string>
            <key>NSStringFormatValueTypeKey</key>
            <string>d</string>
{{- range .Items}}
            <key>{{xml .Quantity}}</key>
            <string>{{xml .Value}}</string>
{{- end}}
        </dict>
    </dict>
{{- end}}
</dict>
</plist>
`))

func (g *pluralsGenerator) writeApple(all []localizedPlurals, dir string) error {
	locales := make([]localeDir, 0, len(all))
	for _, lp := range all {
		locales = append(locales, lp.locale)
	}

	for _, lp := range all {
		var buf bytes.Buffer
		if err := stringsdict.Execute(&buf, lp.entries); err != nil {
			return fmt.Errorf("failed to render stringsdict: %w", err)
		}
		for _, lproj := range lprojDirs(lp.locale, g.baseRegion, locales) {
			if err := writeFile(filepath.Join(dir, lproj, "Localizable.stringsdict"), buf.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

func xmlText(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
