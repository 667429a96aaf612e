package features

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Layout of the shared resource directory.
const (
	resourcesRoot = "MR"
	baseLocaleDir = "base"
	imagesDir     = "images"
	fontsDir      = "fonts"
	stringsFile   = "strings.xml"
	pluralsFile   = "plurals.xml"
)

// localeDir is one localization bucket under MR/.
type localeDir struct {
	// Locale is empty for the base bucket.
	Locale string
	Path   string
}

// IsBase reports whether the bucket holds the base localization.
func (l localeDir) IsBase() bool { return l.Locale == "" }

// localeDirs lists the localization buckets containing file, base first and
// then by locale name. A missing resources dir yields no buckets.
func localeDirs(resourcesDir, file string) ([]localeDir, error) {
	if resourcesDir == "" {
		return nil, nil
	}
	root := filepath.Join(resourcesDir, resourcesRoot)
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	var out []localeDir
	for _, e := range entries {
		if !e.IsDir() || e.Name() == imagesDir || e.Name() == fontsDir {
			continue
		}
		path := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(path, file)); err != nil {
			continue
		}
		locale := e.Name()
		if locale == baseLocaleDir {
			locale = ""
		}
		out = append(out, localeDir{Locale: locale, Path: path})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsBase() != out[j].IsBase() {
			return out[i].IsBase()
		}
		return out[i].Locale < out[j].Locale
	})
	return out, nil
}

// assetFiles lists regular files of MR/<sub> whose extension is allowed,
// sorted by name.
func assetFiles(resourcesDir, sub string, exts ...string) ([]string, error) {
	if resourcesDir == "" {
		return nil, nil
	}
	dir := filepath.Join(resourcesDir, resourcesRoot, sub)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, allowed := range exts {
			if ext == allowed {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

type stringEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type pluralItem struct {
	Quantity string `xml:"quantity,attr"`
	Value    string `xml:",chardata"`
}

type pluralEntry struct {
	Name  string       `xml:"name,attr"`
	Items []pluralItem `xml:"item"`
}

type resourcesDoc struct {
	XMLName xml.Name      `xml:"resources"`
	Strings []stringEntry `xml:"string"`
	Plurals []pluralEntry `xml:"plural"`
}

func readResources(path string) (*resourcesDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc resourcesDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]`)

// identifier converts a resource key into a Kotlin and android resource name.
func identifier(key string) string {
	id := nonIdentifier.ReplaceAllString(key, "_")
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "_" + id
	}
	return id
}

// androidQualifier converts a locale such as pt-BR into the android resource
// qualifier pt-rBR.
func androidQualifier(locale string) string {
	lang, region, ok := strings.Cut(locale, "-")
	if !ok {
		return locale
	}
	return lang + "-r" + strings.ToUpper(region)
}
