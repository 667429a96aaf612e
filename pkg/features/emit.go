package features

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/openfroyo/resgen/pkg/engine"
)

const header = "// Code generated by resgen. DO NOT EDIT.\n"

// entry is one generated property.
type entry struct {
	// Ident is the Kotlin property and android resource name.
	Ident string
	// Key is the platform lookup key.
	Key string
}

// sourceData feeds the Kotlin templates.
type sourceData struct {
	Header       string
	Package      string
	Namespace    string
	Object       string
	ResourceType string
	AndroidType  string
	Entries      []entry
}

var sourceTemplates = template.Must(template.New("sources").Parse(`
{{- define "shared" -}}
{{.Header}}
package {{.Package}}

import dev.icerock.moko.resources.{{.ResourceType}}

expect object {{.Object}} {
{{- range .Entries}}
    val {{.Ident}}: {{$.ResourceType}}
{{- end}}
}
{{end}}

{{- define "packaged" -}}
{{.Header}}
package {{.Package}}

import dev.icerock.moko.resources.{{.ResourceType}}
import {{.Namespace}}.R

actual object {{.Object}} {
{{- range .Entries}}
    actual val {{.Ident}}: {{$.ResourceType}} = {{$.ResourceType}}(R.{{$.AndroidType}}.{{.Ident}})
{{- end}}
}
{{end}}

{{- define "native" -}}
{{.Header}}
package {{.Package}}

import dev.icerock.moko.resources.{{.ResourceType}}
import platform.Foundation.NSBundle

actual object {{.Object}} {
{{- range .Entries}}
    actual val {{.Ident}}: {{$.ResourceType}} = {{$.ResourceType}}(resourceId = {{printf "%q" .Key}}, bundle = NSBundle.mainBundle)
{{- end}}
}
{{end}}
`))

// objectName returns the generated object name of a kind, e.g. MRStrings.
func objectName(kind engine.ResourceKind) string {
	s := string(kind)
	return "MR" + strings.ToUpper(s[:1]) + s[1:]
}

// writeSource renders the family template of kind into the package path under dir.
func writeSource(
	genCtx *engine.GenerationContext,
	family engine.BuildTargetFamily,
	kind engine.ResourceKind,
	resourceType, androidType string,
	entries []entry,
	dir string,
) (string, error) {
	namespace, _ := genCtx.PackagedNamespace()
	data := sourceData{
		Header:       header,
		Package:      genCtx.Package(),
		Namespace:    namespace,
		Object:       objectName(kind),
		ResourceType: resourceType,
		AndroidType:  androidType,
		Entries:      entries,
	}

	var buf bytes.Buffer
	if err := sourceTemplates.ExecuteTemplate(&buf, string(family), data); err != nil {
		return "", fmt.Errorf("failed to render %s source: %w", kind, err)
	}

	pkgPath := filepath.Join(strings.Split(genCtx.Package(), ".")...)
	path := filepath.Join(dir, pkgPath, data.Object+".kt")
	return path, writeFile(path, buf.Bytes())
}

// resetOutput recreates empty output directories.
func resetOutput(out engine.OutputDirs) error {
	for _, dir := range []string{out.Source, out.Resources} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
