// Package manifest extracts the package identity of an android library from
// its AndroidManifest.xml.
package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openfroyo/resgen/pkg/engine"
	"github.com/openfroyo/resgen/pkg/telemetry"
	"golang.org/x/net/html/charset"
)

const (
	manifestElement  = "manifest"
	packageAttribute = "package"
)

// Opener opens a manifest file for reading.
type Opener func(path string) (io.ReadCloser, error)

// Resolver reads the package attribute of the first manifest element.
type Resolver struct {
	open   Opener
	logger *telemetry.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOpener replaces the file opener.
func WithOpener(open Opener) Option {
	return func(r *Resolver) {
		if open != nil {
			r.open = open
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger.NewComponentLogger("manifest")
		}
	}
}

// NewResolver creates a resolver reading from the local filesystem.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		open:   func(path string) (io.ReadCloser, error) { return os.Open(path) },
		logger: telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the package attribute of the first manifest element of the
// document at path. The whole document must be well-formed. The identifier is
// returned as written; it is never derived from other settings.
func (r *Resolver) Resolve(path string) (string, error) {
	f, err := r.open(path)
	if err != nil {
		return "", engine.MissingManifestError(path, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	// Manifests may declare a legacy encoding such as ISO-8859-1.
	dec.CharsetReader = charset.NewReaderLabel

	pkg, found, err := scan(dec)
	if err != nil {
		return "", engine.MissingManifestError(path, err)
	}
	if !found {
		return "", engine.MissingManifestError(path, fmt.Errorf("no <%s> element", manifestElement))
	}
	if strings.TrimSpace(pkg) == "" {
		return "", engine.MissingPackageIdentityError(path)
	}

	r.logger.WithField("path", path).Debugf("Resolved android package %s", pkg)
	return pkg, nil
}

// scan walks every token so malformed documents are rejected, and records the
// package attribute of the first manifest element.
func scan(dec *xml.Decoder) (pkg string, found bool, err error) {
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !sawRoot {
				return "", false, fmt.Errorf("document has no root element")
			}
			return pkg, found, nil
		}
		if err != nil {
			return "", false, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if found || start.Name.Local != manifestElement {
			continue
		}

		found = true
		for _, attr := range start.Attr {
			// Namespaced attributes such as android:versionCode never match.
			if attr.Name.Space == "" && attr.Name.Local == packageAttribute {
				pkg = attr.Value
				break
			}
		}
	}
}
