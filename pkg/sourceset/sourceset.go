// Package sourceset adapts the three host source set models to one handle
// with a name and two directory registration calls.
//
// The shared and native adapters register directly on their source set. The
// packaged adapter broadcasts source directories to every compilation that
// consumes the android main sources, and routes resource directories to the
// android res bucket. Registration is set-based: adding a directory twice
// leaves a single entry.
package sourceset

import (
	"fmt"

	"github.com/openfroyo/resgen/pkg/buildhost"
)

// PackagedPrefix prefixes the name of packaged handles.
const PackagedPrefix = "android"

// Shared wraps the shared multiplatform source set.
type Shared struct {
	sourceSet *buildhost.SourceSet
}

// NewShared creates a handle over a shared source set.
func NewShared(ss *buildhost.SourceSet) *Shared {
	return &Shared{sourceSet: ss}
}

// Name returns the source set name.
func (s *Shared) Name() string { return s.sourceSet.Name }

// AddSourceDir registers dir as a source root of the source set.
func (s *Shared) AddSourceDir(dir string) error {
	return wrap(s.Name(), s.sourceSet.Sources.Add(dir))
}

// AddResourcesDir registers dir as a resource root of the source set.
func (s *Shared) AddResourcesDir(dir string) error {
	return wrap(s.Name(), s.sourceSet.Resources.Add(dir))
}

// Native wraps the main compilation of a native target.
type Native struct {
	target      string
	compilation *buildhost.Compilation
}

// NewNative creates a handle over the default source set of a native compilation.
func NewNative(target string, c *buildhost.Compilation) *Native {
	return &Native{target: target, compilation: c}
}

// Name returns the default source set name of the compilation.
func (n *Native) Name() string { return n.compilation.DefaultSourceSet.Name }

// TargetName returns the native target the compilation belongs to.
func (n *Native) TargetName() string { return n.target }

// AddSourceDir registers dir as a source root of the compilation.
func (n *Native) AddSourceDir(dir string) error {
	return wrap(n.Name(), n.compilation.DefaultSourceSet.Sources.Add(dir))
}

// AddResourcesDir registers dir as a resource root of the compilation.
func (n *Native) AddResourcesDir(dir string) error {
	return wrap(n.Name(), n.compilation.DefaultSourceSet.Resources.Add(dir))
}

// Packaged wraps the android main source set and the source sets consuming it.
type Packaged struct {
	main      *buildhost.AndroidSourceSet
	consumers []*buildhost.SourceSet
}

// NewPackaged creates a handle over the android main source set. Source
// directories fan out to consumers.
func NewPackaged(main *buildhost.AndroidSourceSet, consumers []*buildhost.SourceSet) *Packaged {
	return &Packaged{
		main:      main,
		consumers: append([]*buildhost.SourceSet(nil), consumers...),
	}
}

// Name returns "android" followed by the capitalized android source set name.
func (p *Packaged) Name() string {
	return PackagedPrefix + buildhost.Capitalize(p.main.Name)
}

// Consumers returns the names of the source sets receiving source directories.
func (p *Packaged) Consumers() []string {
	names := make([]string, 0, len(p.consumers))
	for _, ss := range p.consumers {
		names = append(names, ss.Name)
	}
	return names
}

// AddSourceDir registers dir on every consuming source set.
func (p *Packaged) AddSourceDir(dir string) error {
	for _, ss := range p.consumers {
		if err := ss.Sources.Add(dir); err != nil {
			return wrap(ss.Name, err)
		}
	}
	return nil
}

// AddResourcesDir registers dir in the android res bucket.
func (p *Packaged) AddResourcesDir(dir string) error {
	return wrap(p.Name(), p.main.Res.Add(dir))
}

func wrap(name string, err error) error {
	if err != nil {
		return fmt.Errorf("source set %s: %w", name, err)
	}
	return nil
}
