package buildhost

import (
	"fmt"
	"path/filepath"
)

// Platform identifies the platform type of a declared target.
type Platform string

const (
	// PlatformCommon is the metadata target shared by every platform.
	PlatformCommon Platform = "common"

	// PlatformAndroidJvm is a packaged android library target.
	PlatformAndroidJvm Platform = "androidJvm"

	// PlatformJvm is a plain JVM target.
	PlatformJvm Platform = "jvm"

	// PlatformJs is a JavaScript target.
	PlatformJs Platform = "js"

	// PlatformNative is a target compiled to native code.
	PlatformNative Platform = "native"
)

// Validate checks if the platform is known.
func (p Platform) Validate() error {
	switch p {
	case PlatformCommon, PlatformAndroidJvm, PlatformJvm, PlatformJs, PlatformNative:
		return nil
	default:
		return fmt.Errorf("invalid platform: %s", p)
	}
}

// NativeFamily is the operating system family of a native target.
type NativeFamily string

const (
	NativeFamilyIOS     NativeFamily = "ios"
	NativeFamilyOSX     NativeFamily = "osx"
	NativeFamilyTvOS    NativeFamily = "tvos"
	NativeFamilyWatchOS NativeFamily = "watchos"
	NativeFamilyLinux   NativeFamily = "linux"
	NativeFamilyMingw   NativeFamily = "mingw"
	NativeFamilyAndroid NativeFamily = "android"
)

// Conventional compilation and source set names.
const (
	MainCompilationName = "main"
	TestCompilationName = "test"
	MainSourceSetName   = "main"
	CommonMainName      = "commonMain"
	CommonTestName      = "commonTest"
)

// SourceSet is a named group of compilable sources and raw resources.
type SourceSet struct {
	// Name is the source set name (e.g., "commonMain", "iosArm64Main").
	Name string

	// Sources are the compilable source roots.
	Sources DirSet

	// Resources are the raw resource roots.
	Resources DirSet
}

// Compilation is a single compile unit of a target.
type Compilation struct {
	// Name is the compilation name (e.g., "main", "debugUnitTest").
	Name string

	// DefaultSourceSet receives the sources compiled by this compilation.
	DefaultSourceSet *SourceSet
}

// Target is a declared build target.
type Target struct {
	// Name is the target name (e.g., "android", "iosX64").
	Name string

	// Platform is the platform type of the target.
	Platform Platform

	// NativeFamily is set for native targets only.
	NativeFamily NativeFamily

	compilations []*Compilation
}

// Compilations returns the target compilations in declaration order.
func (t *Target) Compilations() []*Compilation {
	out := make([]*Compilation, len(t.compilations))
	copy(out, t.compilations)
	return out
}

// Compilation returns the compilation with the given name.
func (t *Target) Compilation(name string) (*Compilation, bool) {
	for _, c := range t.compilations {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddCompilation declares a compilation bound to the given default source set.
func (t *Target) AddCompilation(name string, sourceSet *SourceSet) (*Compilation, error) {
	if name == "" {
		return nil, fmt.Errorf("target %s: compilation name is required", t.Name)
	}
	if sourceSet == nil {
		return nil, fmt.Errorf("target %s: compilation %s has no default source set", t.Name, name)
	}
	if _, exists := t.Compilation(name); exists {
		return nil, fmt.Errorf("target %s: compilation %s already exists", t.Name, name)
	}

	c := &Compilation{Name: name, DefaultSourceSet: sourceSet}
	t.compilations = append(t.compilations, c)
	return c, nil
}

// MultiplatformExtension holds the targets and source sets of a multiplatform project.
type MultiplatformExtension struct {
	projectDir string
	targets    []*Target
	sourceSets []*SourceSet
	byName     map[string]*SourceSet
}

// NewMultiplatformExtension creates the extension with the common source sets declared.
func NewMultiplatformExtension(projectDir string) *MultiplatformExtension {
	m := &MultiplatformExtension{
		projectDir: projectDir,
		byName:     make(map[string]*SourceSet),
	}
	m.MaybeCreateSourceSet(CommonMainName)
	m.MaybeCreateSourceSet(CommonTestName)
	return m
}

// MaybeCreateSourceSet returns the named source set, creating it with
// conventional source and resource roots when it does not exist.
func (m *MultiplatformExtension) MaybeCreateSourceSet(name string) *SourceSet {
	if ss, ok := m.byName[name]; ok {
		return ss
	}

	ss := &SourceSet{Name: name}
	// Conventional roots resolve against an absolute project dir, so Add cannot fail.
	_ = ss.Sources.Add(filepath.Join(m.projectDir, "src", name, "kotlin"))
	_ = ss.Resources.Add(filepath.Join(m.projectDir, "src", name, "resources"))

	m.byName[name] = ss
	m.sourceSets = append(m.sourceSets, ss)
	return ss
}

// SourceSet returns the named source set.
func (m *MultiplatformExtension) SourceSet(name string) (*SourceSet, bool) {
	ss, ok := m.byName[name]
	return ss, ok
}

// SourceSets returns all source sets in creation order.
func (m *MultiplatformExtension) SourceSets() []*SourceSet {
	out := make([]*SourceSet, len(m.sourceSets))
	copy(out, m.sourceSets)
	return out
}

// Targets returns the declared targets in declaration order.
func (m *MultiplatformExtension) Targets() []*Target {
	out := make([]*Target, len(m.targets))
	copy(out, m.targets)
	return out
}

// AddTarget declares a target. Target names are unique.
func (m *MultiplatformExtension) AddTarget(t *Target) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("target name is required")
	}
	if err := t.Platform.Validate(); err != nil {
		return fmt.Errorf("target %s: %w", t.Name, err)
	}
	for _, existing := range m.targets {
		if existing.Name == t.Name {
			return fmt.Errorf("target %s already declared", t.Name)
		}
	}
	m.targets = append(m.targets, t)
	return nil
}

// Android declares an android library target with the standard variant
// compilations. Each compilation gets a source set named after the target
// and the capitalized compilation name.
func (m *MultiplatformExtension) Android(name string) (*Target, error) {
	t := &Target{Name: name, Platform: PlatformAndroidJvm}
	for _, compilation := range []string{"debug", "release", "debugUnitTest", "releaseUnitTest", "debugAndroidTest"} {
		ss := m.MaybeCreateSourceSet(name + Capitalize(compilation))
		if _, err := t.AddCompilation(compilation, ss); err != nil {
			return nil, err
		}
	}
	if err := m.AddTarget(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Native declares a native target of the given family with main and test compilations.
func (m *MultiplatformExtension) Native(name string, family NativeFamily) (*Target, error) {
	t := &Target{Name: name, Platform: PlatformNative, NativeFamily: family}
	if err := m.addMainAndTest(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Jvm declares a JVM target with main and test compilations.
func (m *MultiplatformExtension) Jvm(name string) (*Target, error) {
	t := &Target{Name: name, Platform: PlatformJvm}
	if err := m.addMainAndTest(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Js declares a JavaScript target with main and test compilations.
func (m *MultiplatformExtension) Js(name string) (*Target, error) {
	t := &Target{Name: name, Platform: PlatformJs}
	if err := m.addMainAndTest(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *MultiplatformExtension) addMainAndTest(t *Target) error {
	for _, compilation := range []string{MainCompilationName, TestCompilationName} {
		ss := m.MaybeCreateSourceSet(t.Name + Capitalize(compilation))
		if _, err := t.AddCompilation(compilation, ss); err != nil {
			return err
		}
	}
	return m.AddTarget(t)
}

// AndroidSourceSet is a source set of the android library extension.
type AndroidSourceSet struct {
	// Name is the android source set name (e.g., "main", "debug").
	Name string

	// ManifestFile is the path to the AndroidManifest.xml of this source set.
	ManifestFile string

	// Java holds the compilable source roots of the android source set.
	Java DirSet

	// Res is the android platform resource bucket.
	Res DirSet
}

// LibraryExtension holds the android library configuration.
type LibraryExtension struct {
	projectDir string
	sourceSets []*AndroidSourceSet
}

// NewLibraryExtension creates the extension with the main source set declared.
func NewLibraryExtension(projectDir string) *LibraryExtension {
	l := &LibraryExtension{projectDir: projectDir}
	l.MaybeCreateSourceSet(MainSourceSetName)
	return l
}

// MaybeCreateSourceSet returns the named android source set, creating it with
// conventional roots when it does not exist.
func (l *LibraryExtension) MaybeCreateSourceSet(name string) *AndroidSourceSet {
	if ss, ok := l.SourceSet(name); ok {
		return ss
	}

	base := filepath.Join(l.projectDir, "src", name)
	ss := &AndroidSourceSet{
		Name:         name,
		ManifestFile: filepath.Join(base, "AndroidManifest.xml"),
	}
	_ = ss.Java.Add(filepath.Join(base, "java"))
	_ = ss.Res.Add(filepath.Join(base, "res"))

	l.sourceSets = append(l.sourceSets, ss)
	return ss
}

// SourceSet returns the named android source set.
func (l *LibraryExtension) SourceSet(name string) (*AndroidSourceSet, bool) {
	for _, ss := range l.sourceSets {
		if ss.Name == name {
			return ss, true
		}
	}
	return nil, false
}

// Capitalize upper-cases the first ASCII letter of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
