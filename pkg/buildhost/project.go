package buildhost

import (
	"context"
	"fmt"
	"path/filepath"
)

// Well-known plugin identifiers.
const (
	// PluginMultiplatform enables multi-target builds and creates the
	// multiplatform extension.
	PluginMultiplatform = "multiplatform"

	// PluginAndroidLibrary enables packaged android library builds and
	// creates the android extension.
	PluginAndroidLibrary = "android-library"
)

// Extension names created by the built-in plugins.
const (
	ExtensionKotlin  = "kotlin"
	ExtensionAndroid = "android"
)

// ProjectAction is a unit of project configuration run during evaluation.
type ProjectAction func(ctx context.Context, p *Project) error

type evaluationState int

const (
	stateConfiguring evaluationState = iota
	stateEvaluating
	stateEvaluated
)

// Project is a single build project.
type Project struct {
	// Name is the project name.
	Name string

	// Dir is the absolute project directory.
	Dir string

	// BuildDir is the directory that holds build outputs.
	BuildDir string

	extensions    map[string]any
	applied       map[string]bool
	plugins       []string
	pluginHooks   map[string][]func() error
	configure     []ProjectAction
	afterEvaluate []ProjectAction
	state         evaluationState

	multiplatform *MultiplatformExtension
	android       *LibraryExtension
	tasks         *TaskContainer
}

// NewProject creates a project rooted at dir with build outputs under dir/build.
func NewProject(name, dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}

	return &Project{
		Name:        name,
		Dir:         abs,
		BuildDir:    filepath.Join(abs, "build"),
		extensions:  make(map[string]any),
		applied:     make(map[string]bool),
		pluginHooks: make(map[string][]func() error),
		tasks:       NewTaskContainer(),
	}, nil
}

// ApplyPlugin applies the plugin with the given id. Built-in plugins create
// their extension first, then every continuation registered through
// WithPlugin for this id runs in registration order. Applying an already
// applied plugin is a no-op.
func (p *Project) ApplyPlugin(id string) error {
	if p.applied[id] {
		return nil
	}
	if p.state != stateConfiguring {
		return fmt.Errorf("cannot apply plugin %s after project evaluation started", id)
	}

	switch id {
	case PluginMultiplatform:
		p.multiplatform = NewMultiplatformExtension(p.Dir)
		if err := p.CreateExtension(ExtensionKotlin, p.multiplatform); err != nil {
			return err
		}
	case PluginAndroidLibrary:
		p.android = NewLibraryExtension(p.Dir)
		if err := p.CreateExtension(ExtensionAndroid, p.android); err != nil {
			return err
		}
	}

	p.applied[id] = true
	p.plugins = append(p.plugins, id)

	hooks := p.pluginHooks[id]
	delete(p.pluginHooks, id)
	for _, hook := range hooks {
		if err := hook(); err != nil {
			return fmt.Errorf("plugin %s: %w", id, err)
		}
	}
	return nil
}

// HasPlugin reports whether the plugin has been applied.
func (p *Project) HasPlugin(id string) bool {
	return p.applied[id]
}

// Plugins returns the applied plugin ids in application order.
func (p *Project) Plugins() []string {
	out := make([]string, len(p.plugins))
	copy(out, p.plugins)
	return out
}

// WithPlugin runs fn once the plugin with the given id is applied. If the
// plugin is already applied fn runs immediately.
func (p *Project) WithPlugin(id string, fn func() error) error {
	if p.applied[id] {
		return fn()
	}
	p.pluginHooks[id] = append(p.pluginHooks[id], fn)
	return nil
}

// CreateExtension registers a named extension object.
func (p *Project) CreateExtension(name string, ext any) error {
	if _, exists := p.extensions[name]; exists {
		return fmt.Errorf("extension %s already exists", name)
	}
	p.extensions[name] = ext
	return nil
}

// Extension returns the named extension object.
func (p *Project) Extension(name string) (any, bool) {
	ext, ok := p.extensions[name]
	return ext, ok
}

// Multiplatform returns the multiplatform extension, or nil when the
// multiplatform plugin is not applied.
func (p *Project) Multiplatform() *MultiplatformExtension {
	return p.multiplatform
}

// Android returns the android library extension, or nil when the android
// library plugin is not applied.
func (p *Project) Android() *LibraryExtension {
	return p.android
}

// Tasks returns the project task container.
func (p *Project) Tasks() *TaskContainer {
	return p.tasks
}

// Configure registers a build script action run at the start of evaluation.
func (p *Project) Configure(action ProjectAction) error {
	if p.state != stateConfiguring {
		return fmt.Errorf("cannot add configure action after project evaluation started")
	}
	p.configure = append(p.configure, action)
	return nil
}

// AfterEvaluate registers a hook run once every configure action has completed.
func (p *Project) AfterEvaluate(action ProjectAction) error {
	if p.state == stateEvaluated {
		return fmt.Errorf("cannot add after-evaluate hook: project %s already evaluated", p.Name)
	}
	p.afterEvaluate = append(p.afterEvaluate, action)
	return nil
}

// Evaluated reports whether Evaluate has completed.
func (p *Project) Evaluated() bool {
	return p.state == stateEvaluated
}

// Evaluate runs configure actions, then after-evaluate hooks, in registration
// order. The first failing action aborts evaluation. A project is evaluated
// at most once.
func (p *Project) Evaluate(ctx context.Context) error {
	if p.state != stateConfiguring {
		return fmt.Errorf("project %s already evaluated", p.Name)
	}
	p.state = stateEvaluating
	defer func() { p.state = stateEvaluated }()

	for _, action := range p.configure {
		if err := action(ctx, p); err != nil {
			return fmt.Errorf("configure project %s: %w", p.Name, err)
		}
	}

	// Hooks may register further hooks; iterate by index to pick them up.
	for i := 0; i < len(p.afterEvaluate); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.afterEvaluate[i](ctx, p); err != nil {
			return err
		}
	}

	return nil
}
