package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ProjectSchema is the name of the built-in project descriptor schema.
const ProjectSchema = "project"

// SchemaRegistry manages CUE schemas for validation. Each schema is a CUE
// source exporting one definition that values are unified with.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	return newSchemaRegistry(cuecontext.New())
}

func newSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	// The built-in schema is a constant; a compile failure is a programming error.
	if err := sr.RegisterSchema(ProjectSchema, "#Project", builtinProjectSchema); err != nil {
		panic(err)
	}

	return sr
}

// RegisterSchema registers a CUE schema under name. definition names the
// definition inside schema used for validation (e.g., "#Project").
func (sr *SchemaRegistry) RegisterSchema(name, definition, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema %s does not define %s", name, definition)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves the definition of a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	def, ok := sr.schemas[name]
	return def, ok
}

// Unify unifies val with the named schema definition. The result carries
// any conflict as its error.
func (sr *SchemaRegistry) Unify(name string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(name)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", name)
	}
	return schema.Unify(val), nil
}

// ValidateAgainstSchema validates data against a named schema. A validation
// failure is returned as the CUE error list so callers keep positions.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Convert data to CUE value
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified, err := sr.Unify(schemaName, dataVal)
	if err != nil {
		return err
	}
	return unified.Validate(cue.Concrete(true))
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinProjectSchema = `
// Project descriptor of a resgen project.
#Project: {
	// Name is the project name.
	name: string & !=""

	// Plugins are applied in order; at least one is required.
	plugins: [#Plugin, ...#Plugin]

	// Resources configures the multiplatformResources extension.
	resources?: #Resources

	// Targets are declared in order once the multiplatform plugin is applied.
	targets?: [...#Target]

	// BuildScript is a Starlark file relative to the project directory.
	build_script?: string & !=""
}

#Plugin: "multiplatform" | "android-library"

#Resources: {
	"package"?:                string & =~"^[A-Za-z_][A-Za-z0-9_]*(\\.[A-Za-z_][A-Za-z0-9_]*)*$"
	base_localization_region?: string & =~"^[A-Za-z]{2,3}$"
	source_set_name?:          string & =~"^[A-Za-z0-9]+$"
}

#Target: {
	name:     string & =~"^[A-Za-z0-9]+$"
	platform: "androidJvm" | "jvm" | "js" | "native"
	family?:  "ios" | "osx" | "tvos" | "watchos" | "linux" | "mingw" | "android"

	if platform == "native" {
		family!: _
	}
}
`
