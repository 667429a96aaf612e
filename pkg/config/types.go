package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Descriptor file names, in lookup order.
const (
	CUEFileName  = "resgen.cue"
	YAMLFileName = "resgen.yaml"
	YMLFileName  = "resgen.yml"
)

// Descriptor formats.
const (
	FormatCUE  = "cue"
	FormatYAML = "yaml"
)

// ProjectSpec is the declarative description of a resource project.
type ProjectSpec struct {
	// Name is the project name.
	Name string `json:"name" yaml:"name" validate:"required,max=128"`

	// Plugins lists the host plugins to apply, in application order.
	Plugins []string `json:"plugins,omitempty" yaml:"plugins" validate:"required,min=1,unique,dive,oneof=multiplatform android-library"`

	// Resources configures the multiplatformResources extension.
	Resources ResourcesSpec `json:"resources" yaml:"resources"`

	// Targets are the declared build targets, in declaration order.
	Targets []TargetSpec `json:"targets,omitempty" yaml:"targets" validate:"dive"`

	// BuildScript is an optional Starlark script, relative to the project
	// directory, run while the project is configured.
	BuildScript string `json:"build_script,omitempty" yaml:"build_script,omitempty"`
}

// ResourcesSpec mirrors the extension settings a project descriptor may set.
// Empty fields keep the extension defaults.
type ResourcesSpec struct {
	Package                string `json:"package,omitempty" yaml:"package,omitempty" validate:"omitempty,kotlin_package"`
	BaseLocalizationRegion string `json:"base_localization_region,omitempty" yaml:"base_localization_region,omitempty" validate:"omitempty,alpha,min=2,max=3"`
	SourceSetName          string `json:"source_set_name,omitempty" yaml:"source_set_name,omitempty" validate:"omitempty,alphanum"`
}

// TargetSpec declares one build target.
type TargetSpec struct {
	// Name is the target name (e.g., "android", "iosArm64").
	Name string `json:"name" yaml:"name" validate:"required,alphanum"`

	// Platform is the platform type of the target.
	Platform string `json:"platform" yaml:"platform" validate:"required,oneof=androidJvm jvm js native"`

	// Family is the native family; required for native targets only.
	Family string `json:"family,omitempty" yaml:"family,omitempty" validate:"required_if=Platform native,omitempty,oneof=ios osx tvos watchos linux mingw android"`
}

// HasPlugin reports whether the plugin is listed.
func (s *ProjectSpec) HasPlugin(id string) bool {
	for _, p := range s.Plugins {
		if p == id {
			return true
		}
	}
	return false
}

// Descriptor is a loaded and validated project descriptor.
type Descriptor struct {
	// Spec is the decoded project descriptor.
	Spec ProjectSpec `json:"spec" yaml:"spec"`

	// Dir is the project directory, the directory holding the descriptor.
	Dir string `json:"dir" yaml:"dir"`

	// SourceFiles are the files the descriptor was read from.
	SourceFiles []string `json:"source_files" yaml:"source_files"`

	// Format is the descriptor format (cue, yaml).
	Format string `json:"format" yaml:"format"`

	// LoadedAt is when the descriptor was loaded.
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
}

// BuildScriptPath returns the build script path, resolved against Dir unless
// absolute, or "" when the descriptor names no script.
func (d *Descriptor) BuildScriptPath() string {
	script := d.Spec.BuildScript
	if script == "" || filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(d.Dir, script)
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the file where the error occurred.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty" yaml:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty" yaml:"column,omitempty"`

	// Path is the field path (e.g., "targets[0].family").
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message" yaml:"message"`

	// Severity is the error severity (error, warning).
	Severity string `json:"severity" yaml:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
			if e.Column > 0 {
				fmt.Fprintf(&b, ":%d", e.Column)
			}
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// DescriptorError is returned when a descriptor cannot be parsed or fails validation.
type DescriptorError struct {
	File   string
	Errors []ValidationError
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid project descriptor %s: %s", e.File, strings.Join(msgs, "; "))
}

// StarlarkResult represents the result of Starlark script execution.
type StarlarkResult struct {
	// Output contains the exported global values.
	Output map[string]interface{} `json:"output"`

	// Printed collects the lines written with print().
	Printed []string `json:"printed,omitempty"`

	// ExecutionTime is how long the script took to execute.
	ExecutionTime time.Duration `json:"execution_time"`

	// Error contains any execution error.
	Error string `json:"error,omitempty"`
}
