package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/resgen/pkg/telemetry"
)

var kotlinPackagePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ErrNoDescriptor is returned when a directory holds no project descriptor.
var ErrNoDescriptor = errors.New("no project descriptor found")

// Loader loads and validates project descriptors written in CUE or YAML.
type Loader struct {
	ctx       *cue.Context
	schemas   *SchemaRegistry
	validator *validator.Validate
	logger    *telemetry.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger used by the loader.
func WithLoaderLogger(logger *telemetry.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger.NewComponentLogger("config")
		}
	}
}

// NewLoader creates a new descriptor loader.
func NewLoader(opts ...LoaderOption) *Loader {
	ctx := cuecontext.New()
	l := &Loader{
		ctx:       ctx,
		schemas:   newSchemaRegistry(ctx),
		validator: newValidator(),
		logger:    telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field paths with descriptor names instead of Go names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("kotlin_package", func(fl validator.FieldLevel) bool {
		return kotlinPackagePattern.MatchString(fl.Field().String())
	})

	return v
}

// Schemas returns the schema registry used for validation.
func (l *Loader) Schemas() *SchemaRegistry {
	return l.schemas
}

// Load loads the descriptor at path. A directory is searched for resgen.cue,
// resgen.yaml and resgen.yml in that order; a directory holding only other
// CUE files is loaded as a CUE package.
func (l *Loader) Load(ctx context.Context, path string) (*Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source %s: %w", path, err)
	}

	if !info.IsDir() {
		return l.LoadFile(abs)
	}

	for _, name := range []string{CUEFileName, YAMLFileName, YMLFileName} {
		candidate := filepath.Join(abs, name)
		if _, err := os.Stat(candidate); err == nil {
			return l.LoadFile(candidate)
		}
	}

	matches, err := filepath.Glob(filepath.Join(abs, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("failed to list CUE files: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDescriptor, abs)
	}

	val, files, errs := l.loadDirectory(abs)
	if len(errs) > 0 {
		return nil, &DescriptorError{File: abs, Errors: errs}
	}
	return l.finish(abs, files, FormatCUE, val)
}

// LoadFile loads a single descriptor file; the format follows the extension.
func (l *Loader) LoadFile(path string) (*Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return l.ParseCUE(filepath.Dir(path), path, content)
	case ".yaml", ".yml":
		return l.ParseYAML(filepath.Dir(path), path, content)
	default:
		return nil, fmt.Errorf("unsupported descriptor format: %s", path)
	}
}

// ParseCUE parses CUE descriptor content for the project in dir.
func (l *Loader) ParseCUE(dir, filename string, content []byte) (*Descriptor, error) {
	val := l.ctx.CompileBytes(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, &DescriptorError{File: filename, Errors: l.convertCUEErrors(err)}
	}
	return l.finish(dir, []string{filename}, FormatCUE, val)
}

// ParseYAML parses YAML descriptor content for the project in dir. Unknown
// fields are rejected.
func (l *Loader) ParseYAML(dir, filename string, content []byte) (*Descriptor, error) {
	var spec ProjectSpec

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, &DescriptorError{File: filename, Errors: convertYAMLError(filename, err)}
	}

	if err := l.schemas.ValidateAgainstSchema(context.Background(), ProjectSchema, spec); err != nil {
		return nil, &DescriptorError{File: filename, Errors: l.convertCUEErrors(err)}
	}

	return l.validate(dir, []string{filename}, FormatYAML, spec)
}

// finish unifies a CUE value with the project schema, decodes and validates it.
func (l *Loader) finish(dir string, files []string, format string, val cue.Value) (*Descriptor, error) {
	file := strings.Join(files, ",")

	unified, err := l.schemas.Unify(ProjectSchema, val)
	if err != nil {
		return nil, err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &DescriptorError{File: file, Errors: l.convertCUEErrors(err)}
	}

	var spec ProjectSpec
	if err := unified.Decode(&spec); err != nil {
		return nil, &DescriptorError{File: file, Errors: []ValidationError{{
			File:     file,
			Message:  fmt.Sprintf("failed to decode project: %v", err),
			Severity: "error",
		}}}
	}

	return l.validate(dir, files, format, spec)
}

func (l *Loader) validate(dir string, files []string, format string, spec ProjectSpec) (*Descriptor, error) {
	file := strings.Join(files, ",")

	if err := l.validator.Struct(spec); err != nil {
		return nil, &DescriptorError{File: file, Errors: convertValidatorErrors(file, err)}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}

	l.logger.WithFields(map[string]interface{}{
		"file":    file,
		"format":  format,
		"project": spec.Name,
		"targets": len(spec.Targets),
	}).Debug("Loaded project descriptor")

	return &Descriptor{
		Spec:        spec,
		Dir:         abs,
		SourceFiles: files,
		Format:      format,
		LoadedAt:    time.Now(),
	}, nil
}

// loadDirectory loads a directory as a CUE package.
func (l *Loader) loadDirectory(dir string) (cue.Value, []string, []ValidationError) {
	buildInstances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(buildInstances) == 0 {
		return cue.Value{}, nil, []ValidationError{{
			File:     dir,
			Message:  "no CUE files found",
			Severity: "error",
		}}
	}

	inst := buildInstances[0]
	if inst.Err != nil {
		return cue.Value{}, nil, l.convertCUEErrors(inst.Err)
	}

	val := l.ctx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return cue.Value{}, nil, l.convertCUEErrors(err)
	}

	var files []string
	for _, file := range inst.Files {
		if file.Filename != "" {
			files = append(files, file.Filename)
		}
	}

	return val, files, nil
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func (l *Loader) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range cueerrors.Errors(err) {
		var file string
		var line, column int

		if pos := cueerrors.Positions(e); len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		format, args := e.Msg()
		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Path:     strings.Join(e.Path(), "."),
			Message:  fmt.Sprintf(format, args...),
			Severity: "error",
		})
	}

	if len(validationErrors) == 0 {
		validationErrors = append(validationErrors, ValidationError{
			Message:  err.Error(),
			Severity: "error",
		})
	}

	return validationErrors
}

func convertYAMLError(file string, err error) []ValidationError {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		out := make([]ValidationError, 0, len(typeErr.Errors))
		for _, msg := range typeErr.Errors {
			out = append(out, ValidationError{File: file, Message: msg, Severity: "error"})
		}
		return out
	}
	return []ValidationError{{File: file, Message: err.Error(), Severity: "error"}}
}

func convertValidatorErrors(file string, err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{File: file, Message: err.Error(), Severity: "error"}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Drop the root struct name from the namespace.
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}

		msg := fmt.Sprintf("failed on the %q rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the %q rule (%s)", fe.Tag(), fe.Param())
		}

		out = append(out, ValidationError{
			File:     file,
			Path:     path,
			Message:  msg,
			Severity: "error",
		})
	}
	return out
}
