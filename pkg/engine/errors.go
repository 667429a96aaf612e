package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an orchestration failure.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates a missing or invalid user-supplied setting.
	// Examples: unset output package, unknown shared source set name.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassManifest indicates an unreadable or malformed platform manifest,
	// or a manifest without a package identity.
	ErrorClassManifest ErrorClass = "manifest"

	// ErrorClassDiscovery indicates the host build does not expose a target the
	// orchestration requires.
	ErrorClassDiscovery ErrorClass = "discovery"

	// ErrorClassInternal indicates misuse of the orchestrator or a host
	// registration failure.
	ErrorClassInternal ErrorClass = "internal"
)

// Error codes.
const (
	ErrCodeMissingOutputPackage    = "MISSING_OUTPUT_PACKAGE"
	ErrCodeUnknownSourceSet        = "UNKNOWN_SOURCE_SET"
	ErrCodeMissingManifest         = "MISSING_MANIFEST"
	ErrCodeMissingPackageIdentity  = "MISSING_PACKAGE_IDENTITY"
	ErrCodeMissingMultiplatform    = "MISSING_MULTIPLATFORM"
	ErrCodeMissingMainCompilation  = "MISSING_MAIN_COMPILATION"
	ErrCodeMissingAndroidSourceSet = "MISSING_ANDROID_SOURCE_SET"
	ErrCodeInvalidTransition       = "INVALID_TRANSITION"
	ErrCodeRegistrationFailed      = "REGISTRATION_FAILED"
	ErrCodeUnsupportedFamily       = "UNSUPPORTED_FAMILY"
	ErrCodeBuildScriptFailed       = "BUILD_SCRIPT_FAILED"
	ErrCodeInvalidSetting          = "INVALID_SETTING"
)

// GenerationError represents a classified orchestration error with context.
type GenerationError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code identifies the failing precondition.
	Code string `json:"code,omitempty"`

	// Target is the build target or source set involved, if any.
	Target string `json:"target,omitempty"`

	// Path is the file involved, if any.
	Path string `json:"path,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Target != "" {
		msg += fmt.Sprintf(" (target=%s)", e.Target)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches errors of the same class and code, so the sentinel values below
// can be used with errors.Is.
func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithTarget adds target context to an error.
func (e *GenerationError) WithTarget(target string) *GenerationError {
	e.Target = target
	return e
}

// WithPath adds file context to an error.
func (e *GenerationError) WithPath(path string) *GenerationError {
	e.Path = path
	return e
}

// WithCode adds an error code to an error.
func (e *GenerationError) WithCode(code string) *GenerationError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *GenerationError) WithDetail(key string, value interface{}) *GenerationError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, err error) *GenerationError {
	return &GenerationError{Class: ErrorClassConfiguration, Message: message, Err: err}
}

// NewManifestError creates a new manifest error.
func NewManifestError(message string, err error) *GenerationError {
	return &GenerationError{Class: ErrorClassManifest, Message: message, Err: err}
}

// NewDiscoveryError creates a new discovery error.
func NewDiscoveryError(message string, err error) *GenerationError {
	return &GenerationError{Class: ErrorClassDiscovery, Message: message, Err: err}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *GenerationError {
	return &GenerationError{Class: ErrorClassInternal, Message: message, Err: err}
}

// Sentinels for errors.Is. They carry only a class and a code.
var (
	ErrMissingOutputPackage   = &GenerationError{Class: ErrorClassConfiguration, Code: ErrCodeMissingOutputPackage}
	ErrUnknownSourceSet       = &GenerationError{Class: ErrorClassConfiguration, Code: ErrCodeUnknownSourceSet}
	ErrMissingManifest        = &GenerationError{Class: ErrorClassManifest, Code: ErrCodeMissingManifest}
	ErrMissingPackageIdentity = &GenerationError{Class: ErrorClassManifest, Code: ErrCodeMissingPackageIdentity}
	ErrMissingMainCompilation = &GenerationError{Class: ErrorClassDiscovery, Code: ErrCodeMissingMainCompilation}
	ErrInvalidTransition      = &GenerationError{Class: ErrorClassInternal, Code: ErrCodeInvalidTransition}
)

// MissingOutputPackageError reports an unset output package setting.
func MissingOutputPackageError() *GenerationError {
	return NewConfigurationError(
		"multiplatformResources.package is not set; configure the package of the generated MR class", nil).
		WithCode(ErrCodeMissingOutputPackage).
		WithDetail("setting", "package")
}

// UnknownSourceSetError reports a shared source set name that the host does not declare.
func UnknownSourceSetError(name string) *GenerationError {
	return NewConfigurationError(
		fmt.Sprintf("source set %q configured by multiplatformResources.sourceSetName does not exist", name), nil).
		WithCode(ErrCodeUnknownSourceSet).
		WithTarget(name).
		WithDetail("setting", "sourceSetName")
}

// MissingManifestError reports a manifest that cannot be read or parsed.
func MissingManifestError(path string, err error) *GenerationError {
	return NewManifestError("android manifest is missing or is not well-formed XML", err).
		WithCode(ErrCodeMissingManifest).
		WithPath(path)
}

// MissingPackageIdentityError reports a manifest element without a package attribute.
func MissingPackageIdentityError(path string) *GenerationError {
	return NewManifestError("android manifest element has no \"package\" attribute", nil).
		WithCode(ErrCodeMissingPackageIdentity).
		WithPath(path).
		WithDetail("attribute", "package")
}

// IsConfigurationError returns true if the error is classified as a configuration error.
func IsConfigurationError(err error) bool {
	return hasClass(err, ErrorClassConfiguration)
}

// IsManifestError returns true if the error is classified as a manifest error.
func IsManifestError(err error) bool {
	return hasClass(err, ErrorClassManifest)
}

// IsDiscoveryError returns true if the error is classified as a discovery error.
func IsDiscoveryError(err error) bool {
	return hasClass(err, ErrorClassDiscovery)
}

// IsInternalError returns true if the error is classified as an internal error.
func IsInternalError(err error) bool {
	return hasClass(err, ErrorClassInternal)
}

// ClassOf returns the class and code of a classified error.
func ClassOf(err error) (ErrorClass, string, bool) {
	var e *GenerationError
	if errors.As(err, &e) {
		return e.Class, e.Code, true
	}
	return "", "", false
}

func hasClass(err error, class ErrorClass) bool {
	var e *GenerationError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}
