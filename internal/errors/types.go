// Package errors provides the structured error type used by bundlekit.
//
// Errors carry a category, a machine-readable code and an optional cause.
// Wrapping always preserves the cause chain, so callers can use errors.Is
// and errors.As against the original filesystem, decode or process error.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeProcess    ErrorType = "process"
	ErrorTypeNetwork    ErrorType = "network"
)

// Common error codes.
const (
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeOverridesInvalid = "ERR_OVERRIDES_INVALID"
	ErrCodeCleanFailed      = "ERR_CLEAN_FAILED"
	ErrCodeCompilerCreate   = "ERR_COMPILER_CREATE"
	ErrCodeBundlerFailed    = "ERR_BUNDLER_FAILED"
	ErrCodeProcessStart     = "ERR_PROCESS_START"
	ErrCodeProcessExit      = "ERR_PROCESS_EXIT"
	ErrCodeServerFailed     = "ERR_SERVER_FAILED"
	ErrCodeCommandInjection = "ERR_COMMAND_INJECTION"
)

// BuildKitError is a structured error type with context.
type BuildKitError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *BuildKitError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "("+strings.Join(kv, " ")+")")
	}

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuildKitError) Unwrap() error {
	return e.Cause
}

// Is matches another BuildKitError with the same type and code.
func (e *BuildKitError) Is(target error) bool {
	var t *BuildKitError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuildKitError) WithContext(key string, value interface{}) *BuildKitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BuildKitError {
	return &BuildKitError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *BuildKitError {
	return &BuildKitError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BuildKitError {
	return &BuildKitError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *BuildKitError {
	return &BuildKitError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewProcessError creates an error for an external process that failed to
// start or exited unsuccessfully.
func NewProcessError(code, message string, cause error) *BuildKitError {
	return &BuildKitError{
		Type:    ErrorTypeProcess,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *BuildKitError {
	return &BuildKitError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

func isType(err error, t ErrorType) bool {
	var be *BuildKitError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool { return isType(err, ErrorTypeConfig) }

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool { return isType(err, ErrorTypeBuild) }

// IsProcessError checks if an error came from an external process.
func IsProcessError(err error) bool { return isType(err, ErrorTypeProcess) }

// IsValidationError checks if an error is a validation failure.
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BuildKitError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}
