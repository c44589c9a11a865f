package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNoOperation  ErrorCode = "NO_OPERATION"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Document errors
	ErrEmptyPackages     ErrorCode = "EMPTY_PACKAGES"
	ErrMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"
	ErrDocumentRead      ErrorCode = "DOCUMENT_READ"
	ErrWrite             ErrorCode = "WRITE"

	// External process errors
	ErrCmd         ErrorCode = "CMD"
	ErrMissingTool ErrorCode = "MISSING_TOOL"

	// Metadata cache errors
	ErrCache    ErrorCode = "CACHE"
	ErrDownload ErrorCode = "DOWNLOAD"
)

// Detail keys shared by callers that inspect errors
const (
	DetailDir      = "dir"
	DetailPath     = "path"
	DetailCommand  = "command"
	DetailExitCode = "exit_code"
	DetailTarget   = "target"
)

// NpkgError represents a structured error with code and details
type NpkgError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *NpkgError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *NpkgError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *NpkgError) Is(target error) bool {
	var targetErr *NpkgError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new NpkgError with the given code and message
func New(code ErrorCode, message string) *NpkgError {
	return &NpkgError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new NpkgError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *NpkgError {
	return &NpkgError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a NpkgError
func Wrap(err error, code ErrorCode, message string) *NpkgError {
	if err == nil {
		return nil
	}
	return &NpkgError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *NpkgError {
	if err == nil {
		return nil
	}
	return &NpkgError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *NpkgError) WithDetail(key string, value interface{}) *NpkgError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error, or any error joined into it, has a specific code
func IsErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &NpkgError{Code: code})
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a NpkgError.
// For joined errors the first coded error wins.
func GetErrorCode(err error) ErrorCode {
	var npkgErr *NpkgError
	if errors.As(err, &npkgErr) {
		return npkgErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a NpkgError
func GetErrorDetails(err error) map[string]interface{} {
	var npkgErr *NpkgError
	if errors.As(err, &npkgErr) {
		return npkgErr.Details
	}
	return nil
}

// WriteError reports that neither a plain nor an elevated write could place
// a file inside dir.
func WriteError(dir string, cause error) *NpkgError {
	e := New(ErrWrite, fmt.Sprintf("failed to write file in %s", dir))
	e.Wrapped = cause
	return e.WithDetail(DetailDir, dir)
}

// CmdError reports an external command that could not be run or exited non-zero.
func CmdError(command string, exitCode int, cause error) *NpkgError {
	e := New(ErrCmd, fmt.Sprintf("command %q failed", command))
	e.Wrapped = cause
	return e.WithDetail(DetailCommand, command).WithDetail(DetailExitCode, exitCode)
}

// ExitCode maps an invocation result to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsErrorCode(err, ErrNoOperation):
		return -1
	default:
		return 1
	}
}

// Is, As and Join re-export the standard helpers so callers need only one
// errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)
