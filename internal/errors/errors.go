package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH-001"
	ErrCodeAuthSessionExpired     ErrorCode = "AUTH-002"
	ErrCodeAuthNotLoggedIn        ErrorCode = "AUTH-003"
	ErrCodeAuthTokenMalformed     ErrorCode = "AUTH-004"
	ErrCodeAuthStoreFailed        ErrorCode = "AUTH-005"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPIUnauthorized ErrorCode = "API-001"
	ErrCodeAPIRequest      ErrorCode = "API-002"
	ErrCodeAPIStatus       ErrorCode = "API-003"
	ErrCodeAPIDecode       ErrorCode = "API-004"
	ErrCodeAPIEncode       ErrorCode = "API-005"
	ErrCodeAPIRateLimited  ErrorCode = "API-006"

	// Resource errors (RES-001 to RES-099)
	ErrCodeResourceUnknownKind   ErrorCode = "RES-001"
	ErrCodeResourceUnsupported   ErrorCode = "RES-002"
	ErrCodeResourceNotFound      ErrorCode = "RES-003"
	ErrCodeResourceNotConfirmed  ErrorCode = "RES-004"
	ErrCodeResourceDetached      ErrorCode = "RES-005"
	ErrCodeResourceInvalidRecord ErrorCode = "RES-006"
	ErrCodeResourceStale         ErrorCode = "RES-007"

	// Form errors (FORM-001 to FORM-099)
	ErrCodeFormRequired ErrorCode = "FORM-001"
	ErrCodeFormInvalid  ErrorCode = "FORM-002"

	// Configuration errors (CFG-001 to CFG-099)
	ErrCodeConfigInvalid  ErrorCode = "CFG-001"
	ErrCodeConfigNotFound ErrorCode = "CFG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileReadFailed  ErrorCode = "IO-001"
	ErrCodeFileWriteFailed ErrorCode = "IO-002"
	ErrCodeDirectoryFailed ErrorCode = "IO-003"
)

// ConsoleError represents an enhanced error with code, suggestions, and documentation
type ConsoleError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *ConsoleError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ConsoleError) Unwrap() error {
	return e.Cause
}

// New creates a new ConsoleError
func New(code ErrorCode, message string) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new ConsoleError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *ConsoleError) WithSuggestion(suggestion string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *ConsoleError) WithSuggestions(suggestions ...string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *ConsoleError) WithDocs(url string) *ConsoleError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first ConsoleError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if ce, ok := err.(*ConsoleError); ok {
			return ce.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Common error constructors for frequently used errors

// NewNotLoggedInError creates an error for commands that need a session
func NewNotLoggedInError() *ConsoleError {
	return New(ErrCodeAuthNotLoggedIn, "not logged in").
		WithSuggestion("Run 'afyadmin login --email <email>' to start a session")
}

// NewSessionExpiredError creates an error for a session the backend rejected
func NewSessionExpiredError() *ConsoleError {
	return New(ErrCodeAuthSessionExpired, "session rejected by the backend, you have been logged out").
		WithSuggestion("Run 'afyadmin login' again")
}

// NewUnknownKindError creates an unknown entity kind error
func NewUnknownKindError(kind string, known []string) *ConsoleError {
	return New(ErrCodeResourceUnknownKind, fmt.Sprintf("unknown entity: %s", kind)).
		WithSuggestion(fmt.Sprintf("Use one of: %s", strings.Join(known, ", ")))
}

// NewUnsupportedError creates an error for an operation an entity does not offer
func NewUnsupportedError(kind, op string) *ConsoleError {
	return New(ErrCodeResourceUnsupported, fmt.Sprintf("%s cannot be %s from the console", kind, op))
}

// NewRequiredFieldError creates a required form field error
func NewRequiredFieldError(field string) *ConsoleError {
	return New(ErrCodeFormRequired, fmt.Sprintf("%s is required", field)).
		WithSuggestion("Provide a non-empty value")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *ConsoleError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'afyadmin config show' to inspect the effective configuration").
		WithSuggestion("Set AFYADMIN_API_BASE_URL or pass --base-url")
}

// NewFileReadError creates a file read error
func NewFileReadError(path string, cause error) *ConsoleError {
	return Wrap(ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", path), cause).
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileWriteError creates a file write error
func NewFileWriteError(path string, cause error) *ConsoleError {
	return Wrap(ErrCodeFileWriteFailed, fmt.Sprintf("failed to write %s", path), cause).
		WithSuggestion("Check that the directory is writable")
}
