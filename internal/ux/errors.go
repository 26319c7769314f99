package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a recovery suggestion to err when it has none.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var ce *errors.ConsoleError
	if stderrors.As(err, &ce) && len(ce.Suggestions) > 0 {
		return err
	}

	if stderrors.Is(err, api.ErrUnauthorized) {
		return NewErrorWithSuggestion(err, "Your session has ended. Run 'afyadmin login' to sign in again")
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeAuthNotLoggedIn, errors.ErrCodeAuthSessionExpired:
		return NewErrorWithSuggestion(err, "Run 'afyadmin login' first")
	case errors.ErrCodeResourceUnknownKind:
		return NewErrorWithSuggestion(err, "Run 'afyadmin --help' to list the managed entities")
	case errors.ErrCodeFormRequired:
		return NewErrorWithSuggestion(err, "Pass every required field with --set name=value")
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigNotFound:
		return NewErrorWithSuggestion(err, "Inspect the effective settings with 'afyadmin config show'")
	}

	if status := api.StatusCode(err); status >= 500 {
		return NewErrorWithSuggestion(err, "The backend failed; try again later")
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NewErrorWithSuggestion(err, "Check your network connection and the api.base_url setting")
	}
	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err, "Check the permissions of ~/.afyadmin")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
