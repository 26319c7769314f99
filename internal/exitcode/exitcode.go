package exitcode

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ValidationError indicates a form that could not be submitted
	ValidationError = 3

	// Cancelled indicates the operator declined a confirmation or interrupted
	Cancelled = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// BackendError indicates the backend answered with a failure status
	BackendError = 7
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	Exit(code)
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, api.ErrUnauthorized) {
		return AuthError
	}
	if stderrors.Is(err, context.Canceled) {
		return Cancelled
	}

	switch code := string(errors.CodeOf(err)); {
	case strings.HasPrefix(code, "AUTH-"):
		return AuthError
	case code == string(errors.ErrCodeAPIRequest), code == string(errors.ErrCodeAPIRateLimited):
		return NetworkError
	case code == string(errors.ErrCodeAPIStatus), code == string(errors.ErrCodeAPIDecode):
		return BackendError
	case strings.HasPrefix(code, "FORM-"):
		return ValidationError
	case code == string(errors.ErrCodeResourceNotConfirmed):
		return Cancelled
	case code == string(errors.ErrCodeResourceUnknownKind), code == string(errors.ErrCodeResourceUnsupported):
		return UsageError
	case strings.HasPrefix(code, "CFG-"):
		return UsageError
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}

	errMsg := strings.ToLower(err.Error())

	// Usage errors reported by cobra carry no code
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts ") || strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}

	// Network errors
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NetworkError
	}

	// Default to general error
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ValidationError:
		return "Validation error"
	case Cancelled:
		return "Cancelled"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case BackendError:
		return "Backend error"
	default:
		return "Unknown error"
	}
}
