package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeAPIStatus, "test error message")

	if err.Code != ErrCodeAPIStatus {
		t.Errorf("expected code %s, got %s", ErrCodeAPIStatus, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeFileReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFileReadFailed, err.Code)
	}

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConsoleError
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeConfigInvalid, "invalid config"),
			wantCode: "CFG-001",
			wantMsg:  "invalid config",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeAPIRequest, "request failed", fmt.Errorf("connection refused")),
			wantCode: "API-002",
			wantMsg:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestions(t *testing.T) {
	err := New(ErrCodeAuthInvalidCredentials, "bad login").
		WithSuggestions("Suggestion 1", "Suggestion 2").
		WithDocs("https://example.com/docs")

	if len(err.Suggestions) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	for _, suggestion := range err.Suggestions {
		if !strings.Contains(errStr, suggestion) {
			t.Errorf("error string should contain suggestion: %s", suggestion)
		}
	}
	if !strings.Contains(errStr, "Documentation: https://example.com/docs") {
		t.Errorf("error string should contain docs URL, got: %s", errStr)
	}
}

func TestCodeOf(t *testing.T) {
	inner := New(ErrCodeAPIUnauthorized, "unauthorized")
	wrapped := fmt.Errorf("load doctors: %w", inner)

	if got := CodeOf(wrapped); got != ErrCodeAPIUnauthorized {
		t.Errorf("expected %s, got %q", ErrCodeAPIUnauthorized, got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("expected empty code, got %q", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("expected empty code for nil, got %q", got)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConsoleError
		wantCode ErrorCode
		contains string
	}{
		{"not logged in", NewNotLoggedInError(), ErrCodeAuthNotLoggedIn, "afyadmin login"},
		{"session expired", NewSessionExpiredError(), ErrCodeAuthSessionExpired, "logged out"},
		{"unknown kind", NewUnknownKindError("nurses", []string{"doctors", "patients"}), ErrCodeResourceUnknownKind, "doctors, patients"},
		{"unsupported", NewUnsupportedError("feedback", "deleted"), ErrCodeResourceUnsupported, "feedback cannot be deleted"},
		{"required", NewRequiredFieldError("Email"), ErrCodeFormRequired, "Email is required"},
		{"config", NewConfigInvalidError("base URL is empty"), ErrCodeConfigInvalid, "AFYADMIN_API_BASE_URL"},
		{"read", NewFileReadError("/tmp/x", fmt.Errorf("boom")), ErrCodeFileReadFailed, "/tmp/x"},
		{"write", NewFileWriteError("/tmp/y", fmt.Errorf("boom")), ErrCodeFileWriteFailed, "/tmp/y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, tt.err.Error())
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeAuthInvalidCredentials,
		ErrCodeAuthSessionExpired,
		ErrCodeAuthNotLoggedIn,
		ErrCodeAuthTokenMalformed,
		ErrCodeAuthStoreFailed,
		ErrCodeAPIUnauthorized,
		ErrCodeAPIRequest,
		ErrCodeAPIStatus,
		ErrCodeAPIDecode,
		ErrCodeAPIEncode,
		ErrCodeAPIRateLimited,
		ErrCodeResourceUnknownKind,
		ErrCodeResourceUnsupported,
		ErrCodeResourceNotFound,
		ErrCodeResourceNotConfirmed,
		ErrCodeResourceDetached,
		ErrCodeResourceInvalidRecord,
		ErrCodeResourceStale,
		ErrCodeFormRequired,
		ErrCodeFormInvalid,
		ErrCodeConfigInvalid,
		ErrCodeConfigNotFound,
		ErrCodeFileReadFailed,
		ErrCodeFileWriteFailed,
		ErrCodeDirectoryFailed,
	}

	for _, code := range codes {
		parts := strings.Split(string(code), "-")
		if len(parts) != 2 {
			t.Errorf("error code %s should have format CATEGORY-NNN", code)
			continue
		}
		if len(parts[1]) != 3 {
			t.Errorf("error code %s should have 3-digit number", code)
		}
	}
}
