package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/afyamkononi/afyadmin/internal/api"
	cerrors "github.com/afyamkononi/afyadmin/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"ValidationError", ValidationError, 3},
		{"Cancelled", Cancelled, 4},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
		{"BackendError", BackendError, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	unauthorized := cerrors.Wrap(cerrors.ErrCodeAPIUnauthorized, "backend rejected the credentials",
		&api.Error{StatusCode: 401, Method: "GET", Path: "/doctors"})

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"backend 401", unauthorized, AuthError},
		{"wrapped 401", fmt.Errorf("listing doctors: %w", unauthorized), AuthError},
		{"not logged in", cerrors.NewNotLoggedInError(), AuthError},
		{"transport failure", cerrors.Wrap(cerrors.ErrCodeAPIRequest, "GET /doctors failed", errors.New("dial tcp")), NetworkError},
		{"rate limited", cerrors.New(cerrors.ErrCodeAPIRateLimited, "request not sent"), NetworkError},
		{"server error", cerrors.New(cerrors.ErrCodeAPIStatus, "backend returned an error"), BackendError},
		{"bad response", cerrors.New(cerrors.ErrCodeAPIDecode, "unexpected response shape"), BackendError},
		{"missing field", cerrors.NewRequiredFieldError("email"), ValidationError},
		{"invalid field", cerrors.New(cerrors.ErrCodeFormInvalid, "bad"), ValidationError},
		{"declined delete", cerrors.New(cerrors.ErrCodeResourceNotConfirmed, "deletion cancelled"), Cancelled},
		{"interrupted", context.Canceled, Cancelled},
		{"deadline", context.DeadlineExceeded, NetworkError},
		{"unknown entity", cerrors.NewUnknownKindError("nurses", []string{"doctors"}), UsageError},
		{"unsupported operation", cerrors.NewUnsupportedError("feedback", "delete"), UsageError},
		{"config", cerrors.NewConfigInvalidError("bad"), UsageError},
		{"cobra unknown flag", errors.New("unknown flag: --frobnicate"), UsageError},
		{"cobra args", errors.New("accepts 1 arg(s), received 0"), UsageError},
		{"connection refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), NetworkError},
		{"anything else", errors.New("boom"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{UsageError, "Usage error (invalid flags or arguments)"},
		{ValidationError, "Validation error"},
		{Cancelled, "Cancelled"},
		{AuthError, "Authentication error"},
		{NetworkError, "Network error"},
		{BackendError, "Backend error"},
		{99, "Unknown error"},
	}

	for _, tt := range tests {
		if got := GetExitCodeDescription(tt.code); got != tt.expected {
			t.Errorf("GetExitCodeDescription(%d) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}
