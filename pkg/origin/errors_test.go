package origin

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:       "decode error should not retry",
			errorClass: ErrorClassDecode,
			expected:   false,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &Error{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "origin network error (status 0): request failed: connection refused",
		},
		{
			name: "error without wrapped error",
			err: &Error{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "origin client error (status 404): 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	err := &Error{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if err.Unwrap() != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), wrappedErr)
	}
	if !errors.Is(err, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	if (&Error{StatusCode: 404}).Unwrap() != nil {
		t.Error("Unwrap() of error without cause should be nil")
	}
}

func TestStatusCode(t *testing.T) {
	notFound := &Error{StatusCode: 404, ErrorClass: ErrorClassClient}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"direct", notFound, 404},
		{"wrapped", fmt.Errorf("fetch photo: %w", notFound), 404},
		{"retry exhausted", fmt.Errorf("%w after 3 attempts: %w", ErrRetryExhausted, &Error{StatusCode: 503}), 503},
		{"plain error", errors.New("boom"), 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
