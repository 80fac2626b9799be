package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeValidation, Message: "email is required"},
			want: "email is required",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeHydration, Message: "decode session slot", Cause: errors.New("unexpected EOF")},
			want: "decode session slot: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_UnwrapThroughFmt(t *testing.T) {
	cause := errors.New("slot unreachable")
	err := fmt.Errorf("initialize: %w", Hydration(cause, "read session slot"))

	if !IsHydration(err) {
		t.Fatalf("IsHydration(%v) = false, want true", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		is   func(error) bool
	}{
		{"validation", Validation("bad"), ErrCodeValidation, IsValidation},
		{"unauthenticated", Unauthenticated("rejected"), ErrCodeUnauthenticated, IsUnauthenticated},
		{"hydration", Hydration(nil, "garbage"), ErrCodeHydration, IsHydration},
		{"not found", NotFound("missing"), ErrCodeNotFound, IsNotFound},
		{"internal", Internalf("boom %d", 1), ErrCodeInternal, IsInternal},
		{"unsupported", Unsupported("no"), ErrCodeUnsupported, func(e error) bool { return IsAppError(e, ErrCodeUnsupported) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if !tt.is(tt.err) {
				t.Errorf("predicate returned false for %v", tt.err)
			}
			if GetCode(tt.err) != tt.code {
				t.Errorf("GetCode() = %v, want %v", GetCode(tt.err), tt.code)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("role", "role must be one of: client, admin, writer")
	if GetField(err) != "role" {
		t.Errorf("GetField() = %q, want role", GetField(err))
	}
	if GetField(errors.New("plain")) != "" {
		t.Errorf("GetField(plain) should be empty")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
	err := Wrapf(errors.New("dial tcp"), ErrCodeInternal, "write slot %s", "user")
	if err.Message != "write slot user" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{Unauthenticated("x"), http.StatusUnauthorized},
		{NotFound("x"), http.StatusNotFound},
		{Unsupported("x"), http.StatusNotImplemented},
		{&AppError{Code: ErrCodeTimeout}, http.StatusGatewayTimeout},
		{Internal("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
