package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/assignpro/assignpro-web/internal/errors"
)

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		field   string
	}{
		{
			name:    "validation keeps field",
			err:     apperrors.ValidationField("email", "email is required"),
			status:  http.StatusBadRequest,
			code:    "validation",
			message: "email is required",
			field:   "email",
		},
		{
			name:    "wrapped unauthenticated",
			err:     fmt.Errorf("verify credentials: %w", apperrors.Unauthenticated("invalid email or password")),
			status:  http.StatusUnauthorized,
			code:    "unauthenticated",
			message: "invalid email or password",
		},
		{
			name:    "plain error is hidden",
			err:     errors.New("dial tcp 10.0.0.1:6379: connection refused"),
			status:  http.StatusInternalServerError,
			code:    "internal",
			message: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			WriteAppError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.code, body["error"])
			assert.Equal(t, tt.message, body["message"])
			if tt.field == "" {
				assert.NotContains(t, body, "field")
			} else {
				assert.Equal(t, tt.field, body["field"])
			}
		})
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, wantsJSON(req))

	req.Header.Set("Accept", "text/html, application/json;q=0.9")
	assert.True(t, wantsJSON(req))

	post := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	post.Header.Set("Content-Type", "application/json; charset=utf-8")
	assert.True(t, wantsJSON(post))
}
