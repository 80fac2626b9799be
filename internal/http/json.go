package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/assignpro/assignpro-web/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps an error onto its status and code. Internal causes are not echoed to the client.
func WriteAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	code := string(apperrors.GetCode(err))
	if code == "" {
		code = string(apperrors.ErrCodeInternal)
	}
	msg := publicMessage(err)
	body := map[string]string{"error": code, "message": msg}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, status, body)
}

// publicMessage returns the AppError message for client-facing codes and a generic text otherwise.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code == apperrors.ErrCodeInternal {
		return http.StatusText(http.StatusInternalServerError)
	}
	return appErr.Message
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
