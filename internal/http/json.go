package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
)

// ReadBody reads the request body up to limit bytes and handles errors.
// Returns false if there was an error (error response already written).
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
			return nil, false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return nil, false
	}
	return body, true
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
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
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

// WriteAppError maps an AppError code onto an HTTP status. The message is the
// AppError's own message without its cause chain.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	WriteError(w, ErrorParams{Code: statusForCode(code), ErrCode: string(code), Err: publicError(err)})
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func publicError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return errors.New(appErr.Message)
	}
	return errors.New(http.StatusText(http.StatusInternalServerError))
}
