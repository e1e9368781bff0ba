// Package httputil provides HTTP response helpers and middleware.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error writes a JSON response shaped {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// ValidationError writes a 400 response carrying the first violated field.
// For validator.ValidationErrors the message names the field and the failed
// rule; for any other error the error text is used as-is.
func ValidationError(w http.ResponseWriter, err error) {
	message := err.Error()
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		message = first.Field() + ": failed " + first.Tag() + " validation"
	}
	Error(w, http.StatusBadRequest, message)
}
