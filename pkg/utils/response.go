package utils

import (
	"encoding/json"
	"net/http"
	"os"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError sends an error response with a human-readable message.
// Internal detail only rides along outside production.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorDetail(w, status, message, nil)
}

// RespondErrorDetail attaches the underlying error when not in production.
func RespondErrorDetail(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil && os.Getenv("APP_ENV") != "production" {
		body["detail"] = err.Error()
	}
	RespondJSON(w, status, body)
}

// RespondSuccess sends a 200 with a success flag and message.
func RespondSuccess(w http.ResponseWriter, message string) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}
