package middleware

import (
	"encoding/json"
	"net/http"
)

// errorResponse writes {"error": message}. 401 responses also carry the Bearer challenge.
func errorResponse(w http.ResponseWriter, status int, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="ride-dispatch"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
