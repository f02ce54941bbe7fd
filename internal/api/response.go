package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// writeJSON encodes body as the response, matching the untagged
// success-or-bare-string-error shape the API has always returned.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("api: encoding response: %v", err)
	}
}

// writeError sends a bare JSON string as the error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message)
}
