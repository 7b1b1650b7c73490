package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// WriteError emits the broker's error shape: {"error": message} plus a
// fresh request_id for log correlation.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"error": message, "request_id": NewRequestID()})
}

// WriteActionError includes the offending action name alongside the error.
func WriteActionError(w http.ResponseWriter, status int, message, action string) {
	WriteJSON(w, status, map[string]any{"error": message, "action": action, "request_id": NewRequestID()})
}

// WriteRaw passes an upstream JSON body through unchanged.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
