package api

import (
	"encoding/json"
	"net/http"
)

// Codes carried in errorBody.
const (
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternal         = "internal_error"
)

// errorBody is the JSON shape of every error the server writes itself.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respond encodes body as JSON with the given status. Encoding errors are
// ignored; the client may already be gone.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, errorBody{Code: code, Message: message})
}
