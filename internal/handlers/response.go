package handlers

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"modelLoaded"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, kind Kind) {
	writeJSON(w, kind.Status(), errorResponse{Error: kind.Message()})
}
