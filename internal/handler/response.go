package handler

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the envelope for the demo, test and health endpoints. The
// webhook endpoint keeps its own minimal shape (see webhookResponse).
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func successResponse(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func errorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, apiResponse{
		Success: false,
		Message: message,
	})
}
