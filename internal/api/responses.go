package api

// Shared response envelopes referenced by handler annotations.

type ErrorResponse struct {
	Error string `json:"error" example:"insufficient funds"`
}

type MessageResponse struct {
	Message string `json:"message" example:"mapping created"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
