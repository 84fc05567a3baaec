package api

// Response is the envelope for error bodies and simple acknowledgements.
type Response struct {
	Success   bool   `json:"success" example:"false"`
	Error     string `json:"error,omitempty" example:"not found"`
	RequestID string `json:"request_id,omitempty" example:"host/abc-000001"`
	Message   string `json:"message,omitempty"`
}
