package api

// ErrorResponse is the body the backend returns for failed requests
type ErrorResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}
