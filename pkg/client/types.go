package client

import "fmt"

// APIError represents an error response from the netquery API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netquery API error %d: %s", e.StatusCode, e.Message)
}

// errorResponse is the JSON structure for API errors.
type errorResponse struct {
	Error string `json:"error"`
}
