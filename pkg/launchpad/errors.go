package launchpad

import (
	"errors"
	"fmt"
	"net/http"
)

// BadRequestError is returned when Launchpad rejects an operation with HTTP 400.
// Message carries the response body, which is plain text describing the rejection.
type BadRequestError struct {
	Operation string
	Message   string
}

// Error implements the error interface.
func (e *BadRequestError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("launchpad rejected %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("launchpad rejected request: %s", e.Message)
}

// APIError is any other non-success response from the web service.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("launchpad %s failed: %d %s: %s",
		e.Operation, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsNotFound returns true if err is a 404 from the web service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsBadRequest returns true if err is a structured 400 rejection.
func IsBadRequest(err error) bool {
	var badReq *BadRequestError
	return errors.As(err, &badReq)
}
