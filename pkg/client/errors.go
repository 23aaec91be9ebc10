package client

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericErrorMessage is shown when the server gave no usable message.
const GenericErrorMessage = "Something went wrong, please try again"

// ServerError is a response with a non-2xx status.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsValidation reports whether the server rejected the input.
func (e *ServerError) IsValidation() bool { return e.Status == http.StatusBadRequest }

// IsConflict reports whether the request collided with the current state,
// such as an order that is already shipped or settled.
func (e *ServerError) IsConflict() bool { return e.Status == http.StatusConflict }

// NetworkError means no response was received. The request may or may not
// have reached the server.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status of a ServerError, or 0.
func StatusOf(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
