package api

import (
	"errors"
	"fmt"
)

const (
	serverMessage  = "server error"
	networkMessage = "network error, check your connection"
)

// Error describes a failed backend call. Status is zero for network
// failures, where no response was received.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	Network bool
	Err     error

	notified bool
}

func (e *Error) Error() string {
	if e.Network {
		return fmt.Sprintf("execute request %s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Notified reports whether the request pipeline already showed the user a
// notice for err. Callers use it to avoid duplicate notices.
func Notified(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.notified
}

// ErrInvalidQuery is returned for parameters rejected before dispatch.
var ErrInvalidQuery = errors.New("invalid query")
