package crawler

import "fmt"

// ErrIndexNotFound is returned by QueryIndex when name names no registered
// rule's index.
type ErrIndexNotFound struct {
	Name string
}

func (e *ErrIndexNotFound) Error() string {
	return fmt.Sprintf("crawler: index %q not found", e.Name)
}
