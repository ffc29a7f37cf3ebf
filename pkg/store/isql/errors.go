package isql

import (
	"errors"
	"fmt"
)

// ErrClientNotFound means the client executable or the database artifact is
// missing. There is no point retrying: surface it immediately.
var ErrClientNotFound = errors.New("sql client or database not found")

// ErrTimeout means the client subprocess exceeded its deadline and was
// terminated.
var ErrTimeout = errors.New("query execution timed out")

// ExecError is a non-zero exit from the client after the single fallback
// attempt. Stderr is kept for diagnostics only.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("sql client exited with code %d: %s", e.ExitCode, e.Stderr)
}
