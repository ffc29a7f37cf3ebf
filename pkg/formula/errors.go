package formula

import (
	"fmt"
	"strings"
)

// CircularVariableError reports a reference cycle between variable
// definitions. A cycle is a configuration bug, so resolution fails loudly
// instead of silently handing out defaults.
type CircularVariableError struct {
	Names []string
}

func (e *CircularVariableError) Error() string {
	return fmt.Sprintf("circular variable reference: %s", strings.Join(e.Names, " -> "))
}
