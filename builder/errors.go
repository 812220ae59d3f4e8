package builder

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/yamlcfg"
)

// Error is the builder's diagnostic: a one-line `file:line:col: reason`
// message, the same shape yamlcfg uses for parse and accessor errors.
type Error struct {
	Location yamlcfg.Location
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Reason)
}
