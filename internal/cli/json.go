package cli

import (
	"io"

	"github.com/rileyhilliard/vigil/internal/output"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// writeJSON writes data in the shared success envelope.
func writeJSON(w io.Writer, data interface{}) error {
	return output.WriteJSONSuccess(w, data)
}

// writeJSONError writes err in the shared error envelope.
func writeJSONError(w io.Writer, err error) error {
	return output.WriteJSONFromError(w, err)
}
