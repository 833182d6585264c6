// Package console implements the operator-facing serial console: an
// ANSI cursor-home status refresh, a single-keystroke command
// dispatch table, and (beyond the original firmware) a typed
// extended command line for scripting a run. Layout and key table
// grounded on original_source/source/main.cpp's refresh `printf` and
// its `serial.read(ASYNC)` switch.
package console

import (
	"fmt"
	"io"

	"github.com/quadrature-io/tachomotor/tachomotor"
)

// Render writes one ANSI status frame for snap, with command echoed
// on the first line. The byte layout is pinned by render_test.go and
// must match original_source/source/main.cpp's printf format exactly
// (three-column fields, \033[K clear-to-EOL per line, \033[1;1H
// cursor-home at the top).
func Render(w io.Writer, command string, snap tachomotor.Snapshot) error {
	_, err := fmt.Fprintf(w,
		"\033[1;1H%s\033[K\r\n"+
			"position: %6d       speed: %5d      error: %6d        mode: %s  \033[K\r\n"+
			"  target: %6d      target: %5d      sigma: %6d       power: %5d  \033[K\r\n"+
			"   error: %6d       error: %5d      delta: %6d  \033[K\r\n"+
			" tripped: %6d  \033[K\r\n"+
			"\033[K\r\n"+
			"    posP: %8d    posI: %8d    posD: %8d  \033[K\r\n\033[K\r\n",
		command,
		snap.Position, snap.Speed, snap.Error, snap.Mode,
		snap.TargetPosition, snap.TargetSpeed, snap.Sigma, snap.Duty,
		snap.Position-snap.TargetPosition, snap.Speed-snap.TargetSpeed, snap.Delta,
		snap.TriggerPosition,
		snap.PositionP, snap.PositionI, snap.PositionD,
	)
	return err
}
