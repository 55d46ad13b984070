// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package board describes the minimal collaborator surface the engine and
// protocol clients need from whatever board they run on: a diagnostic
// sink and a coarse welcome-sequence timer. Concrete boards (see
// board/nordic/nrf52840mdk) implement these against real silicon;
// board/hostsim implements them on a Linux host for cmd/hostsim.
package board

import (
	"io"
	"time"
)

// DiagnosticWriter is the byte-oriented serial sink the §6.4 trace format
// is written to. Any io.Writer qualifies; on real hardware this is
// usually a UARTE wrapped to satisfy the interface.
type DiagnosticWriter = io.Writer

// Countdown is a coarse-grained, one-shot timer used for the welcome LED
// sequence. It is intentionally minimal: Start arms the timer for d,
// Wait blocks until it elapses.
type Countdown interface {
	Start(d time.Duration)
	Wait()
}

// LED is an on/off/toggle indicator.
type LED interface {
	On()
	Off()
	Toggle()
}
