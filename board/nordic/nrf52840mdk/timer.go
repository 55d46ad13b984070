// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm

package nrf52840mdk

import (
	"time"

	"github.com/chris-zen/mdp-bridge/internal/reg"
)

// TIMER0 register offsets, nRF52840 Product Specification 6.30 TIMER, run
// in 1MHz counter mode so one tick equals one microsecond.
const (
	timerBase = 0x40008000

	timerTaskStart   = timerBase + 0x000
	timerTaskStop    = timerBase + 0x004
	timerTaskClear   = timerBase + 0x00C
	timerEventCmp0   = timerBase + 0x140
	timerBitMode     = timerBase + 0x508
	timerPrescaler   = timerBase + 0x510
	timerCC0         = timerBase + 0x540
	timerShortsCmp0Clear = timerBase + 0x200
)

// Countdown implements board.Countdown over TIMER0, busy-waiting for the
// compare event: a coarse-grained timer adequate for a welcome blink
// sequence, not for the engine's own polling (which never blocks).
type Countdown struct{}

func newCountdown() *Countdown {
	reg.Write(timerBitMode, 3) // 32-bit
	reg.Write(timerPrescaler, 4) // 16MHz / 2^4 = 1MHz
	reg.Write(timerShortsCmp0Clear, 1)
	return &Countdown{}
}

func (c *Countdown) Start(d time.Duration) {
	reg.Write(timerTaskClear, 1)
	reg.Write(timerCC0, uint32(d.Microseconds()))
	reg.Write(timerEventCmp0, 0)
	reg.Write(timerTaskStart, 1)
}

func (c *Countdown) Wait() {
	reg.Wait(timerEventCmp0, 0, 1, 1)
	reg.Write(timerTaskStop, 1)
}
