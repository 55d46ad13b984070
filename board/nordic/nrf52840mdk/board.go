// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm

// Package nrf52840mdk provides hardware bring-up, available only once per
// process via Take, for the makerdiary.com nRF52840-MDK board: the
// reference board the M01/P905 firmware and the sniffer run on.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs.
package nrf52840mdk

import (
	_ "unsafe"

	"github.com/chris-zen/mdp-bridge/board"
	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

// RadioBase is the nRF52840 RADIO peripheral's memory-mapped base address.
const RadioBase = 0x40001000

// Board exposes the subset of the nRF52840-MDK needed by the ESB firmware:
// the radio driver, the diagnostic UART, the three status LEDs and a
// welcome-sequence timer. It is a singleton, obtained exactly once via
// Take, mirroring the original board support crate's Option::take
// discipline (design note 9 "take-once board factory").
type Board struct {
	Radio     *radio.Driver
	Diagnostic board.DiagnosticWriter
	Leds      Leds
	Welcome   board.Countdown
}

var taken bool

// Take returns the Board exactly once per process. Subsequent calls
// return (nil, false).
func Take() (*Board, bool) {
	if taken {
		return nil, false
	}
	taken = true

	return &Board{
		Radio:      radio.NewDriver(RadioBase),
		Diagnostic: newUART(),
		Leds: Leds{
			Red:   newLED(23),
			Green: newLED(22),
			Blue:  newLED(24),
		},
		Welcome: newCountdown(),
	}, true
}

// Init performs the lower-level SoC initialization triggered early in
// runtime setup, following the teacher's auto-init-on-import convention.
//
//go:linkname Init runtime.hwinit
func Init() {}
