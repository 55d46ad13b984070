// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm

package nrf52840mdk

import (
	"github.com/chris-zen/mdp-bridge/internal/reg"
)

// GPIO P0 register offsets, nRF52840 Product Specification 6.9 GPIO.
const (
	gpioBase = 0x50000000

	gpioOutSet = gpioBase + 0x508
	gpioOutClr = gpioBase + 0x50C
	gpioOut    = gpioBase + 0x504
	gpioCnf    = gpioBase + 0x700
)

// LED drives one active-low GPIO pin, mirroring the nRF52840-MDK's
// red/green/blue indicator wiring.
type LED struct {
	pin uint8
}

func newLED(pin uint8) *LED {
	reg.Write(gpioCnf+4*uint32(pin), 1) // output
	l := &LED{pin: pin}
	l.Off()
	return l
}

func (l *LED) On() { reg.Write(gpioOutClr, 1<<l.pin) }

func (l *LED) Off() { reg.Write(gpioOutSet, 1<<l.pin) }

func (l *LED) Toggle() {
	if reg.Get(gpioOut, int(l.pin), 1) == 0 {
		// pin driven low: LED currently on.
		l.Off()
	} else {
		l.On()
	}
}

// Leds groups the three indicator LEDs present on the nRF52840-MDK.
type Leds struct {
	Red   *LED
	Green *LED
	Blue  *LED
}
