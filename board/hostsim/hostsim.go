// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hostsim implements board.LED over real GPIO pins on a Linux
// single-board computer, via periph.io, and board.Countdown over a plain
// host timer. cmd/hostsim uses it to show the state of a software-loopback
// M01/P905 session without any radio or nRF52840 silicon, the same role
// the teacher pack's periph.io NRF24 adapter plays for development off
// real hardware.
package hostsim

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Init initializes the periph.io host drivers. Must be called once
// before NewLED.
func Init() error {
	_, err := host.Init()
	return err
}

// LED drives one GPIO line as an active-high LED, implementing
// board.LED.
type LED struct {
	pin gpio.PinIO
	on  bool
}

// NewLED looks up a GPIO pin by its periph.io name (e.g. "GPIO17") and
// configures it as a low output.
func NewLED(name string) (*LED, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("hostsim: no such pin %q", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("hostsim: %w", err)
	}
	return &LED{pin: pin}, nil
}

func (l *LED) On() {
	l.pin.Out(gpio.High)
	l.on = true
}

func (l *LED) Off() {
	l.pin.Out(gpio.Low)
	l.on = false
}

func (l *LED) Toggle() {
	if l.on {
		l.Off()
	} else {
		l.On()
	}
}

// Countdown implements board.Countdown with a plain host timer, for
// parity with the firmware's own welcome-blink sequence.
type Countdown struct {
	timer *time.Timer
}

func (c *Countdown) Start(d time.Duration) {
	c.timer = time.NewTimer(d)
}

func (c *Countdown) Wait() {
	if c.timer == nil {
		return
	}
	<-c.timer.C
}
