// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm

package main

import (
	"fmt"
	"time"

	"github.com/chris-zen/mdp-bridge/board/nordic/nrf52840mdk"
	"github.com/chris-zen/mdp-bridge/esb"
	"github.com/chris-zen/mdp-bridge/protocol/p905"
	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

const channel = 78

var baseAddress = [4]byte{0x62, 0x6D, 0xFA, 0x5D}
var prefixes = [8]byte{0xC0, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7}

func main() {
	bd, ok := nrf52840mdk.Take()
	if !ok {
		panic("p905: board already taken")
	}

	fmt.Fprintf(bd.Diagnostic, "Initialising ...\n")

	bd.Leds.Blue.On()
	bd.Welcome.Start(1 * time.Second)
	bd.Welcome.Wait()
	bd.Leds.Blue.Off()

	drv := bd.Radio
	drv.EnablePower()
	drv.SetTxPower(radio.Pos8dBm)
	drv.SetMode(radio.Nrf2Mbit)
	drv.SetFrequency(radio.FromDefault2400MHzChannel(channel))
	drv.SetBaseAddresses(radio.FromSameFourBytes(baseAddress))
	drv.SetPrefixes(prefixes)
	drv.SetRxAddresses(0xFF)
	drv.SetCRC(radio.NewCrc16(0xFFFF, 0x11021))

	var rxBuf, txBuf [34]byte
	engine := esb.NewEngine(drv, radio.FixedPayloadLength(32), rxBuf[:], txBuf[:])

	proto := p905.NewProtocol(engine, bd.Diagnostic)

	for {
		proto.Run()
		if proto.State() == p905.Error {
			fmt.Fprintf(bd.Diagnostic, "fatal: %v\n", proto.LastError())
			bd.Leds.Red.On()
			return
		}
	}
}
