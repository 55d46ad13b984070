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
	"github.com/chris-zen/mdp-bridge/protocol/sniffer"
	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

func main() {
	bd, ok := nrf52840mdk.Take()
	if !ok {
		panic("sniffer: board already taken")
	}

	fmt.Fprintf(bd.Diagnostic, "Initialising ...\n")

	bd.Leds.Red.On()
	bd.Welcome.Start(1 * time.Second)
	bd.Welcome.Wait()
	bd.Leds.Red.Off()

	drv := bd.Radio
	drv.EnablePower()
	drv.SetTxPower(radio.Pos8dBm)
	drv.SetMode(radio.Nrf2Mbit)
	drv.SetFrequency(radio.FromDefault2400MHzChannel(sniffer.Channel))
	drv.SetBaseAddresses(radio.FromSameFourBytes(sniffer.BaseAddress))
	drv.SetPrefixes(sniffer.Prefixes)
	drv.SetRxAddresses(sniffer.RxAddressAll)
	drv.SetCRC(radio.NewCrc16(0xFFFF, 0x11021))

	var rxBuf, txBuf [34]byte
	engine := esb.NewEngine(drv, radio.FixedPayloadLength(32), rxBuf[:], txBuf[:])

	s := sniffer.NewSniffer(engine, bd.Diagnostic)

	for s.Run() {
		bd.Leds.Green.Toggle()
	}

	fmt.Fprintf(bd.Diagnostic, "fatal: %v\n", s.LastError())
	bd.Leds.Red.On()
}
