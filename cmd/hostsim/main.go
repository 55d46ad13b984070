// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command hostsim runs one M01/P905 session entirely in software, with
// no radio.Driver or nRF52840 silicon involved, and reflects the M01
// side's session state on real GPIO LEDs via board/hostsim. It exists
// to exercise protocol/m01 and protocol/p905 against each other during
// development on a Linux SBC.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/chris-zen/mdp-bridge/board/hostsim"
	"github.com/chris-zen/mdp-bridge/esb"
	"github.com/chris-zen/mdp-bridge/protocol/m01"
	"github.com/chris-zen/mdp-bridge/protocol/p905"
)

// loopbackEngine connects one side of an in-process session to a peer
// loopbackEngine: StartTx on one side delivers directly into the
// peer's receive buffer, resolving on the very next Wait call. It
// satisfies both protocol/m01.Engine and protocol/p905.Engine, since
// both are structurally identical subsets of *esb.Engine.
type loopbackEngine struct {
	tx, rx      []byte
	peer        *loopbackEngine
	lastPacket  *esb.RxPacket // set by the peer's WaitTx, cleared once consumed
	rxDelivered *esb.RxPacket // the last packet WaitRx actually returned

	txPending bool
	rxPending bool
}

func newLoopbackPair() (*loopbackEngine, *loopbackEngine) {
	a := &loopbackEngine{tx: make([]byte, 34), rx: make([]byte, 34)}
	b := &loopbackEngine{tx: make([]byte, 34), rx: make([]byte, 34)}
	a.peer, b.peer = b, a
	return a, b
}

func (e *loopbackEngine) GetTxBuffer() []byte                  { return e.tx }
func (e *loopbackEngine) GetRxBuffer() []byte                  { return e.rx }
func (e *loopbackEngine) GetLastReceivedPacket() *esb.RxPacket { return e.rxDelivered }

func (e *loopbackEngine) StartRx(cfg esb.RxConfig) error {
	e.rxPending = true
	return nil
}

func (e *loopbackEngine) StartTx(cfg esb.TxConfig) error {
	e.txPending = true
	return nil
}

func (e *loopbackEngine) WaitTx() error {
	if !e.txPending {
		return esb.ErrReceiveNotStarted
	}
	e.txPending = false
	copy(e.peer.rx, e.tx)
	e.peer.lastPacket = &esb.RxPacket{Length: e.tx[0]}
	return nil
}

func (e *loopbackEngine) WaitRx() error {
	if !e.rxPending {
		return esb.ErrReceiveNotStarted
	}
	if e.lastPacket == nil {
		return esb.ErrWouldBlock
	}
	e.rxPending = false
	e.lastPacket, e.rxDelivered = nil, e.lastPacket
	return nil
}

func main() {
	if err := hostsim.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "hostsim: %v (continuing without LEDs)\n", err)
	}

	var pairedLED, errorLED *hostsim.LED
	if led, err := hostsim.NewLED("GPIO17"); err == nil {
		pairedLED = led
	}
	if led, err := hostsim.NewLED("GPIO27"); err == nil {
		errorLED = led
	}

	hostEngine, peerEngine := newLoopbackPair()
	host := m01.NewProtocol(hostEngine, os.Stdout)
	peer := p905.NewProtocol(peerEngine, os.Stdout)

	for i := 0; i < 64; i++ {
		host.Run()
		peer.Run()

		if host.State() == m01.Error {
			if errorLED != nil {
				errorLED.On()
			}
			fmt.Fprintf(os.Stderr, "host session failed: %v\n", host.LastError())
			return
		}
		if pairedLED != nil && host.State() == m01.WaitDataResponse {
			pairedLED.On()
		}

		time.Sleep(5 * time.Millisecond)
	}
}
