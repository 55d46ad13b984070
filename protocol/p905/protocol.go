// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package p905

import (
	"errors"
	"fmt"
	"io"

	"github.com/chris-zen/mdp-bridge/esb"
)

// Engine is the subset of *esb.Engine this protocol client depends on,
// mirroring protocol/m01's Engine interface.
type Engine interface {
	GetTxBuffer() []byte
	GetRxBuffer() []byte
	GetLastReceivedPacket() *esb.RxPacket
	StartRx(cfg esb.RxConfig) error
	WaitRx() error
	StartTx(cfg esb.TxConfig) error
	WaitTx() error
}

// State is the responder's session state.
type State int

const (
	Unpaired State = iota
	WaitPairingRequest
	SendPairingResponse
	WaitPairingResponseSent
	Paired
	WaitRequest
	Error
)

func (s State) String() string {
	switch s {
	case Unpaired:
		return "Unpaired"
	case WaitPairingRequest:
		return "WaitPairingRequest"
	case SendPairingResponse:
		return "SendPairingResponse"
	case WaitPairingResponseSent:
		return "WaitPairingResponseSent"
	case Paired:
		return "Paired"
	case WaitRequest:
		return "WaitRequest"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Protocol drives one P905 session over an Engine (spec.md 6.3).
type Protocol struct {
	engine Engine
	diag   io.Writer

	state     State
	lastState State
	lastErr   error

	rxCfg esb.RxConfig
	txCfg esb.TxConfig
}

// NewProtocol constructs a Protocol in the Unpaired state.
func NewProtocol(engine Engine, diag io.Writer) *Protocol {
	return &Protocol{
		engine: engine,
		diag:   diag,
		state:  Unpaired,
		rxCfg:  esb.NewRxConfig(),
		txCfg:  esb.NewTxConfig(),
	}
}

func (p *Protocol) State() State     { return p.state }
func (p *Protocol) LastError() error { return p.lastErr }

// Run advances the session by one step.
func (p *Protocol) Run() {
	defer func() { p.lastState = p.state }()

	switch p.state {
	case Unpaired:
		fmt.Fprintf(p.diag, "%s: listening for pairing request ...\n", p.state)
		if err := p.engine.StartRx(p.rxCfg); err != nil {
			p.fail(err)
			return
		}
		p.state = WaitPairingRequest

	case WaitPairingRequest:
		if !p.awaitRx() {
			return
		}
		fmt.Fprintf(p.diag, "%s: received pairing request ...\n", p.state)
		p.printReceivedPacket()

		buf := p.engine.GetRxBuffer()
		if commandCode(buf) == pairingRequestCode {
			p.state = SendPairingResponse
		} else {
			// stay in WaitPairingRequest and re-arm the receive, matching
			// the original's "ignore and keep listening" behavior for
			// stray frames.
			if err := p.engine.StartRx(p.rxCfg); err != nil {
				p.fail(err)
				return
			}
		}

	case SendPairingResponse:
		fmt.Fprintf(p.diag, "%s: sending pairing response ...\n", p.state)
		buf := p.engine.GetTxBuffer()
		copy(buf, pairingResponse[:])
		if err := p.engine.StartTx(p.txCfg); err != nil {
			p.fail(err)
			return
		}
		p.state = WaitPairingResponseSent

	case WaitPairingResponseSent:
		if p.awaitTx() {
			fmt.Fprintf(p.diag, "%s: pairing response sent ...\n", p.state)
			p.state = Paired
		}

	case Paired:
		if p.lastState != WaitRequest {
			fmt.Fprintf(p.diag, "%s: listening for requests ...\n", p.state)
		}
		if err := p.engine.StartRx(p.rxCfg); err != nil {
			p.fail(err)
			return
		}
		p.state = WaitRequest

	case WaitRequest:
		if !p.awaitRx() {
			return
		}

		buf := p.engine.GetRxBuffer()
		if commandCode(buf) == pairingRequestCode {
			p.state = SendPairingResponse
		} else {
			p.printReceivedPacket()
			fmt.Fprintf(p.diag, "unknown request\n")
			p.state = Paired
		}

	case Error:
		// sticky: remains until the caller constructs a new Protocol.
	}
}

func (p *Protocol) awaitTx() bool { return p.await(p.engine.WaitTx) }
func (p *Protocol) awaitRx() bool { return p.await(p.engine.WaitRx) }

func (p *Protocol) await(wait func() error) bool {
	err := wait()
	switch {
	case err == nil:
		return true
	case errors.Is(err, esb.ErrWouldBlock):
		return false
	default:
		p.fail(err)
		return false
	}
}

func (p *Protocol) fail(err error) {
	p.lastErr = err
	p.state = Error
}

func (p *Protocol) printReceivedPacket() {
	buf := p.engine.GetRxBuffer()
	pkt := p.engine.GetLastReceivedPacket()
	if pkt == nil {
		return
	}

	noAck := 0
	if pkt.NoAck {
		noAck = 1
	}

	fmt.Fprintf(p.diag, "[%d %02x %d %d] ", pkt.Address.Value(), pkt.Length, pkt.PID, noAck)
	for _, b := range buf[2:] {
		fmt.Fprintf(p.diag, "%02x ", b)
	}
	fmt.Fprintf(p.diag, "\n")
}
