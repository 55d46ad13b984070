// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package m01

import (
	"errors"
	"fmt"
	"io"

	"github.com/chris-zen/mdp-bridge/esb"
)

// Engine is the subset of *esb.Engine this protocol client depends on.
// Expressing it as an interface (rather than depending on *esb.Engine
// directly) lets the state machine be exercised without real hardware,
// the same trade-off esb.Radio makes for the engine itself.
type Engine interface {
	GetTxBuffer() []byte
	GetRxBuffer() []byte
	GetLastReceivedPacket() *esb.RxPacket
	StartRx(cfg esb.RxConfig) error
	WaitRx() error
	StartTx(cfg esb.TxConfig) error
	WaitTx() error
}

// State is the initiator's session state (spec.md 6.3 "clients of the
// engine").
type State int

const (
	Unpaired State = iota
	SendPairingRequest
	WaitPairingRequestSent
	ReceivePairingResponse
	WaitPairingResponse
	SendDataRequest
	WaitDataRequestSent
	ReceiveDataResponse
	WaitDataResponse
	Error
)

func (s State) String() string {
	switch s {
	case Unpaired:
		return "Unpaired"
	case SendPairingRequest:
		return "SendPairingRequest"
	case WaitPairingRequestSent:
		return "WaitPairingRequestSent"
	case ReceivePairingResponse:
		return "ReceivePairingResponse"
	case WaitPairingResponse:
		return "WaitPairingResponse"
	case SendDataRequest:
		return "SendDataRequest"
	case WaitDataRequestSent:
		return "WaitDataRequestSent"
	case ReceiveDataResponse:
		return "ReceiveDataResponse"
	case WaitDataResponse:
		return "WaitDataResponse"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Protocol drives one M01 session over an Engine, one Run call per step
// (spec.md 5 "non-blocking": the caller loops Run the same way it loops
// the engine's own Wait* primitives).
type Protocol struct {
	engine Engine
	diag   io.Writer

	state   State
	lastErr error
	pid     uint8

	rxCfg esb.RxConfig
	txCfg esb.TxConfig
}

// nextPID returns the current outgoing PID and advances the mod-4
// counter, independent of the engine's own counter (the original
// tracks pairing-request PIDs at the protocol layer).
func (p *Protocol) nextPID() uint8 {
	v := p.pid
	p.pid = (p.pid + 1) & 0x03
	return v
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

// State returns the current session state.
func (p *Protocol) State() State { return p.state }

// LastError returns the fatal error that moved the session into Error,
// or nil.
func (p *Protocol) LastError() error { return p.lastErr }

// Run advances the session by one step.
func (p *Protocol) Run() {
	switch p.state {
	case Unpaired:
		fmt.Fprintf(p.diag, "%s: looking for P905 ...\n", p.state)
		p.state = SendPairingRequest

	case SendPairingRequest:
		fmt.Fprintf(p.diag, "%s: sending pairing request ...\n", p.state)
		buf := p.engine.GetTxBuffer()
		copy(buf, pairingRequest[:])
		buf[1] = esb.EncodeHeader(p.nextPID(), false)
		if err := p.engine.StartTx(p.txCfg); err != nil {
			p.fail(err)
			return
		}
		p.state = WaitPairingRequestSent

	case WaitPairingRequestSent:
		if p.awaitTx() {
			p.state = ReceivePairingResponse
		}

	case ReceivePairingResponse:
		if err := p.engine.StartRx(p.rxCfg); err != nil {
			fmt.Fprintf(p.diag, "error receiving pairing response\n")
			p.fail(err)
			return
		}
		p.state = WaitPairingResponse

	case WaitPairingResponse:
		if !p.awaitRx() {
			return
		}

		buf := p.engine.GetRxBuffer()
		if commandCode(buf) == pairingResponseCode {
			p.state = SendDataRequest
		} else {
			fmt.Fprintf(p.diag, "unknown request\n")
			p.printReceivedPacket()
			p.state = SendPairingRequest
		}

	case SendDataRequest:
		fmt.Fprintf(p.diag, "%s: sending data request ...\n", p.state)
		buf := p.engine.GetTxBuffer()
		copy(buf, dataRequest[:])
		if err := p.engine.StartTx(p.txCfg); err != nil {
			p.fail(err)
			return
		}
		p.state = WaitDataRequestSent

	case WaitDataRequestSent:
		if p.awaitTx() {
			p.state = ReceiveDataResponse
		}

	case ReceiveDataResponse:
		if err := p.engine.StartRx(p.rxCfg); err != nil {
			p.fail(err)
			return
		}
		p.state = WaitDataResponse

	case WaitDataResponse:
		if !p.awaitRx() {
			return
		}

		buf := p.engine.GetRxBuffer()
		if commandCode(buf) == dataResponseCode {
			p.state = SendDataRequest
		} else {
			fmt.Fprintf(p.diag, "unknown request\n")
			p.printReceivedPacket()
			p.state = SendDataRequest
		}

	case Error:
		// sticky: remains until the caller constructs a new Protocol.
	}
}

// awaitTx polls WaitTx, returning true once it completes. A would-block
// leaves the state unchanged; any other error moves to Error.
func (p *Protocol) awaitTx() bool { return p.await(p.engine.WaitTx) }

// awaitRx polls WaitRx, returning true once it completes.
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
