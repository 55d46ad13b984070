// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package esb

import (
	"errors"

	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

// macroState is the engine's top-level state tag (spec 3 "EngineState").
// A runtime tag is used rather than typestate so the engine can recover
// and re-synchronize from whatever hardware state is observed, and so the
// Rx->TxAck and Tx->RxAck sub-transactions compose without API
// duplication (design note 9).
type macroState int

const (
	stateStandby macroState = iota
	stateRx
	stateTxAck
	stateTx
	stateRxAck
	stateError
)

// subStep is the micro-step within one six-step Disable/Enable/Start
// sequence (spec 4.2 sub-step table).
type subStep int

const (
	stepDisable subStep = iota
	stepWaitingDisable
	stepEnable
	stepWaitingIdle
	stepStart
	stepWaitingEnd
)

// stepFromState picks the first sub-step consistent with the current
// RADIO hardware state, generalized over both the Rx and Tx ramp-up
// states (spec 4.2 start_rx's step_from_state table, applied uniformly to
// Tx per design note 9's "replays the same six-step sequence").
func stepFromState(s radio.RadioState) subStep {
	switch s {
	case radio.StateDisabled:
		return stepEnable
	case radio.StateRxRampUp, radio.StateTxRampUp:
		return stepWaitingIdle
	case radio.StateRxIdle, radio.StateTxIdle:
		return stepStart
	case radio.StateRx, radio.StateTx:
		return stepWaitingEnd
	case radio.StateRxDisable, radio.StateTxDisable:
		return stepWaitingDisable
	default:
		return stepDisable
	}
}

// Engine is the session/protocol engine described in spec 4.2: it owns
// both payload buffers and the current macro-state, and drives the
// RadioDriver through sequenced Rx->TxAck and Tx->RxAck sub-transactions.
type Engine struct {
	driver   Radio
	protocol radio.Protocol

	rxBuffer []byte
	txBuffer []byte
	rxHeld   bool
	txHeld   bool

	state     macroState
	step      subStep
	finishing bool

	rxCfg       RxConfig
	txCfg       TxConfig
	retriesLeft int

	lastPacket *RxPacket
	lastErr    error

	pid uint8
}

// NewEngine constructs an Engine, configuring the radio's PacketConfig to
// match protocol (spec 4.2 "construction contract"). rxBuffer and
// txBuffer must each be at least protocol.MaxPayload()+2 bytes; this is a
// programmer error and panics otherwise, mirroring the teacher's
// panic-on-misconfiguration convention (e.g. UART.Init). At most one
// Engine may hold a given driver.
func NewEngine(driver Radio, protocol radio.Protocol, rxBuffer, txBuffer []byte) *Engine {
	minLen := int(protocol.MaxPayload()) + 2

	if len(rxBuffer) < minLen || len(txBuffer) < minLen {
		panic("esb: payload buffer too small for configured protocol")
	}

	driver.SetPacketConfig(protocol.PacketConfig())

	return &Engine{
		driver:   driver,
		protocol: protocol,
		rxBuffer: rxBuffer,
		txBuffer: txBuffer,
		rxHeld:   true,
		txHeld:   true,
		state:    stateStandby,
	}
}

// GetTxBuffer returns the writable outbound buffer, or nil while it is
// installed in the hardware (spec 6.3).
func (e *Engine) GetTxBuffer() []byte {
	if !e.txHeld {
		return nil
	}
	return e.txBuffer
}

// GetRxBuffer returns the most recently received frame's raw bytes, or
// nil while the receive buffer is installed in the hardware (spec 6.3).
func (e *Engine) GetRxBuffer() []byte {
	if !e.rxHeld {
		return nil
	}
	return e.rxBuffer
}

// GetLastReceivedPacket returns the most recently accepted packet, or nil
// if none has been received since construction or the last start_rx
// (spec 6.3).
func (e *Engine) GetLastReceivedPacket() *RxPacket {
	return e.lastPacket
}

// NextPID returns the current outgoing PID and advances the mod-4
// counter (spec 4.2 "PID management").
func (e *Engine) NextPID() uint8 {
	p := e.pid
	e.pid = (e.pid + 1) & 0x03
	return p
}

// StartRx begins a receive transaction (spec 4.2 start_rx).
func (e *Engine) StartRx(cfg RxConfig) error {
	if e.state != stateStandby {
		return ErrStandbyRequired
	}
	if !e.rxHeld {
		return ErrRxBufferBusy
	}

	e.lastPacket = nil
	e.rxCfg = cfg
	e.retriesLeft = cfg.Retries + 1
	e.state = stateRx
	e.step = stepFromState(e.driver.GetState())
	e.finishing = false

	return nil
}

// WaitRx polls the in-flight receive (and, transparently, any following
// TxAck) transaction (spec 4.2 wait_rx).
func (e *Engine) WaitRx() error {
	if e.state == stateError {
		return e.lastErr
	}
	if e.state != stateRx && e.state != stateTxAck {
		return ErrReceiveNotStarted
	}
	return e.poll()
}

// StartTx begins a transmit transaction (spec 4.2 start_tx). The caller
// is expected to have filled the transmit buffer, including the two-byte
// header, before calling.
func (e *Engine) StartTx(cfg TxConfig) error {
	if e.state != stateStandby {
		return ErrStandbyRequired
	}
	if !e.txHeld {
		return ErrTxBufferBusy
	}

	e.txCfg = cfg
	e.retriesLeft = cfg.Retries + 1
	e.driver.SetTxAddress(cfg.Address)
	e.state = stateTx
	e.step = stepFromState(e.driver.GetState())
	e.finishing = false

	return nil
}

// WaitTx polls the in-flight transmit (and, transparently, any following
// RxAck) transaction (spec 4.2 wait_tx).
func (e *Engine) WaitTx() error {
	if e.state == stateError {
		return e.lastErr
	}
	if e.state != stateTx && e.state != stateRxAck {
		return ErrReceiveNotStarted
	}
	return e.poll()
}

// Reset clears a sticky Error macro-state and reclaims both buffers,
// returning the engine to Standby. The caller is responsible for having
// quiesced the hardware (e.g. via the driver's Disable) beforehand; this
// is the recovery path spec 7 refers to as "caller must reset".
func (e *Engine) Reset() {
	e.driver.SwapBuffer(nil)
	e.state = stateStandby
	e.step = stepDisable
	e.finishing = false
	e.rxHeld = true
	e.txHeld = true
	e.lastErr = nil
}

// poll advances the engine's micro-state machine by exactly one step,
// performing a small, fixed number of driver calls and never waiting
// (spec 5 "each call does O(1) work").
func (e *Engine) poll() error {
	switch e.step {
	case stepDisable:
		e.driver.Disable()
		e.step = stepWaitingDisable
		return radio.ErrWouldBlock

	case stepWaitingDisable:
		if err := e.checkWouldBlock(e.driver.WaitDisabled()); err != nil {
			return err
		}
		if e.finishing {
			e.toStandby()
			return nil
		}
		e.step = stepEnable
		return radio.ErrWouldBlock

	case stepEnable:
		if err := e.enable(); err != nil {
			return e.fail(err)
		}
		e.step = stepWaitingIdle
		return radio.ErrWouldBlock

	case stepWaitingIdle:
		if err := e.checkWouldBlock(e.driver.WaitIdle()); err != nil {
			return err
		}
		e.step = stepStart
		return radio.ErrWouldBlock

	case stepStart:
		if err := e.driver.Start(); err != nil {
			return e.fail(err)
		}
		e.step = stepWaitingEnd
		return radio.ErrWouldBlock

	case stepWaitingEnd:
		if err := e.checkWouldBlock(e.driver.WaitEndOrDisable()); err != nil {
			return err
		}
		return e.onTransactionEnd()
	}

	panic("esb: unreachable engine step")
}

// checkWouldBlock normalizes a driver result into either nil (event
// fired), radio.ErrWouldBlock (propagated unchanged), or a fatal *FatalError.
func (e *Engine) checkWouldBlock(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, radio.ErrWouldBlock) {
		return radio.ErrWouldBlock
	}
	return e.fail(err)
}

func (e *Engine) enable() error {
	switch e.state {
	case stateRx, stateRxAck:
		if e.rxHeld {
			e.driver.SwapBuffer(e.rxBuffer)
			e.rxHeld = false
		}
		return e.driver.EnableRx()
	case stateTxAck, stateTx:
		if e.txHeld {
			e.driver.SwapBuffer(e.txBuffer)
			e.txHeld = false
		}
		return e.driver.EnableTx()
	default:
		panic("esb: enable called from unexpected state")
	}
}

func (e *Engine) fail(cause error) error {
	e.state = stateError
	e.lastErr = &FatalError{Cause: cause}
	return e.lastErr
}

func (e *Engine) toStandby() {
	e.state = stateStandby
	e.step = stepDisable
	e.finishing = false
}

// onTransactionEnd dispatches the WaitingEnd outcome per macro-state
// (spec 4.2's wait_rx/wait_tx step tables).
func (e *Engine) onTransactionEnd() error {
	switch e.state {
	case stateRx:
		return e.onRxEnd()
	case stateTxAck:
		return e.onTxAckEnd()
	case stateTx:
		return e.onTxEnd()
	case stateRxAck:
		return e.onRxAckEnd()
	}
	panic("esb: onTransactionEnd called from unexpected state")
}

func (e *Engine) onRxEnd() error {
	if !e.driver.IsCRCOk() {
		return e.armRetry()
	}

	pid, noAck := DecodeHeader(e.rxBuffer[1])
	pkt := RxPacket{
		Length:  e.rxBuffer[0],
		PID:     pid,
		NoAck:   noAck,
		Address: e.driver.GetReceivedAddress(),
		CRC:     e.driver.GetReceivedCRC(),
	}

	e.driver.SwapBuffer(nil)
	e.rxHeld = true
	e.lastPacket = &pkt

	if pkt.NoAck || e.rxCfg.SkipAck {
		e.finishing = true
		e.step = stepDisable
		return radio.ErrWouldBlock
	}

	e.txBuffer[0] = 0
	e.txBuffer[1] = EncodeHeader(pkt.PID, false)
	e.driver.SetTxAddress(pkt.Address)

	e.state = stateTxAck
	e.step = stepDisable
	e.finishing = false
	return radio.ErrWouldBlock
}

func (e *Engine) onTxAckEnd() error {
	e.driver.SwapBuffer(nil)
	e.txHeld = true
	e.finishing = true
	e.step = stepDisable
	return radio.ErrWouldBlock
}

func (e *Engine) onTxEnd() error {
	if e.txCfg.SkipAck {
		e.driver.SwapBuffer(nil)
		e.txHeld = true
		e.finishing = true
		e.step = stepDisable
		return radio.ErrWouldBlock
	}

	e.driver.SwapBuffer(nil)
	e.txHeld = true

	e.state = stateRxAck
	e.step = stepDisable
	e.finishing = false
	return radio.ErrWouldBlock
}

func (e *Engine) onRxAckEnd() error {
	if !e.driver.IsCRCOk() {
		return e.armRetry()
	}

	e.driver.SwapBuffer(nil)
	e.rxHeld = true
	e.finishing = true
	e.step = stepDisable
	return radio.ErrWouldBlock
}

// armRetry re-arms the current transaction from whatever hardware state
// is observed, bounded by the configured retry budget (spec property 5,
// design note 9 open question (i): this spec commits to bounded retry).
func (e *Engine) armRetry() error {
	e.retriesLeft--
	if e.retriesLeft <= 0 {
		return e.fail(ErrCRCRetriesExceeded)
	}
	e.step = stepFromState(e.driver.GetState())
	return radio.ErrWouldBlock
}
