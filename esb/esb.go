// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package esb implements the Enhanced ShockBurst session engine: an
// acknowledged-datagram link layered over a RadioDriver. See
// nrf52-radio-esb (the engine's point of origin) for the single-direction
// ancestor this generalizes to both Rx->TxAck and Tx->RxAck sequences.
package esb

import (
	"errors"
	"fmt"

	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

// Sentinel errors for caller-contract violations (spec 7).
var (
	ErrStandbyRequired    = errors.New("esb: standby required")
	ErrRxBufferBusy       = errors.New("esb: rx buffer busy")
	ErrTxBufferBusy       = errors.New("esb: tx buffer busy")
	ErrReceiveNotStarted  = errors.New("esb: receive not started")
	ErrCRCRetriesExceeded = errors.New("esb: crc retries exceeded")
)

// ErrWouldBlock is re-exported from radio so callers only need to import
// esb to use errors.Is against it.
var ErrWouldBlock = radio.ErrWouldBlock

// FatalError wraps an unrecoverable failure: an error from the underlying
// RadioDriver, or ErrCRCRetriesExceeded once the CRC retry budget is
// spent. Once raised, the engine's macro-state becomes Error and
// stays there (sticky, spec 7) until Reset is called.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("esb: fatal radio error: %v", e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }

// Radio is the subset of RadioDriver the engine depends on. It exists so
// tests can exercise the engine's state machine against a scripted fake
// instead of real nRF52840 silicon (see engine_test.go), which is the one
// deliberate departure from the driver's otherwise concrete, dependency-free
// style (design note 9 allows implementers to trade some of the typestate
// purity for practical composition; here we trade driver concreteness for
// testability of the engine built on top of it).
type Radio interface {
	SetPacketConfig(pc radio.PacketConfig)
	SetTxAddress(addr radio.LogicalAddress)
	SwapBuffer(newBuf []byte) []byte

	EnableRx() error
	EnableTx() error
	Start() error
	Disable()

	WaitIdle() error
	WaitEndOrDisable() error
	WaitDisabled() error

	IsCRCOk() bool
	GetReceivedAddress() radio.LogicalAddress
	GetReceivedCRC() uint32
	GetState() radio.RadioState
}

// RxConfig configures one receive transaction (spec 4.3).
type RxConfig struct {
	SkipAck bool
	Retries int
}

// NewRxConfig returns the default RxConfig: {SkipAck: false, Retries: 1}.
func NewRxConfig() RxConfig {
	return RxConfig{Retries: 1}
}

func (c RxConfig) WithSkipAck(v bool) RxConfig {
	c.SkipAck = v
	return c
}

func (c RxConfig) WithRetries(n int) RxConfig {
	c.Retries = n
	return c
}

// TxConfig configures one transmit transaction (spec 4.3).
type TxConfig struct {
	Address radio.LogicalAddress
	SkipAck bool
	Retries int
}

// NewTxConfig returns the default TxConfig: {Address: Of0, SkipAck:
// false, Retries: 1}.
func NewTxConfig() TxConfig {
	return TxConfig{Address: radio.Of0, Retries: 1}
}

func (c TxConfig) WithAddress(a radio.LogicalAddress) TxConfig {
	c.Address = a
	return c
}

func (c TxConfig) WithSkipAck(v bool) TxConfig {
	c.SkipAck = v
	return c
}

func (c TxConfig) WithRetries(n int) TxConfig {
	c.Retries = n
	return c
}

// RxPacket is a successfully received, CRC-verified frame (spec 3).
type RxPacket struct {
	Length  uint8
	PID     uint8
	NoAck   bool
	Address radio.LogicalAddress
	CRC     uint32
}
