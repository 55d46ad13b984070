// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sniffer implements a promiscuous, ack-free listener: it never
// answers what it receives, logging every frame in the spec.md 6.4 trace
// format with one extra bracketed field: the two header bytes in binary.
// Grounded on original_source/sniffer/src/main.rs.
package sniffer

import (
	"errors"
	"fmt"
	"io"

	"github.com/chris-zen/mdp-bridge/esb"
)

// Channel, base address and prefixes the sniffer firmware hardcodes to
// listen across all eight logical pipes at once.
const Channel = 78

// BaseAddress is the four-byte base address shared by both BASE0 and
// BASE1, matching the sniffer's own hardcoded on-air address.
var BaseAddress = [4]byte{0xA0, 0xB1, 0xC2, 0xD3}

// Prefixes assigns one distinct prefix byte per logical pipe 0..7.
var Prefixes = [8]byte{0xE0, 0xE1, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7}

// RxAddressAll enables all eight pipes for reception.
const RxAddressAll = 0xFF

// Engine is the subset of *esb.Engine the sniffer depends on.
type Engine interface {
	GetRxBuffer() []byte
	GetLastReceivedPacket() *esb.RxPacket
	StartRx(cfg esb.RxConfig) error
	WaitRx() error
}

// Sniffer drives a continuous ack-free receive loop over an Engine,
// logging every accepted frame.
type Sniffer struct {
	engine Engine
	diag   io.Writer
	rxCfg  esb.RxConfig

	listening bool
	lastErr   error
}

// NewSniffer constructs a Sniffer. The engine is expected to already be
// configured for the sniffer's channel/address/prefix set (radio
// configuration is the caller's responsibility, as with esb.Engine
// itself).
func NewSniffer(engine Engine, diag io.Writer) *Sniffer {
	return &Sniffer{
		engine: engine,
		diag:   diag,
		rxCfg:  esb.NewRxConfig().WithSkipAck(true),
	}
}

// LastError returns the fatal error that stopped the sniffer, or nil.
func (s *Sniffer) LastError() error { return s.lastErr }

// Run advances the sniffer by one step: arming a receive if idle, or
// polling and logging the in-flight one. Returns false once a fatal
// error has stopped the sniffer.
func (s *Sniffer) Run() bool {
	if s.lastErr != nil {
		return false
	}

	if !s.listening {
		if err := s.engine.StartRx(s.rxCfg); err != nil {
			s.lastErr = err
			return false
		}
		s.listening = true
		return true
	}

	err := s.engine.WaitRx()
	switch {
	case err == nil:
		s.printReceivedPacket()
		s.listening = false
	case errors.Is(err, esb.ErrWouldBlock):
	default:
		s.lastErr = err
		return false
	}

	return true
}

func (s *Sniffer) printReceivedPacket() {
	pkt := s.engine.GetLastReceivedPacket()
	if pkt == nil {
		return
	}
	buf := s.engine.GetRxBuffer()

	header := uint16(buf[0])<<8 | uint16(buf[1])
	noAck := 0
	if pkt.NoAck {
		noAck = 1
	}

	fmt.Fprintf(s.diag, "[%d %02x %d %d %016b] ", pkt.Address.Value(), pkt.Length, pkt.PID, noAck, header)
	for _, b := range buf[2:] {
		fmt.Fprintf(s.diag, "%02x ", b)
	}
	fmt.Fprintf(s.diag, "\n")
}
