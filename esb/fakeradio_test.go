// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package esb

import (
	"testing"

	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

// rxEvent scripts one delivered frame for fakeRadio's Rx direction,
// mirroring the scripted-response style of michcald-nrf24's mockSPIConn.
type rxEvent struct {
	crcOK   bool
	payload []byte
	address radio.LogicalAddress
	crc     uint32
}

// fakeRadio is a scriptable stand-in for the real nRF52840 register
// block, letting the Engine's state machine be exercised without
// hardware. It treats ramp-up/idle transitions as instantaneous and
// resolves exactly one WaitEndOrDisable per Start, so that one full
// six-step transaction takes exactly six WaitRx/WaitTx calls, and a
// re-armed retry takes exactly two (Start, WaitEnd).
type fakeRadio struct {
	t *testing.T

	state radio.RadioState
	buf   []byte

	pcnf radio.PacketConfig

	rxScript []rxEvent
	rxIdx    int

	lastRxCRCOk   bool
	lastRxAddress radio.LogicalAddress
	lastRxCRC     uint32

	txAddress  radio.LogicalAddress
	sentFrames [][]byte
}

func newFakeRadio(t *testing.T) *fakeRadio {
	return &fakeRadio{t: t, state: radio.StateDisabled}
}

func (f *fakeRadio) SetPacketConfig(pc radio.PacketConfig) { f.pcnf = pc }

func (f *fakeRadio) SetTxAddress(addr radio.LogicalAddress) { f.txAddress = addr }

func (f *fakeRadio) SwapBuffer(newBuf []byte) []byte {
	old := f.buf
	f.buf = newBuf
	return old
}

func (f *fakeRadio) EnableRx() error {
	if f.state != radio.StateDisabled {
		return radio.ErrWrongState
	}
	if f.buf == nil {
		return radio.ErrBufferNotDefined
	}
	f.state = radio.StateRxIdle
	return nil
}

func (f *fakeRadio) EnableTx() error {
	if f.state != radio.StateDisabled {
		return radio.ErrWrongState
	}
	if f.buf == nil {
		return radio.ErrBufferNotDefined
	}
	f.state = radio.StateTxIdle
	return nil
}

func (f *fakeRadio) Start() error {
	switch f.state {
	case radio.StateRxIdle:
		f.state = radio.StateRx
	case radio.StateTxIdle:
		f.state = radio.StateTx
	default:
		return radio.ErrWrongState
	}
	return nil
}

func (f *fakeRadio) Disable() {
	f.state = radio.StateDisabled
}

func (f *fakeRadio) WaitIdle() error { return nil }

func (f *fakeRadio) WaitEndOrDisable() error {
	switch f.state {
	case radio.StateRx:
		if f.rxIdx >= len(f.rxScript) {
			f.t.Fatalf("fakeRadio: rx script exhausted")
		}
		ev := f.rxScript[f.rxIdx]
		f.rxIdx++

		n := copy(f.buf, ev.payload)
		if n < len(f.buf) {
			for i := n; i < len(f.buf); i++ {
				f.buf[i] = 0
			}
		}

		f.lastRxCRCOk = ev.crcOK
		f.lastRxAddress = ev.address
		f.lastRxCRC = ev.crc
		f.state = radio.StateRxIdle

	case radio.StateTx:
		f.sentFrames = append(f.sentFrames, append([]byte(nil), f.buf...))
		f.lastRxCRCOk = true
		f.state = radio.StateTxIdle
	}

	return nil
}

func (f *fakeRadio) WaitDisabled() error { return nil }

func (f *fakeRadio) IsCRCOk() bool                          { return f.lastRxCRCOk }
func (f *fakeRadio) GetReceivedAddress() radio.LogicalAddress { return f.lastRxAddress }
func (f *fakeRadio) GetReceivedCRC() uint32                 { return f.lastRxCRC }
func (f *fakeRadio) GetState() radio.RadioState             { return f.state }

// drain polls fn up to limit times, stopping as soon as it returns
// anything other than ErrWouldBlock.
func drain(t *testing.T, limit int, fn func() error) error {
	t.Helper()

	var err error
	for i := 0; i < limit; i++ {
		err = fn()
		if err != ErrWouldBlock {
			return err
		}
	}

	t.Fatalf("engine did not settle within %d polls", limit)
	return err
}
