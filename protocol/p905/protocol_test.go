// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package p905

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chris-zen/mdp-bridge/esb"
)

type fakeEngine struct {
	tx, rx                     []byte
	txWaitResults, rxWaitResults []error
	txIdx, rxIdx                int
	lastPacket                   *esb.RxPacket
	startTxCalls, startRxCalls   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{tx: make([]byte, 34), rx: make([]byte, 34)}
}

func (f *fakeEngine) GetTxBuffer() []byte                  { return f.tx }
func (f *fakeEngine) GetRxBuffer() []byte                  { return f.rx }
func (f *fakeEngine) GetLastReceivedPacket() *esb.RxPacket { return f.lastPacket }
func (f *fakeEngine) StartRx(cfg esb.RxConfig) error       { f.startRxCalls++; return nil }
func (f *fakeEngine) StartTx(cfg esb.TxConfig) error       { f.startTxCalls++; return nil }

func (f *fakeEngine) WaitTx() error {
	err := f.txWaitResults[f.txIdx]
	f.txIdx++
	return err
}

func (f *fakeEngine) WaitRx() error {
	err := f.rxWaitResults[f.rxIdx]
	f.rxIdx++
	return err
}

func runUntil(t *testing.T, p *Protocol, target State, limit int) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if p.State() == target {
			return
		}
		p.Run()
	}
	t.Fatalf("protocol did not reach %s within %d steps (stuck at %s)", target, limit, p.State())
}

func TestP905PairingFlowReachesPaired(t *testing.T) {
	fe := newFakeEngine()
	fe.rxWaitResults = []error{nil}
	fe.txWaitResults = []error{nil}
	copy(fe.rx, []byte{4, 0, 0x09, 0x08})
	fe.lastPacket = &esb.RxPacket{Length: 4}

	var diag bytes.Buffer
	p := NewProtocol(fe, &diag)

	runUntil(t, p, Paired, 16)
	assert.Equal(t, 1, fe.startRxCalls)
	assert.Equal(t, 1, fe.startTxCalls)
}

func TestP905IgnoresUnrelatedFrameWhileUnpaired(t *testing.T) {
	fe := newFakeEngine()
	fe.rxWaitResults = []error{nil, nil}
	copy(fe.rx, []byte{4, 0, 0xFF, 0xFF})
	fe.lastPacket = &esb.RxPacket{Length: 4}

	var diag bytes.Buffer
	p := NewProtocol(fe, &diag)

	runUntil(t, p, WaitPairingRequest, 16)
	p.Run()
	assert.Equal(t, WaitPairingRequest, p.State())
}

func TestP905WaitRequestReturnsToListening(t *testing.T) {
	fe := newFakeEngine()
	fe.rxWaitResults = []error{nil, nil}
	fe.txWaitResults = []error{nil}
	copy(fe.rx, []byte{4, 0, 0x09, 0x08})
	fe.lastPacket = &esb.RxPacket{}

	var diag bytes.Buffer
	p := NewProtocol(fe, &diag)
	runUntil(t, p, Paired, 16)

	copy(fe.rx, []byte{4, 0, 0xAB, 0xCD})
	p.Run() // Paired -> WaitRequest
	assert.Equal(t, WaitRequest, p.State())
	p.Run() // unrelated frame -> back to Paired
	assert.Equal(t, Paired, p.State())
}
