// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sniffer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-zen/mdp-bridge/esb"
	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

type fakeEngine struct {
	rx            []byte
	rxWaitResults []error
	rxIdx         int
	lastPacket    *esb.RxPacket
	startRxCalls  int
	skipAckSeen   []bool
}

func (f *fakeEngine) GetRxBuffer() []byte                  { return f.rx }
func (f *fakeEngine) GetLastReceivedPacket() *esb.RxPacket { return f.lastPacket }

func (f *fakeEngine) StartRx(cfg esb.RxConfig) error {
	f.startRxCalls++
	f.skipAckSeen = append(f.skipAckSeen, cfg.SkipAck)
	return nil
}

func (f *fakeEngine) WaitRx() error {
	err := f.rxWaitResults[f.rxIdx]
	f.rxIdx++
	return err
}

func TestSnifferAlwaysSkipsAck(t *testing.T) {
	fe := &fakeEngine{rx: make([]byte, 34), rxWaitResults: []error{nil}}
	fe.lastPacket = &esb.RxPacket{Address: radio.Of3}

	var diag bytes.Buffer
	s := NewSniffer(fe, &diag)

	require.True(t, s.Run()) // arms rx
	require.True(t, s.Run()) // delivers frame

	require.Len(t, fe.skipAckSeen, 1)
	assert.True(t, fe.skipAckSeen[0])
}

func TestSnifferLogsTraceAndRearms(t *testing.T) {
	fe := &fakeEngine{rx: make([]byte, 34), rxWaitResults: []error{esb.ErrWouldBlock, nil}}
	fe.lastPacket = &esb.RxPacket{Length: 4, PID: 2, NoAck: true, Address: radio.Of1}
	copy(fe.rx, []byte{4, 0x05, 0xAA, 0xBB})

	var diag bytes.Buffer
	s := NewSniffer(fe, &diag)

	require.True(t, s.Run()) // arm
	require.True(t, s.Run()) // would block
	require.True(t, s.Run()) // delivered and logged
	require.True(t, s.Run()) // re-arms

	assert.Equal(t, 2, fe.startRxCalls)
	assert.Contains(t, diag.String(), "aa bb")
	assert.True(t, strings.HasPrefix(diag.String(), "[1 04 2 1"))
}

func TestSnifferStopsOnFatalError(t *testing.T) {
	fe := &fakeEngine{rx: make([]byte, 34), rxWaitResults: []error{errors.New("boom")}}

	var diag bytes.Buffer
	s := NewSniffer(fe, &diag)

	require.True(t, s.Run())
	assert.False(t, s.Run())
	assert.Error(t, s.LastError())
	assert.False(t, s.Run())
}
