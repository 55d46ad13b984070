// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package esb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-zen/mdp-bridge/soc/nordic/nrf52840/radio"
)

func newTestEngine(t *testing.T) (*Engine, *fakeRadio) {
	fr := newFakeRadio(t)
	proto := radio.FixedPayloadLength(30)
	rxBuf := make([]byte, 32)
	txBuf := make([]byte, 32)
	e := NewEngine(fr, proto, rxBuf, txBuf)
	return e, fr
}

func framePayload(length, pid uint8, noAck bool, data ...byte) []byte {
	buf := make([]byte, 32)
	buf[0] = length
	buf[1] = EncodeHeader(pid, noAck)
	copy(buf[2:], data)
	return buf
}

// S1: a pairing-request frame is received and acknowledged.
func TestEngineRxDeliversPacketAndSendsAck(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: true, payload: framePayload(4, 2, false, 0x09, 0x08), address: radio.Of1, crc: 0xBEEF},
	}

	require.NoError(t, e.StartRx(NewRxConfig()))
	err := drain(t, 64, e.WaitRx)
	require.NoError(t, err)

	pkt := e.GetLastReceivedPacket()
	require.NotNil(t, pkt)
	assert.Equal(t, uint8(4), pkt.Length)
	assert.Equal(t, uint8(2), pkt.PID)
	assert.False(t, pkt.NoAck)
	assert.Equal(t, radio.Of1, pkt.Address)
	assert.Equal(t, uint32(0xBEEF), pkt.CRC)

	// The ack frame sent back must echo the inbound PID.
	require.Len(t, fr.sentFrames, 1)
	echoedPID, echoedNoAck := DecodeHeader(fr.sentFrames[0][1])
	assert.Equal(t, uint8(2), echoedPID)
	assert.False(t, echoedNoAck)

	assert.NotNil(t, e.GetRxBuffer())
	assert.NotNil(t, e.GetTxBuffer())
}

// A NoAck inbound frame must not trigger a TxAck phase.
func TestEngineRxNoAckFrameSkipsAck(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: true, payload: framePayload(2, 0, true, 0xAA), address: radio.Of0},
	}

	require.NoError(t, e.StartRx(NewRxConfig()))
	require.NoError(t, drain(t, 16, e.WaitRx))

	assert.Empty(t, fr.sentFrames)
	assert.True(t, e.GetLastReceivedPacket().NoAck)
}

// RxConfig.SkipAck suppresses the ack phase even for an ack-requesting frame.
func TestEngineRxConfigSkipAck(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: true, payload: framePayload(2, 1, false, 0xAA), address: radio.Of0},
	}

	require.NoError(t, e.StartRx(NewRxConfig().WithSkipAck(true)))
	require.NoError(t, drain(t, 16, e.WaitRx))

	assert.Empty(t, fr.sentFrames)
}

// S3-style: transmit a frame and receive its ack.
func TestEngineTxThenRxAckSuccess(t *testing.T) {
	e, fr := newTestEngine(t)

	tx := e.GetTxBuffer()
	require.NotNil(t, tx)
	tx[0] = 4
	tx[1] = EncodeHeader(e.NextPID(), false)
	copy(tx[2:], []byte{0x07, 0x06})

	fr.rxScript = []rxEvent{
		{crcOK: true, payload: framePayload(0, 0, false), address: radio.Of0},
	}

	require.NoError(t, e.StartTx(NewTxConfig().WithAddress(radio.Of2)))
	require.NoError(t, drain(t, 64, e.WaitTx))

	require.Len(t, fr.sentFrames, 1)
	assert.Equal(t, byte(0x07), fr.sentFrames[0][2])
	assert.Equal(t, byte(0x06), fr.sentFrames[0][3])
	assert.Equal(t, radio.Of2, fr.txAddress)

	assert.NotNil(t, e.GetTxBuffer())
	assert.NotNil(t, e.GetRxBuffer())
}

// TxConfig.SkipAck suppresses the RxAck phase entirely.
func TestEngineTxSkipAck(t *testing.T) {
	e, fr := newTestEngine(t)

	tx := e.GetTxBuffer()
	tx[0] = 1
	tx[1] = EncodeHeader(e.NextPID(), true)

	require.NoError(t, e.StartTx(NewTxConfig().WithSkipAck(true)))
	require.NoError(t, drain(t, 16, e.WaitTx))

	require.Len(t, fr.sentFrames, 1)
	assert.NotNil(t, e.GetTxBuffer())
}

// S4: bounded retries are exhausted by consecutive bad-CRC frames.
func TestEngineRxCRCRetriesExhausted(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: false, payload: framePayload(2, 0, false)},
		{crcOK: false, payload: framePayload(2, 0, false)},
	}

	require.NoError(t, e.StartRx(NewRxConfig().WithRetries(1)))
	err := drain(t, 64, e.WaitRx)

	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, fatal.Cause, ErrCRCRetriesExceeded)
}

// S5: two bad-CRC frames followed by a good one succeeds within budget.
func TestEngineRxCRCRetrySucceedsEventually(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: false, payload: framePayload(2, 0, false)},
		{crcOK: false, payload: framePayload(2, 0, false)},
		{crcOK: true, payload: framePayload(2, 3, true, 0x42), address: radio.Of0},
	}

	require.NoError(t, e.StartRx(NewRxConfig().WithRetries(3)))
	require.NoError(t, drain(t, 64, e.WaitRx))

	pkt := e.GetLastReceivedPacket()
	require.NotNil(t, pkt)
	assert.Equal(t, uint8(3), pkt.PID)
}

// A bad-CRC ack also consumes the retry budget (RxAck phase).
func TestEngineRxAckCRCRetry(t *testing.T) {
	e, fr := newTestEngine(t)

	tx := e.GetTxBuffer()
	tx[0] = 1
	tx[1] = EncodeHeader(e.NextPID(), false)

	fr.rxScript = []rxEvent{
		{crcOK: false, payload: framePayload(0, 0, false)},
		{crcOK: true, payload: framePayload(0, 0, false)},
	}

	require.NoError(t, e.StartTx(NewTxConfig().WithRetries(2)))
	require.NoError(t, drain(t, 64, e.WaitTx))
}

// S6: waiting on a direction that was never started reuses the same
// sentinel on both sides of the engine.
func TestEngineWaitBeforeStartReturnsErrReceiveNotStarted(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.ErrorIs(t, e.WaitRx(), ErrReceiveNotStarted)
	assert.ErrorIs(t, e.WaitTx(), ErrReceiveNotStarted)
}

func TestEngineStartRequiresStandby(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{{crcOK: true, payload: framePayload(0, 0, true)}}

	require.NoError(t, e.StartRx(NewRxConfig()))
	assert.ErrorIs(t, e.StartRx(NewRxConfig()), ErrStandbyRequired)
	assert.ErrorIs(t, e.StartTx(NewTxConfig()), ErrStandbyRequired)
}

// Property: the rx and tx buffers are never both absent from the
// engine's possession and never aliased onto the single hardware slot
// at once, since SwapBuffer only ever holds one buffer at a time.
func TestEngineBufferOwnershipExclusivity(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: true, payload: framePayload(2, 0, false, 0xAA), address: radio.Of0},
	}

	require.NoError(t, e.StartRx(NewRxConfig()))

	sawBufferHeldDuringHardwareOwnership := false
	for i := 0; i < 64; i++ {
		rx, tx := e.GetRxBuffer(), e.GetTxBuffer()
		if fr.buf != nil && ((rx != nil && &rx[0] == &fr.buf[0]) || (tx != nil && &tx[0] == &fr.buf[0])) {
			sawBufferHeldDuringHardwareOwnership = true
		}
		err := e.WaitRx()
		if err != ErrWouldBlock {
			require.NoError(t, err)
			break
		}
	}

	assert.False(t, sawBufferHeldDuringHardwareOwnership)
	assert.NotNil(t, e.GetRxBuffer())
}

// Property: PID is a mod-4 counter.
func TestEnginePIDWraparound(t *testing.T) {
	e, _ := newTestEngine(t)

	got := []uint8{e.NextPID(), e.NextPID(), e.NextPID(), e.NextPID(), e.NextPID()}
	assert.Equal(t, []uint8{0, 1, 2, 3, 0}, got)
}

func TestEngineResetClearsErrorState(t *testing.T) {
	e, fr := newTestEngine(t)

	fr.rxScript = []rxEvent{
		{crcOK: false, payload: framePayload(0, 0, false)},
	}

	require.NoError(t, e.StartRx(NewRxConfig().WithRetries(0)))
	err := drain(t, 64, e.WaitRx)
	require.Error(t, err)

	fr.Disable()
	e.Reset()

	assert.ErrorIs(t, e.WaitRx(), ErrReceiveNotStarted)

	fr.rxScript = append(fr.rxScript, rxEvent{crcOK: true, payload: framePayload(0, 0, true)})
	fr.rxIdx = len(fr.rxScript) - 1
	require.NoError(t, e.StartRx(NewRxConfig()))
	assert.NoError(t, drain(t, 64, e.WaitRx))
}

func TestNewEnginePanicsOnUndersizedBuffer(t *testing.T) {
	fr := newFakeRadio(t)
	proto := radio.FixedPayloadLength(30)

	assert.Panics(t, func() {
		NewEngine(fr, proto, make([]byte, 4), make([]byte, 32))
	})
}
