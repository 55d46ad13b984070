// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm staticcheck

package radio

import (
	"github.com/chris-zen/mdp-bridge/internal/reg"
)

// Register offsets relative to Driver.Base, following the nRF52840
// Product Specification 6.20 RADIO.
const (
	taskTxen    = 0x000
	taskRxen    = 0x004
	taskStart   = 0x008
	taskStop    = 0x00C
	taskDisable = 0x010

	eventReady    = 0x100
	eventAddress  = 0x104
	eventPayload  = 0x108
	eventEnd      = 0x10C
	eventDisabled = 0x110

	regCrcStatus = 0x400
	regRxMatch   = 0x408
	regRxCrc     = 0x40C

	regPacketPtr   = 0x504
	regFrequency   = 0x508
	regTxPower     = 0x50C
	regMode        = 0x510
	regPCNF0       = 0x514
	regPCNF1       = 0x518
	regBase0       = 0x51C
	regBase1       = 0x520
	regPrefix0     = 0x524
	regPrefix1     = 0x528
	regTxAddress   = 0x52C
	regRxAddresses = 0x530
	regCrcCnf      = 0x534
	regCrcPoly     = 0x538
	regCrcInit     = 0x53C
	regState       = 0x550
)

// Driver is a thin, policy-free wrapper over one nRF52840 RADIO register
// block. Exactly one Driver instance exists per radio handle (design note
// 9 "Ownership of peripheral and buffers").
type Driver struct {
	// Base is the RADIO peripheral's memory-mapped base address.
	Base uint32

	buffer []byte
}

// NewDriver returns a Driver for the RADIO peripheral at base. base must
// be non-zero.
func NewDriver(base uint32) *Driver {
	if base == 0 {
		panic("radio: invalid peripheral base address")
	}
	return &Driver{Base: base}
}

func (d *Driver) reg(offset uint32) uint32 { return d.Base + offset }

// EnablePower is a configuration-time no-op retained for symmetry with
// peripherals that gate a clock before use; the RADIO block on nRF52840
// has no explicit power task of its own.
func (d *Driver) EnablePower() {}

// DisableAllInterrupts writes all ones to INTENCLR, disabling every RADIO
// interrupt and leaving the engine's polling discipline as the only
// consumer of events.
func (d *Driver) DisableAllInterrupts() {
	reg.Write(d.reg(0x308), 0xFFFFFFFF)
}

// SetTxPower writes TXPOWER.
func (d *Driver) SetTxPower(p TxPower) {
	reg.Write(d.reg(regTxPower), p.register())
}

// SetMode writes MODE.
func (d *Driver) SetMode(m Mode) {
	reg.Write(d.reg(regMode), uint32(m))
}

// SetFrequency writes FREQUENCY.
func (d *Driver) SetFrequency(f Frequency) {
	reg.Write(d.reg(regFrequency), f.register())
}

// SetPacketConfig folds pc into PCNF0/PCNF1 via read-modify-write,
// preserving untouched bits, including BALEN which is owned by
// SetBaseAddresses (spec 4.1 "side effects").
func (d *Driver) SetPacketConfig(pc PacketConfig) {
	pcnf0 := reg.Read(d.reg(regPCNF0))
	reg.Write(d.reg(regPCNF0), applyPCNF0(pcnf0, pc))

	pcnf1 := reg.Read(d.reg(regPCNF1))
	reg.Write(d.reg(regPCNF1), applyPCNF1(pcnf1, pc))
}

// SetBaseAddresses writes BASE0/BASE1 and the BALEN field of PCNF1, after
// bit-reversing the addresses (spec 4.1 "bit-reversal of on-air
// addresses").
func (d *Driver) SetBaseAddresses(ba BaseAddresses) {
	addr0, addr1 := ba.rawWords()

	reg.Write(d.reg(regBase0), ReverseBits32(addr0))
	reg.Write(d.reg(regBase1), ReverseBits32(addr1))

	pcnf1 := reg.Read(d.reg(regPCNF1))
	reg.Write(d.reg(regPCNF1), setN(pcnf1, 16, 0x7, uint32(ba.BALEN())))
}

// SetPrefixes writes PREFIX0/PREFIX1 from the eight per-pipe prefix
// bytes, bit-reversed the same way as the base addresses.
func (d *Driver) SetPrefixes(prefixes [8]byte) {
	var p0, p1 [4]byte
	copy(p0[:], prefixes[0:4])
	copy(p1[:], prefixes[4:8])

	reg.Write(d.reg(regPrefix0), ReverseBits32(packPrefixes(p0)))
	reg.Write(d.reg(regPrefix1), ReverseBits32(packPrefixes(p1)))
}

// SetRxAddresses writes RXADDRESSES, a bitmask selecting which of the
// eight pipes are enabled for reception.
func (d *Driver) SetRxAddresses(mask uint8) {
	reg.Write(d.reg(regRxAddresses), uint32(mask))
}

// SetTxAddress writes TXADDRESS, selecting which pipe's prefix is used
// for the next transmission.
func (d *Driver) SetTxAddress(addr LogicalAddress) {
	reg.Write(d.reg(regTxAddress), uint32(addr.Value()))
}

// SetCRC configures CRCCNF/CRCINIT/CRCPOLY. A Disabled CrcMode only
// writes CRCCNF.
func (d *Driver) SetCRC(mode CrcMode) {
	cnf := uint32(mode.Width)
	if mode.SkipAddress {
		cnf = setBit(cnf, 8, true)
	}
	reg.Write(d.reg(regCrcCnf), cnf)

	if mode.Width == CrcDisabled {
		return
	}

	reg.Write(d.reg(regCrcInit), mode.Init)
	reg.Write(d.reg(regCrcPoly), mode.Poly)
}

// SwapBuffer installs newBuf as PACKETPTR (or clears it, if newBuf is
// nil) and returns whichever buffer was previously installed.
func (d *Driver) SwapBuffer(newBuf []byte) []byte {
	old := d.buffer
	d.buffer = newBuf

	if newBuf == nil {
		reg.Write(d.reg(regPacketPtr), 0)
	} else {
		reg.Write(d.reg(regPacketPtr), bufferAddress(newBuf))
	}

	return old
}

// EnableRx triggers the RXEN task. Requires state Disabled and a buffer
// previously installed via SwapBuffer.
func (d *Driver) EnableRx() error {
	if d.GetState() != StateDisabled {
		return ErrWrongState
	}
	if d.buffer == nil {
		return ErrBufferNotDefined
	}
	d.clearEvents(eventReady, eventEnd, eventAddress, eventPayload, eventDisabled)
	barrier()
	reg.Write(d.reg(taskRxen), 1)
	return nil
}

// EnableTx triggers the TXEN task. Requires state Disabled and a buffer
// previously installed via SwapBuffer.
func (d *Driver) EnableTx() error {
	if d.GetState() != StateDisabled {
		return ErrWrongState
	}
	if d.buffer == nil {
		return ErrBufferNotDefined
	}
	d.clearEvents(eventReady, eventEnd, eventAddress, eventPayload, eventDisabled)
	barrier()
	reg.Write(d.reg(taskTxen), 1)
	return nil
}

// Start triggers the START task. Requires state RxIdle or TxIdle.
func (d *Driver) Start() error {
	switch d.GetState() {
	case StateRxIdle, StateTxIdle:
	default:
		return ErrWrongState
	}
	d.clearEvents(eventEnd, eventAddress, eventPayload, eventDisabled)
	barrier()
	reg.Write(d.reg(taskStart), 1)
	return nil
}

// Stop triggers the STOP task. Legal only in Rx or Tx.
func (d *Driver) Stop() error {
	switch d.GetState() {
	case StateRx, StateTx:
	default:
		return ErrWrongState
	}
	barrier()
	reg.Write(d.reg(taskStop), 1)
	return nil
}

// Disable clears DISABLED and triggers the DISABLE task from any state.
func (d *Driver) Disable() {
	d.clearEvents(eventDisabled)
	barrier()
	reg.Write(d.reg(taskDisable), 1)
}

// WaitIdle polls for the READY event (Rx/TxIdle reached).
func (d *Driver) WaitIdle() error {
	if reg.Read(d.reg(eventReady)) == 0 {
		return ErrWouldBlock
	}
	reg.Write(d.reg(eventReady), 0)
	return nil
}

// WaitEndOrDisable polls for either END or DISABLED, since the peripheral
// may short-circuit End -> Disable depending on shortcut configuration.
func (d *Driver) WaitEndOrDisable() error {
	end := reg.Read(d.reg(eventEnd)) != 0
	disabled := reg.Read(d.reg(eventDisabled)) != 0

	if !end && !disabled {
		return ErrWouldBlock
	}
	if end {
		reg.Write(d.reg(eventEnd), 0)
	}
	if disabled {
		reg.Write(d.reg(eventDisabled), 0)
	}
	return nil
}

// WaitDisabled polls for the DISABLED event.
func (d *Driver) WaitDisabled() error {
	if reg.Read(d.reg(eventDisabled)) == 0 {
		return ErrWouldBlock
	}
	reg.Write(d.reg(eventDisabled), 0)
	return nil
}

// IsCRCOk reports the CRCSTATUS register, valid only after END has
// fired.
func (d *Driver) IsCRCOk() bool {
	return reg.Read(d.reg(regCrcStatus)) != 0
}

// GetReceivedAddress decodes RXMATCH, valid only after END has fired.
func (d *Driver) GetReceivedAddress() LogicalAddress {
	return LogicalAddress(reg.Read(d.reg(regRxMatch)))
}

// GetReceivedCRC reads RXCRC, valid only after END has fired.
func (d *Driver) GetReceivedCRC() uint32 {
	return reg.Read(d.reg(regRxCrc))
}

// GetState decodes the STATE register.
func (d *Driver) GetState() RadioState {
	return RadioState(reg.Read(d.reg(regState)))
}

func (d *Driver) clearEvents(offsets ...uint32) {
	for _, off := range offsets {
		reg.Write(d.reg(off), 0)
	}
}
