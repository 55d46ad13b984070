// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package radio drives the nRF52840 2.4 GHz RADIO peripheral in Enhanced
// ShockBurst framing.
//
// See Product Specification: 6.20 RADIO — 2.4 GHz radio
// https://infocenter.nordicsemi.com/pdf/nRF52840_PS_v1.0.pdf
package radio

import (
	"errors"
	"math/bits"
)

// ErrWouldBlock is returned by the non-blocking wait primitives when the
// requested hardware event has not yet occurred.
var ErrWouldBlock = errors.New("radio: would block")

// Error is the set of fatal conditions a RadioDriver primitive can raise.
// Any Error is a programming error in the caller (the esb package): it is
// never raised by correct use of the driver's state machine.
type Error int

const (
	// ErrWrongState is returned when a primitive is invoked from a
	// hardware state that cannot service it.
	ErrWrongState Error = iota
	// ErrBufferNotDefined is returned by EnableRx/EnableTx when no
	// buffer has been installed via SwapBuffer.
	ErrBufferNotDefined
)

func (e Error) Error() string {
	switch e {
	case ErrWrongState:
		return "radio: wrong state"
	case ErrBufferNotDefined:
		return "radio: buffer not defined"
	default:
		return "radio: unknown error"
	}
}

// RadioState mirrors the hardware STATE register (6.20.4 "State machine").
type RadioState uint32

const (
	StateDisabled RadioState = iota
	StateRxRampUp
	StateRxIdle
	StateRx
	StateRxDisable
	_ // 5 is unused in the product specification
	StateTxRampUp
	StateTxIdle
	StateTx
	StateTxDisable
)

func (s RadioState) String() string {
	switch s {
	case StateDisabled:
		return "Disabled"
	case StateRxRampUp:
		return "RxRampUp"
	case StateRxIdle:
		return "RxIdle"
	case StateRx:
		return "Rx"
	case StateRxDisable:
		return "RxDisable"
	case StateTxRampUp:
		return "TxRampUp"
	case StateTxIdle:
		return "TxIdle"
	case StateTx:
		return "Tx"
	case StateTxDisable:
		return "TxDisable"
	default:
		return "Unknown"
	}
}

// TxPower selects the TXPOWER register value (6.20.9).
type TxPower int8

const (
	Pos8dBm  TxPower = 8
	Pos7dBm  TxPower = 7
	Pos6dBm  TxPower = 6
	Pos5dBm  TxPower = 5
	Pos4dBm  TxPower = 4
	Pos3dBm  TxPower = 3
	Pos2dBm  TxPower = 2
	ZerodBm  TxPower = 0
	Neg4dBm  TxPower = -4
	Neg8dBm  TxPower = -8
	Neg12dBm TxPower = -12
	Neg16dBm TxPower = -16
	Neg20dBm TxPower = -20
	Neg40dBm TxPower = -40
)

func (p TxPower) register() uint32 {
	return uint32(uint8(p))
}

// Mode selects the on-air data rate and modulation (6.20.9 MODE register).
type Mode uint32

const (
	Nrf1Mbit Mode = iota
	Nrf2Mbit
	Nrf250Kbit
	Ble1Mbit
)

// Frequency is a validated RADIO channel, either in the default 2400-2500MHz
// band or the low 2360-2460MHz band (6.20.9 FREQUENCY register).
type Frequency struct {
	channel uint8
	low     bool
}

// FromDefault2400MHzChannel builds a Frequency in the default band.
// Channel must be in 0..=100; an out of range channel is a programmer
// error and panics (spec property 8).
func FromDefault2400MHzChannel(channel uint8) Frequency {
	if channel > 100 {
		panic("radio: channel out of range")
	}
	return Frequency{channel: channel}
}

// FromLow2360MHzChannel builds a Frequency in the low band.
func FromLow2360MHzChannel(channel uint8) Frequency {
	if channel > 100 {
		panic("radio: channel out of range")
	}
	return Frequency{channel: channel, low: true}
}

func (f Frequency) register() uint32 {
	v := uint32(f.channel)
	if f.low {
		v |= 1 << 8
	}
	return v
}

// LogicalAddress identifies one of the eight receive pipes (6.20.9
// RXADDRESSES, TXADDRESS). Pipe 0 is serviced by BASE0, pipes 1..7 share
// BASE1 and are distinguished by their PREFIX byte.
type LogicalAddress uint8

const (
	Of0 LogicalAddress = iota
	Of1
	Of2
	Of3
	Of4
	Of5
	Of6
	Of7
)

func (a LogicalAddress) Value() uint8 { return uint8(a) }

func (a LogicalAddress) String() string {
	if a > Of7 {
		return "invalid"
	}
	return "pipe" + string(rune('0'+a))
}

// baseAddressKind is the BaseAddresses variant tag.
type baseAddressKind int

const (
	twoBytes baseAddressKind = iota
	threeBytes
	fourBytes
)

// BaseAddresses holds the two base addresses (for pipe 0 and pipes 1..7
// respectively) that, combined with a per-pipe prefix byte, form the
// on-air access address. See Driver.SetBaseAddresses for how these are
// transmitted bit-reversed.
type BaseAddresses struct {
	kind  baseAddressKind
	addr0 uint32
	addr1 uint32
}

// NewTwoByteBaseAddresses builds a two-byte (BALEN=2) base address pair.
func NewTwoByteBaseAddresses(addr0, addr1 uint16) BaseAddresses {
	return BaseAddresses{kind: twoBytes, addr0: uint32(addr0), addr1: uint32(addr1)}
}

// NewThreeByteBaseAddresses builds a three-byte (BALEN=3) base address
// pair. Only the low 24 bits of each argument are significant.
func NewThreeByteBaseAddresses(addr0, addr1 uint32) BaseAddresses {
	return BaseAddresses{kind: threeBytes, addr0: addr0 & 0xFFFFFF, addr1: addr1 & 0xFFFFFF}
}

// NewFourByteBaseAddresses builds a four-byte (BALEN=4) base address pair.
func NewFourByteBaseAddresses(addr0, addr1 uint32) BaseAddresses {
	return BaseAddresses{kind: fourBytes, addr0: addr0, addr1: addr1}
}

// FromSameFourBytes builds a four-byte base address pair using the same
// four bytes, MSB first, for both base0 and base1.
func FromSameFourBytes(b [4]byte) BaseAddresses {
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return NewFourByteBaseAddresses(v, v)
}

// BALEN returns the byte count of the variant: 2, 3 or 4. This spec fixes
// the rule to equal the variant's byte count (design note 9(iii)).
func (ba BaseAddresses) BALEN() uint8 {
	switch ba.kind {
	case twoBytes:
		return 2
	case threeBytes:
		return 3
	default:
		return 4
	}
}

// rawWords returns the host-order address words as the hardware expects
// them before bit-reversal: zero-extended for TwoBytes, masked to 24 bits
// for ThreeBytes, as-is for FourBytes.
func (ba BaseAddresses) rawWords() (uint32, uint32) {
	return ba.addr0, ba.addr1
}

// ReverseBits32 reverses the bit order of a 32-bit word. The RADIO
// peripheral shifts out addresses LSB-first; callers think of addresses
// MSB-first, so every base/prefix word is reversed before being written
// to its register (spec property 7).
func ReverseBits32(v uint32) uint32 {
	return bits.Reverse32(v)
}

// packPrefixes packs four prefix bytes, MSB first, into one 32-bit word
// the way PREFIX0/PREFIX1 expect before bit-reversal.
func packPrefixes(p [4]byte) uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

// CrcWidth selects the CRCCNF.LEN field.
type CrcWidth uint32

const (
	CrcDisabled CrcWidth = iota
	Crc8Bit
	Crc16Bit
	Crc24Bit
)

// CrcMode configures the CRC check: width, seed, polynomial, and whether
// the access address is included in the coverage.
type CrcMode struct {
	Width       CrcWidth
	Init        uint32
	Poly        uint32
	SkipAddress bool
}

// NewCrc16 builds the 16-bit CRC mode used by the M01/P905 application
// protocol (polynomial 0x11021, typically initialized to 0xFFFF).
func NewCrc16(init uint16, poly uint32) CrcMode {
	return CrcMode{Width: Crc16Bit, Init: uint32(init), Poly: poly}
}

// S1IncludeInRam selects whether the S1 field is always present in the
// buffer layout or only when non-zero.
type S1IncludeInRam int

const (
	Automatic S1IncludeInRam = iota
	Always
)

// PreambleLength selects the PCNF0.PLEN field.
type PreambleLength int

const (
	PreambleOf8Bits PreambleLength = iota
	PreambleOf16Bits
	PreambleOf32Bits
	PreambleForLongRange
)

// Endianness selects PCNF1.ENDIAN.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

// PacketConfig is a record of optional framing fields: each non-nil field
// overrides the corresponding PCNF0/PCNF1 bitfield; a nil field leaves the
// register's existing value untouched (spec 4.1 "PacketConfig
// application").
type PacketConfig struct {
	LengthBits          *uint8
	S0ByteIncluded       *bool
	S1Len               *uint8
	S1IncludeInRam      *S1IncludeInRam
	PreambleLen         *PreambleLength
	CrcIncludedInLength *bool
	MaxBytes            *uint8
	StaticBytes         *uint8
	Endianness          *Endianness
	WhiteningEnabled    *bool
}

func u8(v uint8) *uint8 { return &v }
func b(v bool) *bool { return &v }
func s1ram(v S1IncludeInRam) *S1IncludeInRam { return &v }
func preamble(v PreambleLength) *PreambleLength { return &v }
func endian(v Endianness) *Endianness { return &v }

// FixedPayloadLengthConfig returns the PacketConfig for a fixed-length
// protocol carrying n bytes of application payload (spec 4.2 construction
// contract): LFLEN=6, S0 excluded, S1LEN=3 (NOACK + 2 bits of PID),
// max=static=n, big-endian, no whitening.
func FixedPayloadLengthConfig(n uint8) PacketConfig {
	return PacketConfig{
		LengthBits:     u8(6),
		S0ByteIncluded: b(false),
		S1Len:          u8(3),
		S1IncludeInRam: s1ram(Always),
		MaxBytes:       u8(n),
		StaticBytes:    u8(n),
		Endianness:     endian(BigEndian),
		WhiteningEnabled: b(false),
	}
}

// DynamicPayloadLengthConfig returns the PacketConfig for a
// dynamic-length protocol accepting up to max bytes of application
// payload: LFLEN=6 if max<=32, else 8; static=0 (length is carried
// per-packet in the LENGTH field).
func DynamicPayloadLengthConfig(max uint8) PacketConfig {
	lflen := uint8(6)
	if max > 32 {
		lflen = 8
	}
	return PacketConfig{
		LengthBits:     u8(lflen),
		S0ByteIncluded: b(false),
		S1Len:          u8(3),
		S1IncludeInRam: s1ram(Always),
		MaxBytes:       u8(max),
		StaticBytes:    u8(0),
		Endianness:     endian(BigEndian),
		WhiteningEnabled: b(false),
	}
}

// Protocol is the closed set of framing profiles an EsbEngine may be
// constructed with (spec 4.3).
type Protocol struct {
	fixed  bool
	length uint8
}

// FixedPayloadLength returns a Protocol carrying exactly length bytes of
// application payload. length must be <= 32.
func FixedPayloadLength(length uint8) Protocol {
	if length > 32 {
		panic("radio: fixed payload length exceeds 32 bytes")
	}
	return Protocol{fixed: true, length: length}
}

// DynamicPayloadLength returns a Protocol carrying up to max bytes of
// application payload. max must be <= 252.
func DynamicPayloadLength(max uint8) Protocol {
	if max > 252 {
		panic("radio: dynamic payload length exceeds 252 bytes")
	}
	return Protocol{fixed: false, length: max}
}

// MaxPayload returns the largest application payload (excluding the
// two-byte ESB header) this protocol will carry.
func (p Protocol) MaxPayload() uint8 { return p.length }

// PacketConfig returns the PCNF0/PCNF1 descriptor for this protocol.
func (p Protocol) PacketConfig() PacketConfig {
	if p.fixed {
		return FixedPayloadLengthConfig(p.length)
	}
	return DynamicPayloadLengthConfig(p.length)
}

// applyPCNF0 folds pc's fields into the current PCNF0 register value,
// following the fixed field table in spec 4.1. Bit positions follow the
// nRF52840 Product Specification 6.20.9 PCNF0.
func applyPCNF0(current uint32, pc PacketConfig) uint32 {
	const (
		lflenPos, lflenMask = 0, 0xF
		s0lenPos            = 8
		s1lenPos, s1lenMask = 16, 0xF
		s1ramPos            = 20
		plenPos, plenMask   = 24, 0x3
		crcincPos           = 26
	)

	v := current

	if pc.LengthBits != nil {
		v = setN(v, lflenPos, lflenMask, uint32(*pc.LengthBits))
	}
	if pc.S0ByteIncluded != nil {
		v = setBit(v, s0lenPos, *pc.S0ByteIncluded)
	}
	if pc.S1Len != nil {
		v = setN(v, s1lenPos, s1lenMask, uint32(*pc.S1Len))
	}
	if pc.S1IncludeInRam != nil {
		v = setBit(v, s1ramPos, *pc.S1IncludeInRam == Always)
	}
	if pc.PreambleLen != nil {
		v = setN(v, plenPos, plenMask, uint32(*pc.PreambleLen))
	}
	if pc.CrcIncludedInLength != nil {
		v = setBit(v, crcincPos, *pc.CrcIncludedInLength)
	}

	return v
}

// applyPCNF1 folds pc's fields into the current PCNF1 register value.
// BALEN is not among them: it is owned exclusively by SetBaseAddresses,
// so that setting a PacketConfig never clobbers the address length
// configured separately (spec 4.1 "side effects": read-modify-write
// preserves untouched bits). Bit positions follow the nRF52840 Product
// Specification 6.20.9 PCNF1.
func applyPCNF1(current uint32, pc PacketConfig) uint32 {
	const (
		maxlenPos, maxlenMask   = 0, 0xFF
		statlenPos, statlenMask = 8, 0xFF
		endianPos               = 24
		whiteenPos              = 25
	)

	v := current

	if pc.MaxBytes != nil {
		v = setN(v, maxlenPos, maxlenMask, uint32(*pc.MaxBytes))
	}
	if pc.StaticBytes != nil {
		v = setN(v, statlenPos, statlenMask, uint32(*pc.StaticBytes))
	}
	if pc.Endianness != nil {
		v = setBit(v, endianPos, *pc.Endianness == BigEndian)
	}
	if pc.WhiteningEnabled != nil {
		v = setBit(v, whiteenPos, *pc.WhiteningEnabled)
	}

	return v
}

func setN(v uint32, pos int, mask uint32, val uint32) uint32 {
	return (v &^ (mask << uint(pos))) | ((val & mask) << uint(pos))
}

func setBit(v uint32, pos int, on bool) uint32 {
	if on {
		return v | (1 << uint(pos))
	}
	return v &^ (1 << uint(pos))
}
