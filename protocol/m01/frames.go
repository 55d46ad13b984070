// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package m01 implements the initiator side of the M01/P905 pairing and
// data-request application protocol, as a client of esb.Engine.
package m01

// Wire frames: two-byte ESB header followed by a 32-byte payload whose
// first two bytes are the big-endian command code. Values transcribed
// from the M01 firmware's hardcoded requests.
var (
	pairingRequest = [34]byte{
		51, 2,
		0x09, 0x08, 0x62, 0x6d, 0xfa, 0x5d, 0x00, 0x01,
		0x5a, 0x73, 0x09, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	dataRequest = [34]byte{
		51, 2,
		0x07, 0x06, 0x62, 0x6d, 0xfa, 0x5d, 0x00, 0x01,
		0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

// Command codes expected in response frames, read big-endian at payload
// offset 0:1 (buffer offset 2:3).
const (
	pairingResponseCode uint16 = 0x090D
	dataResponseCode    uint16 = 0x071B
)

func commandCode(buf []byte) uint16 {
	return uint16(buf[2])<<8 | uint16(buf[3])
}
