// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package p905 implements the responder side of the M01/P905 pairing
// protocol, as a client of esb.Engine.
package p905

// pairingResponse is sent back once a pairing request with command code
// 0x0908 is received. Values transcribed from the P905 firmware's
// hardcoded response.
var pairingResponse = [34]byte{
	51, 0,
	0x09, 0x0d, 0x62, 0x6d, 0xfa, 0x5d, 0x00, 0x00,
	0x3e, 0xc2, 0x3b, 0x00, 0x0f, 0x78, 0x6d, 0xf9,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

const pairingRequestCode uint16 = 0x0908

func commandCode(buf []byte) uint16 {
	return uint16(buf[2])<<8 | uint16(buf[3])
}
