// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package esb

// EncodeHeader packs pid (0..3) and noAck into the second ESB header
// byte: bits [2:1]=PID, bit [0]=NOACK (spec 6.1).
func EncodeHeader(pid uint8, noAck bool) byte {
	b := (pid & 0x03) << 1
	if noAck {
		b |= 1
	}
	return b
}

// DecodeHeader is the inverse of EncodeHeader (spec property 3: header
// round-trip).
func DecodeHeader(b byte) (pid uint8, noAck bool) {
	return (b >> 1) & 0x03, b&0x01 == 1
}
