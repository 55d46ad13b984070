// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
// +build tamago,arm

package nrf52840mdk

import (
	"unsafe"

	"github.com/chris-zen/mdp-bridge/internal/reg"
)

// UARTE0 register offsets, nRF52840 Product Specification 6.34 UARTE.
const (
	uartBase = 0x40002000

	uartTaskStartTx = uartBase + 0x008
	uartTaskStopTx  = uartBase + 0x00C
	uartEventTxDRDY = uartBase + 0x11C
	uartEventEndTx  = uartBase + 0x120
	uartEnable      = uartBase + 0x500
	uartTxdPtr      = uartBase + 0x544
	uartTxdMaxCnt   = uartBase + 0x548
)

// UART is the DAPLink-facing serial console used as the diagnostic sink
// (board.DiagnosticWriter), following the same single-byte-at-a-time Tx
// convention as the teacher's imx6 UART driver.
type UART struct {
	buf [1]byte
}

func newUART() *UART {
	reg.Write(uartEnable, 8)
	return &UART{}
}

// Write implements io.Writer, transmitting p one byte at a time.
func (u *UART) Write(p []byte) (int, error) {
	for _, c := range p {
		u.buf[0] = c
		reg.Write(uartTxdPtr, uint32(uintptr(unsafe.Pointer(&u.buf[0]))))
		reg.Write(uartTxdMaxCnt, 1)
		reg.Write(uartEventEndTx, 0)
		reg.Write(uartTaskStartTx, 1)
		reg.Wait(uartEventEndTx, 0, 1, 1)
		reg.Write(uartTaskStopTx, 1)
	}
	return len(p), nil
}
