package arch

import "sync"

var (
	serialMu  sync.Mutex
	serialLog []byte
)

// SerialOutput returns a copy of every byte written to the console so far.
// Real hardware has no readback of the bytes it emitted; a hosted harness
// keeps this buffer so cmd/boot.go's --serial-log flag and this package's
// tests can inspect the diagnostic trace a real COM1 listener would see.
func SerialOutput() []byte {
	serialMu.Lock()
	defer serialMu.Unlock()
	out := make([]byte, len(serialLog))
	copy(out, serialLog)
	return out
}

// ResetSerialOutput clears the recorded console output. Tests use this to
// isolate one boot sequence's trace from another's.
func ResetSerialOutput() {
	serialMu.Lock()
	defer serialMu.Unlock()
	serialLog = nil
}

// initSerial programs COM1 for 8-N-1 at 38400 baud, polled output only
// (spec.md §4.B, §6): disable its interrupts, set the divisor latch, word
// length/parity/stop bits, enable and clear the FIFO, and assert
// DTR/RTS.
func initSerial() {
	outB(COM1Port+1, 0x00) // disable interrupts
	outB(COM1Port+3, 0x80) // enable DLAB
	outB(COM1Port+0, 0x03) // divisor low byte (38400 baud)
	outB(COM1Port+1, 0x00) // divisor high byte
	outB(COM1Port+3, 0x03) // 8 bits, no parity, one stop bit
	outB(COM1Port+2, 0xC7) // enable FIFO, clear, 14-byte threshold
	outB(COM1Port+4, 0x0B) // DTR, RTS and OUT2 set
}

// WriteSerialByte polls the line status register until the transmitter
// holding register is empty, then writes one byte.
func WriteSerialByte(b byte) {
	for inB(COM1Port+5)&0x20 == 0 {
	}
	outB(COM1Port, b)

	serialMu.Lock()
	serialLog = append(serialLog, b)
	serialMu.Unlock()
}

// WriteSerialBytes writes each byte of data to the serial console in order.
func WriteSerialBytes(data []byte) {
	for _, b := range data {
		WriteSerialByte(b)
	}
}

const hexDigits = "0123456789abcdef"

// WriteSerialUint64Hex writes value as 16 lowercase hex digits, matching
// the original kernel's fixed-width diagnostic formatting.
func WriteSerialUint64Hex(value uint64) {
	var buf [16]byte
	for i := range buf {
		shift := uint(15-i) * 4
		buf[i] = hexDigits[(value>>shift)&0xF]
	}
	WriteSerialBytes(buf[:])
}
