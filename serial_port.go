// serial_port.go - Memory-mapped serial diagnostic channel

package main

import (
	"sync"
	"sync/atomic"
)

// Serial status register bits.
const (
	SERIAL_STATUS_TX_READY = 1 << 1
)

// SerialPort is the machine's byte-oriented diagnostic channel. Guest
// writes to SERIAL_DATA are captured in an internal buffer and forwarded
// to an optional host sink. The port carries out-of-band pass/fail
// reporting during automated runs; the console never depends on it.
type SerialPort struct {
	mu         sync.Mutex
	enabled    bool
	outputBuf  []byte
	onTransmit func(byte)

	txCount atomic.Uint64
}

func NewSerialPort() *SerialPort {
	return &SerialPort{enabled: true}
}

// SetTransmitHandler installs the host sink callback. The callback runs
// outside the port's lock, once per transmitted byte.
func (sp *SerialPort) SetTransmitHandler(fn func(byte)) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.onTransmit = fn
}

// HandleRead services bus reads of the serial registers.
func (sp *SerialPort) HandleRead(addr uint32) uint32 {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	switch addr {
	case SERIAL_STATUS:
		if sp.enabled {
			return SERIAL_STATUS_TX_READY
		}
		return 0
	case SERIAL_CTRL:
		if sp.enabled {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// HandleWrite services bus writes of the serial registers.
func (sp *SerialPort) HandleWrite(addr uint32, value uint32) {
	switch addr {
	case SERIAL_DATA:
		sp.transmit(byte(value))
	case SERIAL_CTRL:
		sp.mu.Lock()
		sp.enabled = value&1 != 0
		sp.mu.Unlock()
	}
}

func (sp *SerialPort) transmit(b byte) {
	sp.mu.Lock()
	if !sp.enabled {
		sp.mu.Unlock()
		return
	}
	sp.outputBuf = append(sp.outputBuf, b)
	handler := sp.onTransmit
	sp.mu.Unlock()

	sp.txCount.Add(1)
	if handler != nil {
		handler(b)
	}
}

// DrainOutput returns everything transmitted since the last drain and
// clears the capture buffer.
func (sp *SerialPort) DrainOutput() []byte {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := sp.outputBuf
	sp.outputBuf = nil
	return out
}

// TransmitCount reports the total number of bytes transmitted.
func (sp *SerialPort) TransmitCount() uint64 {
	return sp.txCount.Load()
}

// SerialWriter adapts the guest side of the port to io.Writer so the
// kernel facade can print diagnostics with the formatting layer. Each byte
// becomes one register write on the bus.
type SerialWriter struct {
	bus Bus16
}

func NewSerialWriter(bus Bus16) *SerialWriter {
	return &SerialWriter{bus: bus}
}

func (sw *SerialWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		sw.bus.Write8(SERIAL_DATA, b)
	}
	return len(p), nil
}
