package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// Mock is an in-memory Channel used by the protocol, handshake and
// flash-pipeline tests to script exact device byte streams without a real
// tty, generalising original_source's MockUart (IODevices.py) which stubbed
// read_byte/read_all/SetBaudrate/GetBaudrate for the same purpose.
type Mock struct {
	mu      sync.Mutex
	toHost  bytes.Buffer // bytes the device "sends"; drained by Read
	toWire  bytes.Buffer // bytes the host writes; inspectable via Written
	baud    uint32
	closed  bool
	timeout time.Duration

	// OnWrite, if set, is invoked after every Write with the bytes just
	// written, so tests can script a response (e.g. append to device
	// output) driven by what the host sent.
	OnWrite func(written []byte)
}

// NewMock returns a Mock starting at the given baud rate.
func NewMock(baud uint32) *Mock {
	return &Mock{baud: baud, timeout: time.Second}
}

// Feed appends bytes as if the simulated device had sent them.
func (m *Mock) Feed(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toHost.Write(data)
}

// Written returns and clears everything the host has written so far.
func (m *Mock) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]byte(nil), m.toWire.Bytes()...)
	m.toWire.Reset()
	return out
}

func (m *Mock) Read(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("mock: closed")
	}
	if m.toHost.Len() == 0 {
		return 0, ErrTimeout
	}
	return m.toHost.Read(buf)
}

func (m *Mock) Write(data []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("mock: closed")
	}
	n, _ := m.toWire.Write(data)
	m.mu.Unlock()
	if m.OnWrite != nil {
		cp := append([]byte(nil), data...)
		m.OnWrite(cp)
	}
	return n, nil
}

func (m *Mock) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toHost.Reset()
	return nil
}

func (m *Mock) SetBaud(baud uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baud = baud
	return nil
}

func (m *Mock) Baud() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baud
}

func (m *Mock) SetReadTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ErrTimeout identifies a Mock or Port read that found no data before its
// deadline, the condition framer.Framer.ReadLine treats as expected input
// rather than a fatal error.
var ErrTimeout = errors.New("serialport: read timeout")
