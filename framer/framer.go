// Package framer turns a raw duplex byte channel into a line-oriented
// transport: bytes in, CRLF-terminated lines out. It owns the inbound
// buffer the teacher's Port never needed (a tty has no concept of framing),
// so the buffering/partial-line bookkeeping here is new relative to
// Daedaluz-goserial/port_linux.go — only the underlying blocking-read style
// (poll-then-read, surfaced through serialport.Channel) is carried over.
package framer

import (
	"bytes"
	"errors"
	"time"

	"github.com/snhobbs/isp-programmer/serialport"
)

// ErrTimedOut is returned by ReadLine when no LF arrives before the
// deadline. It is a plain sentinel, not an IspError: the sync handshake
// treats a timeout as an expected input, not a failure (§9's re-architecting
// of "timeouts as control flow" into typed results).
var ErrTimedOut = errors.New("framer: read timed out")

// Framer buffers bytes read from a Channel and yields CRLF-delimited lines.
// Partial lines survive across ReadLine calls; nothing is dropped except by
// an explicit Reset.
type Framer struct {
	ch          serialport.Channel
	inbound     []byte
	timeout     time.Duration
	byteSleep   time.Duration // inter-byte pacing delay used by Write
	pacedWrites bool
}

// New wraps ch. timeout is the default per-call ReadLine deadline.
func New(ch serialport.Channel) *Framer {
	return &Framer{ch: ch, timeout: time.Second}
}

// SetTimeout changes the per-call ReadLine/ReadRaw deadline. New starts at
// 1s and handshake.Sync sets 100ms for its probe byte, then 5s; ReadMemory
// uses whatever deadline is set and does not raise it.
func (f *Framer) SetTimeout(d time.Duration) {
	f.timeout = d
	f.ch.SetReadTimeout(d)
}

// SetBytePacing sets the delay written between each outbound byte. Some
// targets drop bytes fed at line rate right after a baud change; a zero
// delay disables pacing entirely.
func (f *Framer) SetBytePacing(d time.Duration) {
	f.byteSleep = d
	f.pacedWrites = d > 0
}

// ReadLine blocks until a full CRLF-terminated line is available or the
// configured timeout elapses, returning the accumulated bytes up to and
// including the trailing LF. On timeout, bytes read so far remain queued in
// the inbound buffer for the next call.
func (f *Framer) ReadLine() (string, error) {
	deadline := time.Now().Add(f.timeout)
	buf := make([]byte, 256)
	for {
		if idx := bytes.IndexByte(f.inbound, '\n'); idx >= 0 {
			line := f.inbound[:idx+1]
			f.inbound = f.inbound[idx+1:]
			out := string(line)
			return out, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrTimedOut
		}
		f.ch.SetReadTimeout(remaining)
		n, err := f.ch.Read(buf)
		if n > 0 {
			f.inbound = append(f.inbound, buf[:n]...)
			continue
		}
		if err != nil {
			if errors.Is(err, serialport.ErrTimeout) {
				continue
			}
			return "", err
		}
	}
}

// ReadRaw reads exactly n bytes with no line framing applied, for the raw
// payloads that follow "R" responses. Bytes already queued in the inbound
// buffer (e.g. read ahead while hunting for a line terminator) are
// consumed first.
func (f *Framer) ReadRaw(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	if len(f.inbound) > 0 {
		take := len(f.inbound)
		if take > n {
			take = n
		}
		out = append(out, f.inbound[:take]...)
		f.inbound = f.inbound[take:]
	}
	deadline := time.Now().Add(f.timeout)
	buf := make([]byte, 256)
	for len(out) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out, ErrTimedOut
		}
		f.ch.SetReadTimeout(remaining)
		r, err := f.ch.Read(buf)
		if r > 0 {
			need := n - len(out)
			if r > need {
				f.inbound = append(f.inbound, buf[need:r]...)
				r = need
			}
			out = append(out, buf[:r]...)
			continue
		}
		if err != nil {
			if errors.Is(err, serialport.ErrTimeout) {
				continue
			}
			return out, err
		}
	}
	return out, nil
}

// ReadAvailable drains whatever is already queued on the channel into the
// inbound buffer without blocking for more.
func (f *Framer) ReadAvailable() {
	f.ch.SetReadTimeout(0)
	buf := make([]byte, 256)
	for {
		n, err := f.ch.Read(buf)
		if n > 0 {
			f.inbound = append(f.inbound, buf[:n]...)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			return
		}
	}
}

// Write sends data, pacing one byte at a time when SetBytePacing has
// configured a nonzero delay.
func (f *Framer) Write(data []byte) error {
	if !f.pacedWrites {
		_, err := f.ch.Write(data)
		return err
	}
	for _, b := range data {
		if _, err := f.ch.Write([]byte{b}); err != nil {
			return err
		}
		time.Sleep(f.byteSleep)
	}
	return nil
}

// WriteLine writes s followed by CRLF.
func (f *Framer) WriteLine(s string) error {
	return f.Write([]byte(s + "\r\n"))
}

// Reset discards the inbound buffer, flushes the channel's own buffers,
// and issues up to two bounded ReadLine attempts to drain stale echo before
// returning.
func (f *Framer) Reset() {
	f.inbound = nil
	f.ch.Flush()
	for i := 0; i < 2; i++ {
		if _, err := f.ReadLine(); err != nil {
			break
		}
	}
	f.inbound = nil
}
