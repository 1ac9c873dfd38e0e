// Package handshake implements the ISP autobaud synchronisation procedure
// (SPEC_FULL.md §4.3): the dialogue that recovers a known protocol state
// from a device that may be cold, mid-handshake, or already in interactive
// mode.
package handshake

import (
	"strings"
	"time"

	ispprogrammer "github.com/snhobbs/isp-programmer"
	"github.com/snhobbs/isp-programmer/framer"
)

// FirstByteTimeout bounds the short read used to detect a device already in
// interactive mode (§9: "the exact timeout is not documented; 100ms is
// suggested").
const FirstByteTimeout = 100 * time.Millisecond

// Sync runs the autobaud handshake on f. On the cold path it ends by
// sending "A 1" to turn echo on (§4.3 step 6); when the device is already
// interactive it returns right after a reset without sending "A 1". It
// does not touch baud rate or
// part identification; callers that need a full session call Sync first,
// then negotiate baud/clock themselves.
func Sync(f *framer.Framer) error {
	f.Reset()

	if err := f.Write([]byte("?")); err != nil {
		return err
	}

	f.SetTimeout(FirstByteTimeout)
	raw, err := f.ReadRaw(1)
	if err == nil && len(raw) == 1 && raw[0] == '?' {
		// Device was already in interactive mode and just echoed our '?'.
		_ = f.WriteLine("")
		f.Reset()
		return nil
	}

	f.SetTimeout(5 * time.Second)
	line, err := f.ReadLine()
	// The probe byte above already consumed the leading 'S' of
	// "Synchronized\r\n" when the device isn't already interactive, so the
	// comparison is against the sync string with its first character
	// dropped — this is the "tolerant of leading garbage" behaviour noted
	// in the original implementation (ISPConnection.SyncConnection).
	if err != nil || !strings.Contains(line, "ynchronized") {
		return ispprogrammer.NewSyncFailureError()
	}

	if err := f.WriteLine("Synchronized"); err != nil {
		return err
	}
	if err := f.WriteLine(""); err != nil {
		return err
	}
	if err := f.WriteLine(""); err != nil {
		return err
	}

	okLine, err := f.ReadLine()
	if err != nil || !strings.Contains(okLine, "OK") {
		return ispprogrammer.NewVerifyFailureError()
	}

	if err := f.WriteLine(""); err != nil {
		return err
	}
	f.Reset()

	if err := f.WriteLine("A 1"); err != nil {
		return err
	}
	// The device answers with the echoed command line and its return code;
	// drain up to two lines without treating a timeout as fatal (this runs
	// below the protocol layer's echo-aware GetReturnCode).
	for i := 0; i < 2; i++ {
		if _, err := f.ReadLine(); err != nil {
			break
		}
	}
	return nil
}
