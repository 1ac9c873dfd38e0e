package flashwriter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/snhobbs/isp-programmer/chip"
	"github.com/snhobbs/isp-programmer/crc32check"
	"github.com/snhobbs/isp-programmer/framer"
	"github.com/snhobbs/isp-programmer/isp"
	"github.com/snhobbs/isp-programmer/serialport"
	"github.com/snhobbs/isp-programmer/session"
	"github.com/stretchr/testify/require"
)

func fastTiming() session.TimingProfile {
	return session.TimingProfile{
		FlashWriteSleep:  time.Millisecond,
		RAMWriteSleep:    time.Millisecond,
		ReturnCodeSleep:  time.Millisecond,
		SerialSleep:      0,
		ReadCRCSleep:     time.Millisecond,
		SetBaudrateSleep: time.Millisecond,
		ReadPartIDSleep:  time.Millisecond,
	}
}

func testChip() chip.Description {
	return chip.Description{
		FlashStart:      0,
		FlashSize:       0x8000,
		SectorCount:     32,
		RAMStart:        0x10000000,
		RAMSize:         0x2000,
		RAMBufferOffset: 0x200,
		RAMBufferSize:   0x1000,
	}
}

func newTestWriter(ch *serialport.Mock, c chip.Description) *Writer {
	f := framer.New(ch)
	f.SetTimeout(20 * time.Millisecond)
	p := isp.New(f, 5)
	sess := session.New(ch, fastTiming(), nil)
	sess.Framer = f
	return New(p, c, sess)
}

// TestWriteFlashSectorHappyPath mirrors scenario S3: a sector that starts
// out not matching RAM (forcing the full erase/copy path), then verifies
// clean on the final checks.
func TestWriteFlashSectorHappyPath(t *testing.T) {
	ch := serialport.NewMock(9600)
	w := newTestWriter(ch, testChip())

	data := append([]byte("hello world"), bytes.Repeat([]byte{0xFF}, chip.SectorBytes-11)...)
	wantCRC := crc32check.Sum(data)

	copied := false
	ch.OnWrite = func(b []byte) {
		s := string(b)
		switch {
		case strings.HasPrefix(s, "W "):
			ch.Feed([]byte("0\r\n"))
		case strings.HasPrefix(s, "S "):
			ch.Feed([]byte(fmt.Sprintf("0\r\n%d\r\n", wantCRC)))
		case strings.HasPrefix(s, "M "):
			if copied {
				ch.Feed([]byte("0\r\n"))
			} else {
				ch.Feed([]byte("10\r\n128\r\n"))
			}
		case strings.HasPrefix(s, "P "), strings.HasPrefix(s, "E "), strings.HasPrefix(s, "I "):
			ch.Feed([]byte("0\r\n"))
		case strings.HasPrefix(s, "C "):
			copied = true
			ch.Feed([]byte("0\r\n"))
		}
	}

	require.NoError(t, w.WriteFlashSector(0, data))
}

func TestWriteFlashSectorSafeWriteShortCircuits(t *testing.T) {
	ch := serialport.NewMock(9600)
	w := newTestWriter(ch, testChip())

	data := bytes.Repeat([]byte{0xAA}, chip.SectorBytes)
	wantCRC := crc32check.Sum(data)

	sawErase := false
	ch.OnWrite = func(b []byte) {
		s := string(b)
		switch {
		case strings.HasPrefix(s, "W "):
			ch.Feed([]byte("0\r\n"))
		case strings.HasPrefix(s, "S "):
			ch.Feed([]byte(fmt.Sprintf("0\r\n%d\r\n", wantCRC)))
		case strings.HasPrefix(s, "M "):
			ch.Feed([]byte("0\r\n")) // always equal: already matches
		case strings.HasPrefix(s, "E "):
			sawErase = true
			ch.Feed([]byte("0\r\n"))
		case strings.HasPrefix(s, "P "), strings.HasPrefix(s, "I "), strings.HasPrefix(s, "C "):
			ch.Feed([]byte("0\r\n"))
		}
	}

	require.NoError(t, w.WriteFlashSector(3, data))
	require.False(t, sawErase, "safe-write short-circuit must skip the erase/copy path")
}

// TestWriteImageOrdersSectorsInReverseAndCorruptsFirst mirrors scenario S4:
// a 3-sector image's sectors must be copied to flash in the order 2, 1, 0,
// and the sector-0 corruption write must precede all three.
func TestWriteImageOrdersSectorsInReverseAndCorruptsFirst(t *testing.T) {
	ch := serialport.NewMock(9600)
	w := newTestWriter(ch, testChip())

	var lastStaged []byte
	expectPayload := false
	mCount := 0
	var copyAddrs []uint32

	ch.OnWrite = func(b []byte) {
		if expectPayload {
			lastStaged = append([]byte(nil), b...)
			expectPayload = false
			return
		}
		s := string(b)
		switch {
		case strings.HasPrefix(s, "U "):
			ch.Feed([]byte("0\r\n"))
		case strings.HasPrefix(s, "W "):
			ch.Feed([]byte("0\r\n"))
			expectPayload = true
		case strings.HasPrefix(s, "S "):
			ch.Feed([]byte(fmt.Sprintf("0\r\n%d\r\n", crc32check.Sum(lastStaged))))
		case strings.HasPrefix(s, "M "):
			if mCount%2 == 0 {
				ch.Feed([]byte("10\r\n128\r\n"))
			} else {
				ch.Feed([]byte("0\r\n"))
			}
			mCount++
		case strings.HasPrefix(s, "C "):
			fields := strings.Fields(strings.TrimSpace(s))
			addr, err := strconv.ParseUint(fields[1], 10, 32)
			require.NoError(t, err)
			copyAddrs = append(copyAddrs, uint32(addr))
			ch.Feed([]byte("0\r\n"))
		case strings.HasPrefix(s, "P "), strings.HasPrefix(s, "I "), strings.HasPrefix(s, "E "):
			ch.Feed([]byte("0\r\n"))
		}
	}

	image := bytes.Repeat([]byte{0x01}, 3*chip.SectorBytes-10)
	require.NoError(t, w.WriteImage(image))

	require.Len(t, copyAddrs, 4, "expect 1 corruption write + 3 sector writes")
	require.Equal(t, []uint32{0, 2 * chip.SectorBytes, 1 * chip.SectorBytes, 0}, copyAddrs)
}
