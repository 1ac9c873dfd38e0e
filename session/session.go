// Package session owns the single ByteChannel a programming run talks over
// and the timing/state bookkeeping every layer above it shares.
package session

import (
	"log"
	"time"

	"github.com/snhobbs/isp-programmer/framer"
	"github.com/snhobbs/isp-programmer/serialport"
)

// State names where a Session sits in the synchronisation lifecycle
// (SPEC_FULL.md §3).
type State int

const (
	Cold State = iota
	Synced
	Negotiated
)

func (s State) String() string {
	switch s {
	case Cold:
		return "cold"
	case Synced:
		return "synced"
	case Negotiated:
		return "negotiated"
	default:
		return "unknown"
	}
}

// TimingProfile gathers every named delay the source scattered across call
// sites (SPEC_FULL.md §5/§9) into one struct, so each appears exactly once
// and is independently tunable. Defaults mirror the original Settings
// dataclass (ISPConnection.py).
type TimingProfile struct {
	FlashWriteSleep   time.Duration
	RAMWriteSleep     time.Duration
	ReturnCodeSleep   time.Duration
	SerialSleep       time.Duration
	SerialSleepNoEcho time.Duration
	ReadCRCSleep      time.Duration
	SetBaudrateSleep  time.Duration
	ReadPartIDSleep   time.Duration

	// Verbose gates debug-level logging on the Session's *log.Logger, the
	// analogue of the original's logging.getLogger("ispprogrammer") debug
	// channel.
	Verbose bool
}

// DefaultTimingProfile returns the sleep budget the original implementation
// shipped with.
func DefaultTimingProfile() TimingProfile {
	return TimingProfile{
		FlashWriteSleep:   10 * time.Millisecond,
		RAMWriteSleep:     10 * time.Millisecond,
		ReturnCodeSleep:   50 * time.Millisecond,
		SerialSleep:       10 * time.Millisecond,
		SerialSleepNoEcho: 0,
		ReadCRCSleep:      100 * time.Millisecond,
		SetBaudrateSleep:  time.Second,
		ReadPartIDSleep:   500 * time.Millisecond,
	}
}

// Session owns one ByteChannel and its Framer for the lifetime of a
// programming run. Dropping a Session (Close) tears down the ByteChannel;
// there is no reconnection surface below the caller.
type Session struct {
	Channel serialport.Channel
	Framer  *framer.Framer
	Timing  TimingProfile
	State   State
	EchoOn  bool
	Baud    uint32

	Log *log.Logger
}

// New builds a Session around an already-open Channel. It does not itself
// run the sync handshake; callers drive that separately (handshake.Sync)
// so Session stays a plain value holder.
func New(ch serialport.Channel, timing TimingProfile, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	f := framer.New(ch)
	f.SetTimeout(time.Second)
	return &Session{
		Channel: ch,
		Framer:  f,
		Timing:  timing,
		State:   Cold,
		EchoOn:  true,
		Baud:    ch.Baud(),
		Log:     logger,
	}
}

// Debugf logs only when Timing.Verbose is set.
func (s *Session) Debugf(format string, args ...any) {
	if s.Timing.Verbose {
		s.Log.Printf(format, args...)
	}
}

// Close releases the underlying ByteChannel. Safe to call once; further
// operations on the Session's Framer return the closed Channel's read or
// write error.
func (s *Session) Close() error {
	return s.Channel.Close()
}
