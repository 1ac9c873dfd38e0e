// Package ops assembles the protocol/flash-write primitives into the
// whole-device operations a CLI actually calls: mass erase, sector/image
// readback, and the open-sync-identify sequence a session starts with.
// Grounded on original_source's free functions at the bottom of
// ISPConnection.py (MassErase, FindFirstBlankSector, ReadImage, ReadSector,
// SetupChip).
package ops

import (
	"fmt"
	"time"

	"github.com/snhobbs/isp-programmer/chip"
	"github.com/snhobbs/isp-programmer/flashwriter"
	"github.com/snhobbs/isp-programmer/handshake"
	"github.com/snhobbs/isp-programmer/isp"
	"github.com/snhobbs/isp-programmer/serialport"
	"github.com/snhobbs/isp-programmer/session"
)

// MassErase unlocks and erases every sector of c, reusing the same
// prep-then-erase pair WriteFlashSector issues per sector, but in one shot
// across the whole part.
func MassErase(p *isp.Protocol, c chip.Description) error {
	last := c.SectorCount - 1
	if err := p.Unlock(); err != nil {
		return err
	}
	if err := p.PrepSectorsForWrite(0, last); err != nil {
		return err
	}
	return p.EraseSector(0, last)
}

// ReadSector reads exactly one flash sector's worth of bytes starting at
// sector.
func ReadSector(p *isp.Protocol, c chip.Description, sector uint32) ([]byte, error) {
	start := c.FlashStart + sector*chip.SectorBytes
	return p.ReadMemory(c, start, chip.SectorBytes)
}

// FindFirstBlankSector linear-searches from sector 0 for the first sector
// that reads blank across the remainder of the part, returning the last
// sector if no blank run exists (SPEC_FULL.md §4.8).
func FindFirstBlankSector(p *isp.Protocol, c chip.Description) (uint32, error) {
	last := c.SectorCount - 1
	for sector := uint32(0); sector < c.SectorCount; sector++ {
		blank, err := p.CheckSectorsBlank(sector, last)
		if err != nil {
			return 0, err
		}
		if blank {
			return sector, nil
		}
	}
	return last, nil
}

// ReadImage concatenates every sector up to (not including) the first blank
// sector, recovering the programmed image without assuming its length.
func ReadImage(p *isp.Protocol, c chip.Description) ([]byte, error) {
	blank, err := FindFirstBlankSector(p, c)
	if err != nil {
		return nil, err
	}
	image := make([]byte, 0, blank*chip.SectorBytes)
	for sector := uint32(0); sector < blank; sector++ {
		data, err := ReadSector(p, c, sector)
		if err != nil {
			return nil, err
		}
		image = append(image, data...)
	}
	return image, nil
}

// SetupConfig gathers everything SetupChip needs to open a link and
// identify the part on the other end.
type SetupConfig struct {
	Device              string
	Baud                uint32
	CrystalFrequencyKHz uint32
	Catalog             *chip.Catalog
	NoSync              bool
	Timing              session.TimingProfile
}

// SetupChip opens device, optionally runs the cold-sync handshake, asserts
// the target baud rate, reads the part ID off the wire, and resolves it
// against catalog. Mirrors the original's SetupChip: open → (sync) →
// set-baud → read-part-id → look up descriptor.
func SetupChip(cfg SetupConfig) (*session.Session, *isp.Protocol, chip.Description, error) {
	startBaud := cfg.Baud
	if !cfg.NoSync {
		startBaud = 9600
	}

	port, err := serialport.Open(cfg.Device, startBaud, time.Second)
	if err != nil {
		return nil, nil, chip.Description{}, fmt.Errorf("setup chip: %w", err)
	}

	return setupChipOnChannel(port, cfg)
}

// setupChipOnChannel runs the sync/echo/baud/part-id negotiation over an
// already-open channel, so tests can drive it against a serialport.Mock
// without a real tty.
func setupChipOnChannel(port serialport.Channel, cfg SetupConfig) (*session.Session, *isp.Protocol, chip.Description, error) {
	sess := session.New(port, cfg.Timing, nil)
	proto := isp.New(sess.Framer, 5)

	if !cfg.NoSync {
		sess.Framer.SetBytePacing(cfg.Timing.SerialSleep)
		if err := handshake.Sync(sess.Framer); err != nil {
			port.Close()
			return nil, nil, chip.Description{}, err
		}
		sess.State = session.Synced

		// The handshake's raw "A 1" write left the device actually echoing;
		// tell proto so GetReturnCode discards the echoed "A 0" line below
		// instead of misparsing it as the return code.
		proto.SetEchoOn(true)
		if err := proto.SetEcho(false); err != nil {
			port.Close()
			return nil, nil, chip.Description{}, err
		}
		sess.Framer.SetBytePacing(0)
	}

	if err := proto.SetBaudRate(cfg.Baud, 1); err != nil {
		port.Close()
		return nil, nil, chip.Description{}, err
	}
	if err := port.SetBaud(cfg.Baud); err != nil {
		port.Close()
		return nil, nil, chip.Description{}, err
	}
	sess.Baud = cfg.Baud
	time.Sleep(cfg.Timing.SetBaudrateSleep)
	sess.Framer.Reset()

	partID, err := proto.ReadPartID()
	if err != nil {
		port.Close()
		return nil, nil, chip.Description{}, err
	}

	desc, ok := cfg.Catalog.Lookup(partID)
	if !ok {
		port.Close()
		return nil, nil, chip.Description{}, fmt.Errorf("setup chip: unrecognized part id %d", partID)
	}
	desc.CrystalFrequencyKHz = cfg.CrystalFrequencyKHz
	sess.State = session.Negotiated

	return sess, proto, desc, nil
}

// NewWriter builds a flashwriter.Writer bound to the Protocol/Session/
// Description SetupChip produced, the usual next step for any write path.
func NewWriter(p *isp.Protocol, c chip.Description, sess *session.Session) *flashwriter.Writer {
	return flashwriter.New(p, c, sess)
}
