package ops

import (
	"strings"
	"testing"
	"time"

	"github.com/snhobbs/isp-programmer/chip"
	"github.com/snhobbs/isp-programmer/framer"
	"github.com/snhobbs/isp-programmer/isp"
	"github.com/snhobbs/isp-programmer/serialport"
	"github.com/snhobbs/isp-programmer/session"
	"github.com/stretchr/testify/require"
)

func testProtocol(ch *serialport.Mock) *isp.Protocol {
	f := framer.New(ch)
	f.SetTimeout(20 * time.Millisecond)
	return isp.New(f, 5)
}

func testChip() chip.Description {
	return chip.Description{
		FlashStart:  0,
		FlashSize:   0x8000,
		SectorCount: 32,
		RAMStart:    0x10000000,
		RAMSize:     0x2000,
	}
}

func TestMassEraseUnlocksPrepsAndErasesWholePart(t *testing.T) {
	ch := serialport.NewMock(9600)
	p := testProtocol(ch)
	ch.Feed([]byte("0\r\n0\r\n0\r\n"))

	require.NoError(t, MassErase(p, testChip()))
	require.Equal(t, []byte("U 23130\r\nP 0 31\r\nE 0 31\r\n"), ch.Written())
}

func TestReadSectorReadsOneSectorAtOffset(t *testing.T) {
	ch := serialport.NewMock(9600)
	p := testProtocol(ch)
	payload := make([]byte, chip.SectorBytes)
	for i := range payload {
		payload[i] = byte(i)
	}
	ch.Feed(append([]byte("0\r\n"), payload...))

	data, err := ReadSector(p, testChip(), 2)
	require.NoError(t, err)
	require.Equal(t, payload, data)
	require.Equal(t, "R 2048 1024\r\n", string(ch.Written()))
}

func TestFindFirstBlankSectorStopsAtFirstBlankSector(t *testing.T) {
	ch := serialport.NewMock(9600)
	p := testProtocol(ch)
	// sectors 0, 1 not blank (code + two diagnostic lines each); sector 2 blank.
	ch.Feed([]byte("8\r\n1\r\n2\r\n8\r\n1\r\n2\r\n0\r\n"))

	sector, err := FindFirstBlankSector(p, testChip())
	require.NoError(t, err)
	require.Equal(t, uint32(2), sector)
}

func TestFindFirstBlankSectorFallsBackToLastSector(t *testing.T) {
	ch := serialport.NewMock(9600)
	p := testProtocol(ch)
	c := testChip()
	c.SectorCount = 2

	ch.OnWrite = func(b []byte) {
		if strings.HasPrefix(string(b), "I ") {
			ch.Feed([]byte("8\r\n1\r\n2\r\n"))
		}
	}

	sector, err := FindFirstBlankSector(p, c)
	require.NoError(t, err)
	require.Equal(t, uint32(1), sector)
}

func TestReadImageConcatenatesSectorsBeforeFirstBlank(t *testing.T) {
	ch := serialport.NewMock(9600)
	p := testProtocol(ch)
	c := testChip()
	c.SectorCount = 4

	sector0 := make([]byte, chip.SectorBytes)
	sector1 := make([]byte, chip.SectorBytes)
	for i := range sector0 {
		sector0[i] = 0xAA
		sector1[i] = 0xBB
	}

	reads := 0
	ch.OnWrite = func(b []byte) {
		s := string(b)
		switch {
		case strings.HasPrefix(s, "I "):
			if reads < 2 {
				ch.Feed([]byte("8\r\n1\r\n2\r\n"))
			} else {
				ch.Feed([]byte("0\r\n"))
			}
			reads++
		case strings.HasPrefix(s, "R "):
			if strings.HasPrefix(s, "R 0 ") {
				ch.Feed(append([]byte("0\r\n"), sector0...))
			} else {
				ch.Feed(append([]byte("0\r\n"), sector1...))
			}
		}
	}

	image, err := ReadImage(p, c)
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, sector0...), sector1...), image)
}

// TestSetupChipColdSyncAndPartQuery scripts a cold autobaud sync followed by
// the echo-off/baud/part-id negotiation against a serialport.Mock, and checks
// that the session ends Negotiated at the requested baud with echo off and
// the part resolved from the catalog.
func TestSetupChipColdSyncAndPartQuery(t *testing.T) {
	ch := serialport.NewMock(9600)
	ch.OnWrite = func(w []byte) {
		switch string(w) {
		case "?":
			ch.Feed([]byte("Synchronized\r\n"))
		case "Synchronized\r\n":
			ch.Feed([]byte("OK\r\n"))
		case "A 1\r\n":
			ch.Feed([]byte("A 1\r\n0\r\n"))
		case "A 0\r\n":
			ch.Feed([]byte("0\r\n"))
		case "B 115200 1\r\n":
			ch.Feed([]byte("0\r\n"))
		case "J\r\n":
			ch.Feed([]byte("0\r\n134513218\r\n"))
		}
	}

	catalog, err := chip.ParseCatalog(strings.NewReader(
		"134513218,LPC802,0x0,0x4000,16,0x0,0x10000000,0x800,0x0,0x800,0\n"))
	require.NoError(t, err)

	cfg := SetupConfig{
		Baud:                115200,
		CrystalFrequencyKHz: 12000,
		Catalog:             catalog,
		Timing:              timingForMock(),
	}

	sess, proto, desc, err := setupChipOnChannel(ch, cfg)
	require.NoError(t, err)
	require.Equal(t, session.Negotiated, sess.State)
	require.Equal(t, uint32(115200), sess.Baud)
	require.False(t, proto.EchoOn())
	require.Equal(t, uint32(134513218), desc.PartID)
	require.Equal(t, uint32(12000), desc.CrystalFrequencyKHz)
}

func timingForMock() session.TimingProfile {
	t := session.DefaultTimingProfile()
	t.SetBaudrateSleep = 0
	t.ReturnCodeSleep = 0
	t.SerialSleep = 0
	return t
}
