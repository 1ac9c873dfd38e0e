package chip

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCatalogFindsKnownPart(t *testing.T) {
	f, err := os.Open("../testdata/lpcparts.def")
	require.NoError(t, err)
	defer f.Close()

	catalog, err := ParseCatalog(f)
	require.NoError(t, err)

	d, ok := catalog.Lookup(0x00008041)
	require.True(t, ok)
	require.Equal(t, "LPC1114FN28/102", d.Name)
	require.Equal(t, uint32(0x8000), d.FlashSize)
	require.Equal(t, uint32(32), d.SectorCount)
	require.Equal(t, uint32(0x7FFF), d.FlashEnd())
	require.Equal(t, uint32(0x10000200), d.RAMStartWrite())
}

func TestParseCatalogUnknownPartNotFound(t *testing.T) {
	f, err := os.Open("../testdata/lpcparts.def")
	require.NoError(t, err)
	defer f.Close()

	catalog, err := ParseCatalog(f)
	require.NoError(t, err)

	_, ok := catalog.Lookup(0x0000804)
	require.False(t, ok)
}

func TestCheckFlashRangeRejectsUnalignedAddr(t *testing.T) {
	d := Description{FlashStart: 0, FlashSize: 0x8000}
	err := d.CheckFlashRange(1, SectorBytes)
	require.Error(t, err)
}

func TestCheckFlashRangeAcceptsLegalRange(t *testing.T) {
	d := Description{FlashStart: 0, FlashSize: 0x8000}
	require.NoError(t, d.CheckFlashRange(0, SectorBytes))
}

func TestCheckRAMOrFlashRangeAcceptsFlashAddrPastRAM(t *testing.T) {
	d := Description{
		FlashStart: 0, FlashSize: 0x8000,
		RAMStart: 0x10000000, RAMSize: 0x2000,
	}
	require.NoError(t, d.CheckRAMOrFlashRange(0, SectorBytes))
	require.NoError(t, d.CheckRAMOrFlashRange(0x10000000, WordSize))
}
