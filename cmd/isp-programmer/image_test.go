package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadImageRawBinaryPassesThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	want := []byte{0x01, 0x02, 0x03, 0xFF}
	require.NoError(t, os.WriteFile(path, want, 0o644))

	got, err := loadImage(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeIntelHexFileSingleRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.hex")
	record := buildDataRecord(t, 0, []byte{0xAA, 0xBB})
	require.NoError(t, os.WriteFile(path, []byte(record+"\n:00000001FF\n"), 0o644))

	got, err := loadImage(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestDecodeIntelHexFileExtendedLinearAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.hex")
	ela := buildExtendedLinearAddressRecord(t, 0x0001)
	data := buildDataRecord(t, 0x0004, []byte{0xCC, 0xDD})
	require.NoError(t, os.WriteFile(path, []byte(ela+"\n"+data+"\n:00000001FF\n"), 0o644))

	got, err := loadImage(path)
	require.NoError(t, err)
	require.Len(t, got, 0x10006)
	require.Equal(t, []byte{0xCC, 0xDD}, got[0x10004:0x10006])
}

func TestDecodeIntelHexFileRejectsUnsupportedRecordType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.hex")
	// type 02 (extended segment address) is not in the supported subset.
	require.NoError(t, os.WriteFile(path, []byte(":020000020000FC\n"), 0o644))

	_, err := loadImage(path)
	require.Error(t, err)
}

func buildDataRecord(t *testing.T, addr uint16, data []byte) string {
	t.Helper()
	return buildRecord(t, addr, 0x00, data)
}

func buildExtendedLinearAddressRecord(t *testing.T, upper uint16) string {
	t.Helper()
	return buildRecord(t, 0, 0x04, []byte{byte(upper >> 8), byte(upper)})
}

func buildRecord(t *testing.T, addr uint16, recType byte, data []byte) string {
	t.Helper()
	body := []byte{byte(len(data)), byte(addr >> 8), byte(addr), recType}
	body = append(body, data...)
	sum := byte(0)
	for _, b := range body {
		sum += b
	}
	checksum := byte(0x100 - int(sum))
	record := append(body, checksum)
	return ":" + upperHex(record)
}

func upperHex(b []byte) string {
	const hexDigits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0F]
	}
	return string(out)
}
