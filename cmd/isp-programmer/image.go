package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// loadImage reads the byte sequence a write command should program: raw
// binary for any extension other than .hex/.ihex, decoded Intel HEX
// otherwise (SPEC_FULL.md §6's "core accepts the decoded byte sequence
// only" — callers never see record types or checksums).
func loadImage(path string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".hex" || ext == ".ihex" {
		return decodeIntelHexFile(path)
	}
	return os.ReadFile(path)
}

// decodeIntelHexFile implements the record subset an LPC boot image
// actually needs: type 00 (data), 01 (EOF), 04 (extended linear address).
// Records of other types are rejected rather than silently skipped, since a
// flash image using segmented addressing or a start-address record would
// silently mis-locate under this subset.
func decodeIntelHexFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []byte
	var upperAddr uint32
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			return nil, fmt.Errorf("%s:%d: not an Intel HEX record", path, lineNo)
		}
		raw, err := hex.DecodeString(line[1:])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if len(raw) < 5 {
			return nil, fmt.Errorf("%s:%d: record too short", path, lineNo)
		}
		byteCount := int(raw[0])
		addr := uint32(raw[1])<<8 | uint32(raw[2])
		recType := raw[3]
		data := raw[4 : 4+byteCount]

		switch recType {
		case 0x00:
			full := upperAddr + addr
			if need := int(full) + len(data); need > len(out) {
				out = append(out, make([]byte, need-len(out))...)
			}
			copy(out[full:], data)
		case 0x01:
			return out, nil
		case 0x04:
			if len(data) != 2 {
				return nil, fmt.Errorf("%s:%d: malformed extended linear address record", path, lineNo)
			}
			upperAddr = (uint32(data[0])<<8 | uint32(data[1])) << 16
		default:
			return nil, fmt.Errorf("%s:%d: unsupported Intel HEX record type %#x", path, lineNo, recType)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
