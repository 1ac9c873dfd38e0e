package chip

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Catalog maps a part ID read off the wire to its Description, built from a
// parts-definition file (SPEC_FULL.md §6): line-oriented CSV, comments
// starting with '#', columns part_id(hex), name, flash_start(hex),
// flash_size(hex), sector_count(dec), reset_vector_offset(hex),
// ram_start(hex), ram_size(hex), ram_buffer_offset(hex),
// ram_buffer_size(hex), uuencode_flag. Grounded on original_source's
// parse_lpcparts_string (ispprogrammer/parts_definitions.py).
type Catalog struct {
	byPartID map[uint32]Description
}

// ParseCatalog reads a catalog file from r.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	c := &Catalog{byPartID: make(map[uint32]Description)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < 11 {
			return nil, fmt.Errorf("catalog line %d: expected 11 columns, got %d", lineNo, len(fields))
		}
		d, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", lineNo, err)
		}
		c.byPartID[d.PartID] = d
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseRow(fields []string) (Description, error) {
	partID, err := parseUint(fields[0])
	if err != nil {
		return Description{}, fmt.Errorf("part_id: %w", err)
	}
	flashStart, err := parseUint(fields[2])
	if err != nil {
		return Description{}, fmt.Errorf("flash_start: %w", err)
	}
	flashSize, err := parseUint(fields[3])
	if err != nil {
		return Description{}, fmt.Errorf("flash_size: %w", err)
	}
	sectorCount, err := parseUint(fields[4])
	if err != nil {
		return Description{}, fmt.Errorf("sector_count: %w", err)
	}
	resetVectorOffset, err := parseUint(fields[5])
	if err != nil {
		return Description{}, fmt.Errorf("reset_vector_offset: %w", err)
	}
	ramStart, err := parseUint(fields[6])
	if err != nil {
		return Description{}, fmt.Errorf("ram_start: %w", err)
	}
	ramSize, err := parseUint(fields[7])
	if err != nil {
		return Description{}, fmt.Errorf("ram_size: %w", err)
	}
	ramBufferOffset, err := parseUint(fields[8])
	if err != nil {
		return Description{}, fmt.Errorf("ram_buffer_offset: %w", err)
	}
	ramBufferSize, err := parseUint(fields[9])
	if err != nil {
		return Description{}, fmt.Errorf("ram_buffer_size: %w", err)
	}
	return Description{
		PartID:            uint32(partID),
		Name:              fields[1],
		FlashStart:        uint32(flashStart),
		FlashSize:         uint32(flashSize),
		SectorCount:       uint32(sectorCount),
		ResetVectorOffset: uint32(resetVectorOffset),
		RAMStart:          uint32(ramStart),
		RAMSize:           uint32(ramSize),
		RAMBufferOffset:   uint32(ramBufferOffset),
		RAMBufferSize:     uint32(ramBufferSize),
	}, nil
}

// parseUint accepts both "0x"-prefixed hex and bare decimal, matching
// Python's int(s, 0) used by the original parser.
func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// Lookup returns the Description for partID, or false if it isn't in the
// catalog.
func (c *Catalog) Lookup(partID uint32) (Description, bool) {
	d, ok := c.byPartID[partID]
	return d, ok
}
