// Package isp encodes the NXP ISP ASCII command set on top of a framer.Framer
// and decodes its return-code/response-line discipline. It is the direct
// analogue of the teacher's Port: a thin typed wrapper around a byte
// transport, except the "bytes" here are CRLF lines rather than raw octets.
package isp

import (
	"fmt"
	"strconv"
	"strings"

	ispprogrammer "github.com/snhobbs/isp-programmer"
	"github.com/snhobbs/isp-programmer/chip"
	"github.com/snhobbs/isp-programmer/framer"
)

// Protocol drives one ISP command/response dialogue over a Framer. It holds
// no chip-specific state itself; the range-checked calls (WriteToRam,
// ReadMemory, CopyRAMToFlash) take a chip.Description explicitly and
// validate against it before anything reaches the wire.
type Protocol struct {
	f       *framer.Framer
	echoOn  bool
	retries int
}

// New wraps f. retries bounds get_return_code's echo/timeout retry loop
// (§4.7; default 5 matches the original's retry(..., count=5)).
func New(f *framer.Framer, retries int) *Protocol {
	if retries <= 0 {
		retries = 5
	}
	return &Protocol{f: f, retries: retries}
}

// SetEchoOn records whether the device is expected to retransmit each
// command line before its return code, so GetReturnCode knows to discard it.
func (p *Protocol) SetEchoOn(on bool) {
	p.echoOn = on
}

// EchoOn reports the current echo assumption.
func (p *Protocol) EchoOn() bool {
	return p.echoOn
}

func trimCRLF(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// sendCommand writes cmd terminated by CRLF.
func (p *Protocol) sendCommand(cmd string) error {
	return p.f.WriteLine(cmd)
}

// GetReturnCode reads one line; if it exactly matches the just-sent command
// (an echo), discards it and reads again. The remainder is parsed as a
// decimal return code. Timeouts and parse failures never propagate as
// errors here: both collapse to NoStatusResponse, matching §4.2's policy
// that read timeouts during status collection are input, not failure.
func (p *Protocol) GetReturnCode(sentCommand string) ispprogrammer.ReturnCode {
	for attempt := 0; attempt < p.retries; attempt++ {
		line, err := p.f.ReadLine()
		if err != nil {
			// nudge: some bootloaders only respond after receiving more
			// traffic; a bare newline sometimes dislodges a stuck reply.
			_ = p.f.WriteLine("")
			continue
		}
		trimmed := trimCRLF(line)
		if p.echoOn && trimmed == trimCRLF(sentCommand) {
			continue
		}
		code, err := strconv.Atoi(trimmed)
		if err != nil {
			return ispprogrammer.NoStatusResponse
		}
		return ispprogrammer.ReturnCode(code)
	}
	return ispprogrammer.NoStatusResponse
}

// AssertSuccess fails unless code is Success. NoStatusResponse (no usable
// status line) fails as a NoResponse error, so retry callers can catch it
// via ErrNoResponseKind; any other code fails as a ReturnCodeFailure.
func AssertSuccess(code ispprogrammer.ReturnCode, call string) error {
	if code.Success() {
		return nil
	}
	if code == ispprogrammer.NoStatusResponse {
		return ispprogrammer.NewNoResponseError(call)
	}
	return ispprogrammer.NewReturnCodeError(code, call)
}

// command issues cmd, reads its status, and asserts success.
func (p *Protocol) command(cmd, callName string) error {
	if err := p.sendCommand(cmd); err != nil {
		return err
	}
	code := p.GetReturnCode(cmd)
	return AssertSuccess(code, callName)
}

// Unlock sends the fixed unlock code required before any write/erase/go
// command (§4.2's "U 23130").
func (p *Protocol) Unlock() error {
	return p.command("U 23130", "Unlock")
}

// SetBaudRate issues "B baud stopbits". It does not itself reconfigure the
// local transport's baud; callers must call the underlying Channel's
// SetBaud once this returns success.
func (p *Protocol) SetBaudRate(baud uint32, stopBits int) error {
	return p.command(fmt.Sprintf("B %d %d", baud, stopBits), "SetBaudRate")
}

// SetEcho issues "A 0|1" and records the new echo state on success.
func (p *Protocol) SetEcho(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := p.command(fmt.Sprintf("A %d", v), "SetEcho"); err != nil {
		return err
	}
	p.echoOn = on
	return nil
}

// WriteToRam requires addr/len to satisfy a legal, word-aligned RAM range.
// It sends "W addr len", asserts Success, then streams data with no line
// terminator. The range check runs before anything touches the wire.
func (p *Protocol) WriteToRam(c chip.Description, addr uint32, data []byte) error {
	if len(data)%chip.WordSize != 0 {
		return ispprogrammer.NewAlignment("word", uint32(len(data)))
	}
	if err := c.CheckRAMRange(addr, uint32(len(data))); err != nil {
		return err
	}
	cmd := fmt.Sprintf("W %d %d", addr, len(data))
	if err := p.sendCommand(cmd); err != nil {
		return err
	}
	code := p.GetReturnCode(cmd)
	if err := AssertSuccess(code, "WriteToRam"); err != nil {
		return err
	}
	return p.f.Write(data)
}

// ReadMemory requires a legal RAM-or-flash range, word-aligned length. It
// sends "R addr len", asserts Success, then reads exactly len raw bytes off
// the line buffer (the device does not terminate this payload).
func (p *Protocol) ReadMemory(c chip.Description, addr uint32, length uint32) ([]byte, error) {
	if length%chip.WordSize != 0 {
		return nil, ispprogrammer.NewAlignment("word", length)
	}
	if err := c.CheckRAMOrFlashRange(addr, length); err != nil {
		return nil, err
	}
	cmd := fmt.Sprintf("R %d %d", addr, length)
	if err := p.sendCommand(cmd); err != nil {
		return nil, err
	}
	code := p.GetReturnCode(cmd)
	if err := AssertSuccess(code, "ReadMemory"); err != nil {
		return nil, err
	}
	return p.f.ReadRaw(int(length))
}

// PrepSectorsForWrite issues "P s e".
func (p *Protocol) PrepSectorsForWrite(start, end uint32) error {
	return p.command(fmt.Sprintf("P %d %d", start, end), "PrepSectorsForWrite")
}

// CopyRAMToFlash requires both ranges legal plus page alignment on the
// flash side. Issues "C flashAddr ramAddr len".
func (p *Protocol) CopyRAMToFlash(c chip.Description, flashAddr, ramAddr, length uint32) error {
	if err := c.CheckFlashRange(flashAddr, length); err != nil {
		return err
	}
	if err := c.CheckRAMRange(ramAddr, length); err != nil {
		return err
	}
	return p.command(fmt.Sprintf("C %d %d %d", flashAddr, ramAddr, length), "CopyRAMToFlash")
}

// Go executes at addr; thumb selects Thumb-mode entry.
func (p *Protocol) Go(addr uint32, thumb bool) error {
	cmd := fmt.Sprintf("G %d A", addr)
	if thumb {
		cmd = fmt.Sprintf("G %d T", addr)
	}
	if err := p.sendCommand(cmd); err != nil {
		return err
	}
	// The device usually leaves ISP mode entirely on success and sends no
	// status line at all; a failing Go still reports a return code.
	code := p.GetReturnCode(cmd)
	if code == ispprogrammer.NoStatusResponse {
		return nil
	}
	return AssertSuccess(code, "Go")
}

// EraseSector issues "E s e".
func (p *Protocol) EraseSector(start, end uint32) error {
	return p.command(fmt.Sprintf("E %d %d", start, end), "EraseSector")
}

// ErasePages issues "X s e".
func (p *Protocol) ErasePages(start, end uint32) error {
	return p.command(fmt.Sprintf("X %d %d", start, end), "ErasePages")
}

// CheckSectorsBlank issues "I s e". It accepts Success or SectorNotBlank;
// on SectorNotBlank it consumes the two diagnostic lines (offset, value)
// and returns false without raising. Any other code is a hard failure.
func (p *Protocol) CheckSectorsBlank(start, end uint32) (bool, error) {
	cmd := fmt.Sprintf("I %d %d", start, end)
	if err := p.sendCommand(cmd); err != nil {
		return false, err
	}
	code := p.GetReturnCode(cmd)
	switch code {
	case ispprogrammer.Success:
		return true, nil
	case ispprogrammer.SectorNotBlank:
		if _, err := p.f.ReadLine(); err != nil {
			return false, err
		}
		if _, err := p.f.ReadLine(); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, AssertSuccess(code, "CheckSectorsBlank")
	}
}

// ReadPartID issues "J" and parses the single decimal response line.
func (p *Protocol) ReadPartID() (uint32, error) {
	return p.readSingleDecimalLine("J")
}

// ReadBootCodeVersion issues "K" and returns (major, minor); the device
// replies minor then major, which this call reorders for callers.
func (p *Protocol) ReadBootCodeVersion() (major, minor uint32, err error) {
	cmd := "K"
	if err = p.sendCommand(cmd); err != nil {
		return 0, 0, err
	}
	code := p.GetReturnCode(cmd)
	if err = AssertSuccess(code, "ReadBootCodeVersion"); err != nil {
		return 0, 0, err
	}
	minorLine, err := p.f.ReadLine()
	if err != nil {
		return 0, 0, err
	}
	majorLine, err := p.f.ReadLine()
	if err != nil {
		return 0, 0, err
	}
	minorVal, err := parseDecimalLine("ReadBootCodeVersion", minorLine)
	if err != nil {
		return 0, 0, err
	}
	majorVal, err := parseDecimalLine("ReadBootCodeVersion", majorLine)
	if err != nil {
		return 0, 0, err
	}
	return majorVal, minorVal, nil
}

// MemoryLocationsEqual issues "M a1 a2 len". It accepts Success or
// CompareError; on CompareError it consumes the one diagnostic line and
// returns false without raising.
func (p *Protocol) MemoryLocationsEqual(addr1, addr2, length uint32) (bool, error) {
	cmd := fmt.Sprintf("M %d %d %d", addr1, addr2, length)
	if err := p.sendCommand(cmd); err != nil {
		return false, err
	}
	code := p.GetReturnCode(cmd)
	switch code {
	case ispprogrammer.Success:
		return true, nil
	case ispprogrammer.CompareError:
		if _, err := p.f.ReadLine(); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, AssertSuccess(code, "MemoryLocationsEqual")
	}
}

// ReadUID issues "N" and returns the four decimal words the device replies
// with.
func (p *Protocol) ReadUID() ([4]uint32, error) {
	var uid [4]uint32
	cmd := "N"
	if err := p.sendCommand(cmd); err != nil {
		return uid, err
	}
	code := p.GetReturnCode(cmd)
	if err := AssertSuccess(code, "ReadUID"); err != nil {
		return uid, err
	}
	for i := 0; i < 4; i++ {
		line, err := p.f.ReadLine()
		if err != nil {
			return uid, err
		}
		v, err := parseDecimalLine("ReadUID", line)
		if err != nil {
			return uid, err
		}
		uid[i] = v
	}
	return uid, nil
}

// ReadCRC issues "S addr len" and returns the device's locally-computed
// CRC32 over that range.
func (p *Protocol) ReadCRC(addr, length uint32) (uint32, error) {
	return p.readSingleDecimalLine(fmt.Sprintf("S %d %d", addr, length))
}

// ReadFlashSig issues "Z s e waits mode" and returns the four reply words.
func (p *Protocol) ReadFlashSig(start, end, waitStates, mode uint32) ([4]uint32, error) {
	var sig [4]uint32
	cmd := fmt.Sprintf("Z %d %d %d %d", start, end, waitStates, mode)
	if err := p.sendCommand(cmd); err != nil {
		return sig, err
	}
	code := p.GetReturnCode(cmd)
	if err := AssertSuccess(code, "ReadFlashSig"); err != nil {
		return sig, err
	}
	for i := 0; i < 4; i++ {
		line, err := p.f.ReadLine()
		if err != nil {
			return sig, err
		}
		v, err := parseDecimalLine("ReadFlashSig", line)
		if err != nil {
			return sig, err
		}
		sig[i] = v
	}
	return sig, nil
}

// ReadWriteFAIM issues "O", toggling the part's FAIM (Flash Accelerator
// In-circuit Memory) access window. Asserts Success; the device returns no
// further data.
func (p *Protocol) ReadWriteFAIM() error {
	return p.command("O", "ReadWriteFAIM")
}

// readSingleDecimalLine issues cmd, asserts success, and parses the single
// reply line as decimal — the shape shared by ReadPartID and ReadCRC.
func (p *Protocol) readSingleDecimalLine(cmd string) (uint32, error) {
	if err := p.sendCommand(cmd); err != nil {
		return 0, err
	}
	code := p.GetReturnCode(cmd)
	if err := AssertSuccess(code, cmd); err != nil {
		return 0, err
	}
	line, err := p.f.ReadLine()
	if err != nil {
		return 0, err
	}
	return parseDecimalLine(cmd, line)
}

func parseDecimalLine(call, line string) (uint32, error) {
	trimmed := trimCRLF(line)
	v, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, ispprogrammer.NewParseResponse(call, trimmed)
	}
	return uint32(v), nil
}
