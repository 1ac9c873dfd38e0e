package ispprogrammer

// ReturnCode is the single-byte ASCII-decimal status the bootloader sends
// after every command (SPEC_FULL.md §3, §6). NoStatusResponse is a pseudo
// code used internally when the device times out; it never appears on
// the wire.
type ReturnCode byte

const (
	Success                   ReturnCode = 0x00
	InvalidCommand            ReturnCode = 0x01
	SrcAddrError              ReturnCode = 0x02
	DstAddrError              ReturnCode = 0x03
	SrcNotMapped              ReturnCode = 0x04
	DstNotMapped              ReturnCode = 0x05
	CountError                ReturnCode = 0x06
	InvalidSector             ReturnCode = 0x07
	SectorNotBlank            ReturnCode = 0x08
	SectorNotPrepared         ReturnCode = 0x09
	CompareError              ReturnCode = 0x0A
	Busy                      ReturnCode = 0x0B
	ParamError                ReturnCode = 0x0C
	AddrError                 ReturnCode = 0x0D
	AddrNotMapped             ReturnCode = 0x0E
	CmdLocked                 ReturnCode = 0x0F
	InvalidCode               ReturnCode = 0x10
	InvalidBaudRate           ReturnCode = 0x11
	InvalidStopBit            ReturnCode = 0x12
	CodeReadProtectionEnabled ReturnCode = 0x13
	UserCodeChecksum          ReturnCode = 0x15
	EfroNoPower               ReturnCode = 0x17
	FlashNoPower              ReturnCode = 0x18
	FlashNoClock              ReturnCode = 0x1B
	ReinvokeIspConfig         ReturnCode = 0x1C
	NoValidImage              ReturnCode = 0x1D
	FaimNoPower               ReturnCode = 0x1E
	FaimNoClock               ReturnCode = 0x1F

	// NoStatusResponse is reserved internally; §6 states 0xFF never
	// appears on the wire.
	NoStatusResponse ReturnCode = 0xFF
)

var returnCodeNames = map[ReturnCode]string{
	Success:                   "CMD_SUCCESS",
	InvalidCommand:            "INVALID_COMMAND",
	SrcAddrError:              "SRC_ADDR_ERROR",
	DstAddrError:              "DST_ADDR_ERROR",
	SrcNotMapped:              "SRC_ADDR_NOT_MAPPED",
	DstNotMapped:              "DST_ADDR_NOT_MAPPED",
	CountError:                "COUNT_ERROR",
	InvalidSector:             "INVALID_SECTOR",
	SectorNotBlank:            "SECTOR_NOT_BLANK",
	SectorNotPrepared:         "SECTOR_NOT_PREPARED_FOR_WRITE_OPERATION",
	CompareError:              "COMPARE_ERROR",
	Busy:                      "BUSY",
	ParamError:                "PARAM_ERROR",
	AddrError:                 "ADDR_ERROR",
	AddrNotMapped:             "ADDR_NOT_MAPPED",
	CmdLocked:                 "CMD_LOCKED",
	InvalidCode:               "INVALID_CODE",
	InvalidBaudRate:           "INVALID_BAUD_RATE",
	InvalidStopBit:            "INVALID_STOP_BIT",
	CodeReadProtectionEnabled: "CODE_READ_PROTECTION_ENABLED",
	UserCodeChecksum:          "USER_CODE_CHECKSUM",
	EfroNoPower:               "EFRO_NO_POWER",
	FlashNoPower:              "FLASH_NO_POWER",
	FlashNoClock:              "FLASH_NO_CLOCK",
	ReinvokeIspConfig:         "REINVOKE_ISP_CONFIG",
	NoValidImage:              "NO_VALID_IMAGE",
	FaimNoPower:               "FAIM_NO_POWER",
	FaimNoClock:               "FAIM_NO_CLOCK",
	NoStatusResponse:          "NoStatusResponse",
}

func returnCodeName(code byte) string {
	if name, ok := returnCodeNames[ReturnCode(code)]; ok {
		return name
	}
	return "Unknown"
}

// Success reports whether code is the CMD_SUCCESS return code.
func (c ReturnCode) Success() bool {
	return c == Success
}

func (c ReturnCode) String() string {
	return returnCodeName(byte(c))
}
