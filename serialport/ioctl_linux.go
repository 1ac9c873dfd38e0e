package serialport

// ioctl request numbers for the termios get/set and flush calls this
// package needs. Trimmed from the teacher's much larger table
// (Daedaluz-goserial/ioctl_linux.go), which also carried RS485, pty and
// modem-line numbers this module's UART-only ISP transport never issues.
var (
	tcgets = uintptr(0x5401)
	tcsets = uintptr(0x5402)

	tcflsh = uintptr(0x540B)
)
