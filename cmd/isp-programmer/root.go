package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	ispprogrammer "github.com/snhobbs/isp-programmer"
	"github.com/snhobbs/isp-programmer/chip"
	"github.com/snhobbs/isp-programmer/isp"
	"github.com/snhobbs/isp-programmer/ops"
	"github.com/snhobbs/isp-programmer/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "isp-programmer",
	Short:         "Program NXP LPC parts over the ISP UART bootloader protocol",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("debug") {
			logger.SetFlags(log.Ltime | log.Lshortfile)
		}
		return nil
	},
}

// logger is shared by every subcommand; --debug adds file:line to its
// output and sets the Session's TimingProfile.Verbose flag, which turns on
// the Session's own debug logging rather than a second level here.
var logger = log.New(os.Stderr, "isp-programmer: ", log.Ltime)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("device", "d", "/dev/ttyUSB0", "serial device")
	flags.Uint32P("baud", "b", 9600, "baudrate")
	flags.Uint32P("crystal-frequency", "c", 12000, "crystal frequency of chip in kHz")
	flags.StringP("config-file", "f", "/etc/lpctools_parts.def", "parts definition file")
	flags.Bool("no-sync", false, "assume the link is already synchronized at --baud")
	flags.Float64P("sleep-time", "s", 0.25, "stored as the session's ReturnCodeSleep, in seconds; no command sleeps on it")
	flags.Float64("serial-sleep", 0, "sleep time between serial bytes, in seconds")
	flags.Bool("debug", false, "enable verbose logging")

	_ = viper.BindPFlags(flags)
}

func timingFromFlags() session.TimingProfile {
	t := session.DefaultTimingProfile()
	t.ReturnCodeSleep = time.Duration(viper.GetFloat64("sleep-time") * float64(time.Second))
	t.SerialSleep = time.Duration(viper.GetFloat64("serial-sleep") * float64(time.Second))
	t.Verbose = viper.GetBool("debug")
	return t
}

func openCatalog() (*chip.Catalog, error) {
	f, err := os.Open(viper.GetString("config-file"))
	if err != nil {
		return nil, fmt.Errorf("open parts catalog: %w", err)
	}
	defer f.Close()
	return chip.ParseCatalog(f)
}

func setupConfigFromFlags(catalog *chip.Catalog) ops.SetupConfig {
	return ops.SetupConfig{
		Device:              viper.GetString("device"),
		Baud:                viper.GetUint32("baud"),
		CrystalFrequencyKHz: viper.GetUint32("crystal-frequency"),
		Catalog:             catalog,
		NoSync:              viper.GetBool("no-sync"),
		Timing:              timingFromFlags(),
	}
}

// setupChip opens the device, runs the shared setup sequence, and returns a
// ready-to-use Session/Protocol/Description trio. Every subcommand but sync
// goes through this.
func setupChip(catalog *chip.Catalog) (*session.Session, *isp.Protocol, chip.Description, error) {
	return ops.SetupChip(setupConfigFromFlags(catalog))
}

// fail renders err the way every subcommand's RunE wants: IspError kinds are
// reported with their Kind name, everything else verbatim.
func fail(err error) error {
	var ispErr *ispprogrammer.IspError
	if errors.As(err, &ispErr) {
		return fmt.Errorf("%s: %w", ispErr.Kind, err)
	}
	return err
}
