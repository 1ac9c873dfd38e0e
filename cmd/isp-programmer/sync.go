package main

import (
	"time"

	"github.com/snhobbs/isp-programmer/framer"
	"github.com/snhobbs/isp-programmer/handshake"
	"github.com/snhobbs/isp-programmer/serialport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the cold-sync handshake against the device and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := serialport.Open(viper.GetString("device"), viper.GetUint32("baud"), time.Second)
		if err != nil {
			return fail(err)
		}
		defer port.Close()

		f := framer.New(port)
		f.SetTimeout(5 * time.Second)
		if err := handshake.Sync(f); err != nil {
			return fail(err)
		}
		logger.Println("synchronized")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
