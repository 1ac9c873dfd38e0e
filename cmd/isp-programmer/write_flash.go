package main

import (
	"github.com/snhobbs/isp-programmer/flashwriter"
	"github.com/spf13/cobra"
)

var writeFlashCmd = &cobra.Command{
	Use:   "write-flash",
	Short: "Write raw image bytes starting at an explicit sector, without the bootable-checksum dance",
	RunE: func(cmd *cobra.Command, args []string) error {
		imagein, _ := cmd.Flags().GetString("imagein")
		startSector, _ := cmd.Flags().GetUint32("start-sector")

		image, err := loadImage(imagein)
		if err != nil {
			return fail(err)
		}

		catalog, err := openCatalog()
		if err != nil {
			return fail(err)
		}
		sess, proto, desc, err := setupChip(catalog)
		if err != nil {
			return fail(err)
		}
		defer sess.Close()

		w := flashwriter.New(proto, desc, sess)
		if err := w.WriteBinaryToFlash(image, startSector); err != nil {
			return fail(err)
		}
		logger.Println("write-flash successful")
		return nil
	},
}

func init() {
	writeFlashCmd.Flags().String("imagein", "", "image file to program")
	writeFlashCmd.Flags().Uint32("start-sector", 0, "sector to start writing at")
	_ = writeFlashCmd.MarkFlagRequired("imagein")
	rootCmd.AddCommand(writeFlashCmd)
}
