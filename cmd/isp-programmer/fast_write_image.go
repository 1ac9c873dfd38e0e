package main

import (
	"bytes"

	"github.com/snhobbs/isp-programmer/flashwriter"
	"github.com/snhobbs/isp-programmer/ops"
	"github.com/spf13/cobra"
)

var fastWriteImageCmd = &cobra.Command{
	Use:   "fast-write-image",
	Short: "Read back flash first and skip the write entirely if it already matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		imagein, _ := cmd.Flags().GetString("imagein")
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

		current, err := ops.ReadImage(proto, desc)
		if err != nil {
			return fail(err)
		}
		if len(current) >= len(image) && bytes.Equal(current[:len(image)], image) {
			logger.Println("already programmed, skipping write")
			return nil
		}

		w := flashwriter.New(proto, desc, sess)
		w.Sess.Timing.FlashWriteSleep = 0
		if err := w.WriteImage(image); err != nil {
			return fail(err)
		}
		if err := proto.Go(desc.FlashStart, false); err != nil {
			return fail(err)
		}
		logger.Println("fast-write-image successful")
		return nil
	},
}

func init() {
	fastWriteImageCmd.Flags().String("imagein", "", "image file to program")
	_ = fastWriteImageCmd.MarkFlagRequired("imagein")
	rootCmd.AddCommand(fastWriteImageCmd)
}
