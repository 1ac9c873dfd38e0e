package main

import (
	"github.com/snhobbs/isp-programmer/flashwriter"
	"github.com/spf13/cobra"
)

var writeImageCmd = &cobra.Command{
	Use:   "write-image",
	Short: "Write a complete bootable image, sector 0 last, then jump to it",
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

		w := flashwriter.New(proto, desc, sess)
		if err := w.WriteImage(image); err != nil {
			return fail(err)
		}
		if err := proto.Go(desc.FlashStart, false); err != nil {
			return fail(err)
		}
		logger.Println("write-image successful")
		return nil
	},
}

func init() {
	writeImageCmd.Flags().String("imagein", "", "image file to program")
	_ = writeImageCmd.MarkFlagRequired("imagein")
	rootCmd.AddCommand(writeImageCmd)
}
