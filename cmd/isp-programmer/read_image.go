package main

import (
	"os"

	"github.com/snhobbs/isp-programmer/ops"
	"github.com/spf13/cobra"
)

var readImageCmd = &cobra.Command{
	Use:   "read-image",
	Short: "Read every programmed sector up to the first blank one and write it to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		imageout, _ := cmd.Flags().GetString("imageout")

		catalog, err := openCatalog()
		if err != nil {
			return fail(err)
		}
		sess, proto, desc, err := setupChip(catalog)
		if err != nil {
			return fail(err)
		}
		defer sess.Close()

		image, err := ops.ReadImage(proto, desc)
		if err != nil {
			return fail(err)
		}
		if err := os.WriteFile(imageout, image, 0o644); err != nil {
			return fail(err)
		}
		logger.Printf("read %d bytes to %s", len(image), imageout)
		return nil
	},
}

func init() {
	readImageCmd.Flags().String("imageout", "", "output file for the read-back image")
	_ = readImageCmd.MarkFlagRequired("imageout")
	rootCmd.AddCommand(readImageCmd)
}
