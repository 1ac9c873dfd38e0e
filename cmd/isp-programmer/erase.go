package main

import (
	"github.com/snhobbs/isp-programmer/ops"
	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Mass-erase every flash sector",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := openCatalog()
		if err != nil {
			return fail(err)
		}
		sess, proto, desc, err := setupChip(catalog)
		if err != nil {
			return fail(err)
		}
		defer sess.Close()

		if err := ops.MassErase(proto, desc); err != nil {
			return fail(err)
		}
		logger.Println("mass erase successful")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}
