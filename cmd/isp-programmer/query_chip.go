package main

import (
	"github.com/spf13/cobra"
)

var queryChipCmd = &cobra.Command{
	Use:   "query-chip",
	Short: "Synchronize, identify the part, and print its boot code version and UID",
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

		major, minor, err := proto.ReadBootCodeVersion()
		if err != nil {
			return fail(err)
		}
		uid, err := proto.ReadUID()
		if err != nil {
			return fail(err)
		}

		logger.Printf("part: %s (id 0x%x)", desc.Name, desc.PartID)
		logger.Printf("boot code version: %d.%d", major, minor)
		logger.Printf("uid: %08x%08x%08x%08x", uid[0], uid[1], uid[2], uid[3])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryChipCmd)
}
