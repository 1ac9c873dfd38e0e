// Command isp-programmer drives an NXP LPC ISP bootloader over a serial
// link: synchronize, identify the part, and erase/write/read its flash.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
