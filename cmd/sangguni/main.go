package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{Use: "sangguni"}

	root.AddCommand(serveCMD(), migrateCMD(), ingestCMD(), searchCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
