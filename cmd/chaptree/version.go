package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/chaptree"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chaptree",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chaptree version %s\n", strings.TrimSpace(chaptree.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
