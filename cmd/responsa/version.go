package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/responsa-ai/responsa/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version needs no configuration or logger
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Responsa version %s\n", common.GetFullVersion())
	},
}
