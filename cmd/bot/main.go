// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "moonbag",
	Short:         "Take-profit and trailing-stop exit manager for Solana tokens",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file (yaml or json)")
	rootCmd.AddCommand(runCmd, watchCmd, transferCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "moonbag:", err)
		os.Exit(1)
	}
}
