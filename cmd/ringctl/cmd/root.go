package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ringctl",
	Short: "Operator CLI for the ring metadata engine",
	Long: `ringctl is a debugging and inspection tool for the ring metadata
engine. It does not start a server or join a cluster; it exercises the
engine's token and configuration logic directly against local input.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
