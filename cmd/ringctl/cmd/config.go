package cmd

import (
	"fmt"

	"github.com/devrev/pairdb/ringmeta/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Validate and print topology configuration",
	Long: `config loads a topology_config file the same way an embedding
process would at startup and prints the resolved values, including any
environment-variable overrides, so an operator can confirm what the
engine would actually start with.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "local_dc_rack: %s/%s\n", cfg.LocalDcRack.Datacenter, cfg.LocalDcRack.Rack)
	fmt.Fprintf(out, "disable_proximity_sorting: %t\n", cfg.DisableProximitySorting)
	fmt.Fprintf(out, "snitch_kind: %s\n", cfg.SnitchKind)
	return nil
}
