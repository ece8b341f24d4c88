package cmd

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [key]",
	Short: "Hash a partition key to its ring token",
	Long: `token hashes key the same way a partitioner would to derive the
ring position it maps to, so an operator can check which range a given
key falls into without instrumenting the running cluster.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	key := args[0]
	sum := xxhash.Sum64String(key)
	tok := token.New(int64(sum))
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", tok)
	return nil
}
