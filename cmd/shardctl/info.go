package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print shard identity and applied-log cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo()
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo() error {
	eng, closeEngine, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	idx := eng.LastAppliedLogIndex()

	fmt.Printf("shard_id: %d\n", eng.ShardID())
	fmt.Printf("last_applied_log_index: %d\n", idx)
	fmt.Printf("data_dir: %s\n", dataDir)
	return nil
}
