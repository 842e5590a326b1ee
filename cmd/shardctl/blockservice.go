package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/wire"
)

var (
	blockServiceID    uint64
	blockServiceStart uint64
)

var blockServiceFilesCmd = &cobra.Command{
	Use:   "blockservice-files",
	Short: "Find the next file with blocks on a given block service",
	Long: `Pages through the block-service reverse index one hit at a
time: each call returns the first file id at or after --start with a
positive block count on --id, the primitive a block-service
decommission sweep repeats with --start set to the previous result's
id + 1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeEngine, err := openEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		resp, err := eng.BlockServiceFiles(wire.BlockServiceFilesReq{
			BS:        shardtypes.BlockServiceId(blockServiceID),
			StartFile: shardtypes.InodeId(blockServiceStart),
		})
		if err != nil {
			return err
		}
		if !resp.Found {
			fmt.Println("no more files")
			return nil
		}
		fmt.Printf("file_id: %d\nblock_count: %d\n", resp.FileID, resp.Count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockServiceFilesCmd)
	blockServiceFilesCmd.Flags().Uint64Var(&blockServiceID, "id", 0, "block service id")
	blockServiceFilesCmd.Flags().Uint64Var(&blockServiceStart, "start", 0, "first file id to search from")
	_ = blockServiceFilesCmd.MarkFlagRequired("id")
}
