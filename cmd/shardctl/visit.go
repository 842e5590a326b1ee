package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/wire"
)

var (
	visitStart uint64
	visitLimit uint16
)

var visitCmd = &cobra.Command{
	Use:   "visit",
	Short: "Page raw inode ids for GC/scrub workers",
}

var visitDirectoriesCmd = &cobra.Command{
	Use:   "directories",
	Short: "Page directory inode ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeEngine, err := openEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		resp, err := eng.VisitDirectories(wire.VisitDirectoriesReq{
			VisitReq: wire.VisitReq{StartID: shardtypes.InodeId(visitStart), Limit: visitLimit},
		})
		if err != nil {
			return err
		}
		printVisitResp(resp.VisitResp)
		return nil
	},
}

var visitFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "Page committed-file inode ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeEngine, err := openEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		resp, err := eng.VisitFiles(wire.VisitFilesReq{
			VisitReq: wire.VisitReq{StartID: shardtypes.InodeId(visitStart), Limit: visitLimit},
		})
		if err != nil {
			return err
		}
		printVisitResp(resp.VisitResp)
		return nil
	},
}

var visitTransientFilesCmd = &cobra.Command{
	Use:   "transient-files",
	Short: "Page transient-file inode ids (the set GC sweeps for expired deadlines)",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeEngine, err := openEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		resp, err := eng.VisitTransientFiles(wire.VisitTransientFilesReq{
			VisitReq: wire.VisitReq{StartID: shardtypes.InodeId(visitStart), Limit: visitLimit},
		})
		if err != nil {
			return err
		}
		printVisitResp(resp.VisitResp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(visitCmd)
	visitCmd.AddCommand(visitDirectoriesCmd, visitFilesCmd, visitTransientFilesCmd)
	visitCmd.PersistentFlags().Uint64Var(&visitStart, "start", 0, "first inode id to include in the page")
	visitCmd.PersistentFlags().Uint16Var(&visitLimit, "limit", 1024, "maximum number of ids to return")
}

func printVisitResp(resp wire.VisitResp) {
	for _, id := range resp.IDs {
		fmt.Printf("%d\n", id)
	}
	if resp.NextID != 0 {
		fmt.Printf("# next: --start=%d\n", resp.NextID)
	}
}
