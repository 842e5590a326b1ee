package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/wire"
)

var gcTransientPageLimit uint16

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Report garbage-collection candidates",
	Long: `shardctl never deletes anything itself (spec: "this engine
only authorizes and records deletion"; actual deletion still flows
through the normal prepare/log/apply path). gc subcommands only
identify candidates an operator or a GC driver would act on.`,
}

var gcTransientCmd = &cobra.Command{
	Use:   "transient",
	Short: "List transient files past their construction deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeEngine, err := openEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		now := shardtypes.TernTime(time.Now().UnixNano())
		start := shardtypes.InodeId(0)
		found := 0
		for {
			page, err := eng.VisitTransientFiles(wire.VisitTransientFilesReq{
				VisitReq: wire.VisitReq{StartID: start, Limit: gcTransientPageLimit},
			})
			if err != nil {
				return err
			}
			for _, id := range page.VisitResp.IDs {
				stat, err := eng.StatTransientFile(wire.StatTransientFileReq{ID: id})
				if err != nil {
					return fmt.Errorf("stat transient file %d: %w", id, err)
				}
				if stat.Deadline != shardtypes.NullTernTime && stat.Deadline < now {
					fmt.Printf("%d\tdeadline=%d\tlast_span_state=%d\n", id, stat.Deadline, stat.LastSpanState)
					found++
				}
			}
			if page.VisitResp.NextID == 0 {
				break
			}
			start = page.VisitResp.NextID
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %d expired transient file(s)\n", found)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
	gcCmd.AddCommand(gcTransientCmd)
	gcCmd.PersistentFlags().Uint16Var(&gcTransientPageLimit, "page-limit", 1024, "visit page size")
}
