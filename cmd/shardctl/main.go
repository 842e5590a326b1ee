// Command shardctl is a read-only and maintenance CLI against a
// shard's on-disk store: it opens the store directly (the daemon
// should not also be running against the same data directory at the
// same time) and exposes the engine's read/visit surface without any
// network layer in between.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir string
	secret  string
)

var rootCmd = &cobra.Command{
	Use:   "shardctl",
	Short: "Read-only and maintenance CLI for a shard's embedded store",
	Long: `shardctl opens a shard's on-disk store directly and exposes
the state engine's read and visit operations from the command line:
shard identity, GC-candidate reporting, and block-service reverse-index
paging. It never writes a log entry itself; mutations it reports on
still have to flow through the normal prepare/log/apply path.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "path to the shard's store data directory (required)")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "hex-encoded 16-byte shard secret (required)")
	rootCmd.PersistentFlags().Uint8Var(&shardIDFlag, "shard-id", 0, "shard id (only consulted on first bootstrap of an empty store)")
	_ = rootCmd.MarkPersistentFlagRequired("data-dir")
	_ = rootCmd.MarkPersistentFlagRequired("secret")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shardctl: %v\n", err)
		os.Exit(1)
	}
}
