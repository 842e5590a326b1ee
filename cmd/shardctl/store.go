package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ternfs/shard/pkg/blockservices"
	"github.com/ternfs/shard/pkg/engine"
	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
)

var shardIDFlag uint8

// openEngine opens the store at dataDir and wraps it in an Engine with
// a no-op metrics sink and an empty block-service cache: shardctl's
// commands call neither PrepareXxx nor Apply, the paths that look up
// block services in the cache, so the cache is only there to satisfy
// engine.New's signature.
func openEngine() (*engine.Engine, func(), error) {
	var secretBytes [shardcrypto.SecretSize]byte
	raw, err := hex.DecodeString(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("--secret: invalid hex: %w", err)
	}
	if len(raw) != shardcrypto.SecretSize {
		return nil, nil, fmt.Errorf("--secret: expected %d bytes, got %d", shardcrypto.SecretSize, len(raw))
	}
	copy(secretBytes[:], raw)

	st, err := store.Open(store.Config{
		ShardID: shardtypes.ShardId(shardIDFlag),
		DataDir: dataDir,
		Secret:  secretBytes,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening store at %s: %w", dataDir, err)
	}

	eng := engine.New(st, blockservices.NewStaticCache(nil), engine.Config{
		MaxUDPMTU: 1 << 16,
	}, nil)

	return eng, func() { _ = st.Close() }, nil
}
