package config

import (
	"encoding/hex"
	"fmt"

	"github.com/ternfs/shard/pkg/blockservices"
	"github.com/ternfs/shard/pkg/engine"
	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
)

// BuildStoreConfig decodes cfg.Store into a store.Config, including
// hex-decoding the shard secret.
func BuildStoreConfig(cfg *Config) (store.Config, error) {
	var secret [shardcrypto.SecretSize]byte
	if err := decodeHexFixed(cfg.Store.Secret, secret[:]); err != nil {
		return store.Config{}, fmt.Errorf("store.secret: %w", err)
	}
	return store.Config{
		ShardID:     shardtypes.ShardId(cfg.Server.ShardID),
		DataDir:     cfg.Store.DataDir,
		Secret:      secret,
		InfoCacheMB: cfg.Store.InfoCacheMB,
	}, nil
}

// BuildEngineConfig converts cfg's server and failover settings into an
// engine.Config.
func BuildEngineConfig(cfg *Config) (engine.Config, error) {
	failover := make(map[engine.FailoverKey]engine.FailoverKey, len(cfg.LocationFailover))
	for i, f := range cfg.LocationFailover {
		fromSC, err := parseStorageClass(f.FromStorageClass)
		if err != nil {
			return engine.Config{}, fmt.Errorf("location_failover[%d].from_storage_class: %w", i, err)
		}
		toSC, err := parseStorageClass(f.ToStorageClass)
		if err != nil {
			return engine.Config{}, fmt.Errorf("location_failover[%d].to_storage_class: %w", i, err)
		}
		from := engine.FailoverKey{Location: shardtypes.LocationId(f.FromLocation), StorageClass: fromSC}
		to := engine.FailoverKey{Location: shardtypes.LocationId(f.ToLocation), StorageClass: toSC}
		failover[from] = to
	}

	return engine.Config{
		MaxUDPMTU:         cfg.Server.MaxUDPMTU,
		TransientDeadline: cfg.Server.TransientDeadline,
		LocationFailover:  failover,
	}, nil
}

// BuildBlockServiceCache builds a blockservices.StaticCache from cfg's
// static block-service registry. A daemon that learns block services
// from an external registry instead builds its own blockservices.Cache
// and ignores this helper.
func BuildBlockServiceCache(cfg *Config) (*blockservices.StaticCache, error) {
	entries := make([]blockservices.Info, 0, len(cfg.BlockServices))
	for i, bs := range cfg.BlockServices {
		sc, err := parseStorageClass(bs.StorageClass)
		if err != nil {
			return nil, fmt.Errorf("block_services[%d].storage_class: %w", i, err)
		}

		var fd blockservices.FailureDomain
		if err := decodeHexFixed(bs.FailureDomain, fd[:]); err != nil {
			return nil, fmt.Errorf("block_services[%d].failure_domain: %w", i, err)
		}

		var secret [shardcrypto.SecretSize]byte
		if err := decodeHexFixed(bs.Key, secret[:]); err != nil {
			return nil, fmt.Errorf("block_services[%d].key: %w", i, err)
		}
		key, err := shardcrypto.ExpandKey(secret)
		if err != nil {
			return nil, fmt.Errorf("block_services[%d].key: %w", i, err)
		}

		entries = append(entries, blockservices.Info{
			ID:            shardtypes.BlockServiceId(bs.ID),
			FailureDomain: fd,
			Location:      shardtypes.LocationId(bs.Location),
			StorageClass:  sc,
			Flags:         bs.Flags,
			Key:           key,
		})
	}
	return blockservices.NewStaticCache(entries), nil
}

func parseStorageClass(s string) (shardtypes.StorageClass, error) {
	switch s {
	case "FLASH":
		return shardtypes.StorageClassFlash, nil
	case "HDD":
		return shardtypes.StorageClassHDD, nil
	default:
		return 0, fmt.Errorf("unknown storage class %q", s)
	}
}

func decodeHexFixed(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
