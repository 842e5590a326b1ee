package config

// validConfig returns a Config that passes Validate without any
// further adjustment, for tests that only want to flip one field.
func validConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO"},
		Server: ServerConfig{
			ShardID:           3,
			ListenAddr:        ":9999",
			MaxUDPMTU:         1400,
			TransientDeadline: 300_000_000_000,
			ShutdownTimeout:   30_000_000_000,
		},
		Store: StoreConfig{
			DataDir:     "/var/lib/ternshard",
			Secret:      "00112233445566778899aabbccddeeff",
			InfoCacheMB: 64,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		BlockServices: []BlockServiceConfig{
			{
				ID:            1,
				FailureDomain: "00112233445566778899aabbccddeeff",
				Location:      0,
				StorageClass:  "FLASH",
				Key:           "ffeeddccbbaa99887766554433221100",
			},
			{
				ID:            2,
				FailureDomain: "11112233445566778899aabbccddeeff",
				Location:      0,
				StorageClass:  "HDD",
				Key:           "eeeeddccbbaa99887766554433221100",
			},
		},
		LocationFailover: []FailoverEntry{
			{FromLocation: 0, FromStorageClass: "HDD", ToLocation: 0, ToStorageClass: "FLASH"},
		},
	}
}
