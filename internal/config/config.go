// Package config persists the parameters a store directory was created
// with, so that reopening it on a later run can't silently change the
// chunk size or integrity-verification policy out from under an existing
// object set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/raczzoli/bkp/internal/core/chunker"
	"github.com/raczzoli/bkp/internal/core/worker"
)

const fileName = "config"

// Config holds the store-wide settings fixed at init time.
type Config struct {
	ChunkSize    int  `toml:"chunk_size"`
	VerifyOnRead bool `toml:"verify_on_read"`
	MaxThreads   int  `toml:"max_threads"`
	MaxJobs      int  `toml:"max_jobs"`
}

// Default returns the configuration a freshly initialized store gets.
func Default() Config {
	return Config{
		ChunkSize:    chunker.DefaultChunkSize,
		VerifyOnRead: false,
		MaxThreads:   worker.MaxThreads,
		MaxJobs:      worker.MaxJobs,
	}
}

// Load reads the config file from storeDir. It is an error for the file
// to be missing; callers create one with Save at init time.
func Load(storeDir string) (Config, error) {
	var cfg Config
	path := filepath.Join(storeDir, fileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to storeDir, overwriting any existing config file.
func Save(storeDir string, cfg Config) error {
	path := filepath.Join(storeDir, fileName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a config file is already present in storeDir.
func Exists(storeDir string) bool {
	_, err := os.Stat(filepath.Join(storeDir, fileName))
	return err == nil
}
