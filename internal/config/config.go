// Package config loads the ambient configuration a long-running mdbmgo
// process (the admin/inspection daemon in cmd/) reads its defaults from:
// default page size, hash family, locking mode, and cache policy for
// databases it creates, plus where the HTTP admin surface listens.
//
// Struct-tag-driven yaml decoding is grounded on the yaml.v3 usage found
// across the example pack (e.g. SimonWaldherr-tinySQL's fixture loader,
// internal/testhelper/examples_test.go, which unmarshals a `yaml:"..."`
// tagged struct via yaml.Unmarshal); this package applies the same idiom
// to process configuration instead of test fixtures.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nainya/mdbmgo/pkg/cache"
	"github.com/nainya/mdbmgo/pkg/hash"
	"github.com/nainya/mdbmgo/pkg/lock"
)

// Config is the top-level ambient configuration document.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds the defaults applied to mdbm.Create when a caller
// doesn't override them explicitly.
type DatabaseConfig struct {
	PageSize      int    `yaml:"page_size"`
	HashFamily    string `yaml:"hash_family"`
	LockMode      string `yaml:"lock_mode"`
	NumPartitions int    `yaml:"num_partitions"`
	CachePolicy   string `yaml:"cache_policy"`
	LargeObjects  bool   `yaml:"large_objects"`
	LimitPages    uint32 `yaml:"limit_pages"`
}

// AdminConfig configures the HTTP admin/inspection surface.
type AdminConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	EnablePprof bool  `yaml:"enable_pprof"`
}

// LoggingConfig configures the zerolog-backed logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			PageSize:      4096,
			HashFamily:    "CRC32",
			LockMode:      "exclusive",
			NumPartitions: 1,
			CachePolicy:   "NONE",
			LargeObjects:  true,
			LimitPages:    0,
		},
		Admin: AdminConfig{
			ListenAddr:  ":9191",
			EnablePprof: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load reads and merges a YAML configuration file over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// HashID resolves the configured hash family name to its ID, defaulting to
// CRC32 on an unrecognized name.
func (d DatabaseConfig) HashID() hash.ID {
	for id := hash.CRC32; id <= hash.XXHash; id++ {
		if strings.EqualFold(hash.Name(id), d.HashFamily) {
			return id
		}
	}
	return hash.CRC32
}

// LockModeValue resolves the configured lock mode name.
func (d DatabaseConfig) LockModeValue() lock.Mode {
	switch d.LockMode {
	case "exclusive":
		return lock.Exclusive
	case "partitioned":
		return lock.Partitioned
	case "shared":
		return lock.Shared
	case "none":
		return lock.None
	default:
		return lock.Exclusive
	}
}

// CachePolicyValue parses a combined policy name like "LRU|EVICT_CLEAN_FIRST".
func (d DatabaseConfig) CachePolicyValue() cache.Policy {
	return parsePolicy(d.CachePolicy)
}

func parsePolicy(name string) cache.Policy {
	var p cache.Policy
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '|' {
			switch name[start:i] {
			case "LRU":
				p |= cache.LRU
			case "LFU":
				p |= cache.LFU
			case "GDSF":
				p |= cache.GDSF
			case "EVICT_CLEAN_FIRST":
				p |= cache.EvictCleanFirst
			}
			start = i + 1
		}
	}
	return p
}
