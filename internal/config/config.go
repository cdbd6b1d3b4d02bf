// Package config collects the engine's tunable byte/field budgets into one
// struct, loadable from a TOML file (spec §3.3's row/index/commit byte
// budgets, §3.2's index field cap, and the grouped-aggregate resource
// limits of spec §4.10) the way the teacher's schema files were loaded:
// via github.com/BurntSushi/toml.
package config

import (
	"github.com/BurntSushi/toml"

	"icydb/internal/errs"
)

// EngineConfig holds a single Db instance's resource budgets. The four
// byte/field budgets use SCREAMING_SNAKE_CASE TOML keys; the two
// grouped-aggregate limits use the lower-case keys max_groups and
// max_estimated_bytes. Db keeps the config it is given, but no engine path
// reads these fields.
type EngineConfig struct {
	MaxRowBytes        int `toml:"MAX_ROW_BYTES"`
	MaxIndexEntryBytes int `toml:"MAX_INDEX_ENTRY_BYTES"`
	MaxCommitBytes     int `toml:"MAX_COMMIT_BYTES"`
	MaxIndexFields     int `toml:"MAX_INDEX_FIELDS"`

	// Grouped-aggregate resource limits (spec §4.10): the group-count and
	// estimated-byte caps for a GroupBy. The aggregate executor does not
	// read them, so neither cap is applied.
	MaxGroups           int `toml:"max_groups"`
	MaxGroupEstimateBytes int `toml:"max_estimated_bytes"`
}

// DefaultEngineConfig returns the documented defaults (spec §3.3: 4 MiB
// rows, 64 KiB index entries, §3.2: 8-component index keys).
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxRowBytes:           4 * 1024 * 1024,
		MaxIndexEntryBytes:    64 * 1024,
		MaxCommitBytes:        4*1024*1024 + 64*1024*8 + 4096,
		MaxIndexFields:        8,
		MaxGroups:             10_000,
		MaxGroupEstimateBytes: 16 * 1024 * 1024,
	}
}

// LoadFile reads and decodes an EngineConfig from a TOML file at path,
// starting from DefaultEngineConfig and overlaying whichever fields the
// file declares.
func LoadFile(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return EngineConfig{}, errs.Wrap(errs.Validation, errs.Executor, "config: failed to decode TOML file", err)
	}
	return cfg.Validate()
}

// Validate rejects a config with non-positive budgets, returning the
// config unchanged otherwise. LoadFile calls it; NewDb does not.
func (c EngineConfig) Validate() (EngineConfig, error) {
	switch {
	case c.MaxRowBytes <= 0:
		return EngineConfig{}, errs.New(errs.Validation, errs.Executor, "config: MAX_ROW_BYTES must be positive")
	case c.MaxIndexEntryBytes <= 0:
		return EngineConfig{}, errs.New(errs.Validation, errs.Executor, "config: MAX_INDEX_ENTRY_BYTES must be positive")
	case c.MaxCommitBytes <= 0:
		return EngineConfig{}, errs.New(errs.Validation, errs.Executor, "config: MAX_COMMIT_BYTES must be positive")
	case c.MaxIndexFields <= 0:
		return EngineConfig{}, errs.New(errs.Validation, errs.Executor, "config: MAX_INDEX_FIELDS must be positive")
	case c.MaxGroups <= 0:
		return EngineConfig{}, errs.New(errs.Validation, errs.Executor, "config: max_groups must be positive")
	case c.MaxGroupEstimateBytes <= 0:
		return EngineConfig{}, errs.New(errs.Validation, errs.Executor, "config: max_estimated_bytes must be positive")
	}
	return c, nil
}
