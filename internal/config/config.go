// Package config loads the server's startup parameters, layering sources
// in the order flag > environment variable > TOML file > built-in
// default, in the style of the CLI tooling this project is modeled on.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
)

// MinSchemaVersion is the oldest config-file schema this build understands.
// LoadFile rejects a file declaring an older schema_version rather than
// silently misinterpreting it.
const MinSchemaVersion = "1.0.0"

// Defaults, used when neither a flag, an environment variable, nor the
// config file supplies a value.
const (
	DefaultPort        = 7070
	DefaultMemsizeMB    = 64
	DefaultDumpFolder   = "./dumps"
)

// File is the decoded shape of the optional TOML config file.
type File struct {
	SchemaVersion string `toml:"schema_version"`
	Port          *int   `toml:"port"`
	MemsizeMB     *int   `toml:"memsize_mb"`
	DumpFolder    *string `toml:"dump_folder"`
}

// Config holds the fully resolved startup parameters honored by the
// arena, the RPC transport, and the dump writer.
type Config struct {
	Port       int
	MemsizeMB  int
	DumpFolder string
}

// ArenaBytes returns the arena size in bytes: memsize_mb × 1,048,576.
func (c Config) ArenaBytes() uint64 {
	return uint64(c.MemsizeMB) * 1024 * 1024
}

// Flags carries the values bound to command-line flags; a zero value
// means "not set" and lets a lower-precedence source win.
type Flags struct {
	Port       int
	MemsizeMB  int
	DumpFolder string
}

// LoadFile reads and decodes a TOML config file, validating its schema
// version against MinSchemaVersion.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if f.SchemaVersion != "" {
		have, err := semver.NewVersion(f.SchemaVersion)
		if err != nil {
			return nil, fmt.Errorf("config: invalid schema_version %q: %w", f.SchemaVersion, err)
		}
		min := semver.MustParse(MinSchemaVersion)
		if have.LessThan(min) {
			return nil, fmt.Errorf("config: schema_version %s is older than the minimum supported %s", f.SchemaVersion, MinSchemaVersion)
		}
	}

	return &f, nil
}

// Resolve layers flags, environment variables, an optional file, and
// built-in defaults into a final Config.
func Resolve(flags Flags, file *File) Config {
	cfg := Config{
		Port:       DefaultPort,
		MemsizeMB:  DefaultMemsizeMB,
		DumpFolder: DefaultDumpFolder,
	}

	if file != nil {
		if file.Port != nil {
			cfg.Port = *file.Port
		}
		if file.MemsizeMB != nil {
			cfg.MemsizeMB = *file.MemsizeMB
		}
		if file.DumpFolder != nil {
			cfg.DumpFolder = *file.DumpFolder
		}
	}

	if v := os.Getenv("MEMFLOW_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("MEMFLOW_MEMSIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MemsizeMB = n
		}
	}
	if v := os.Getenv("MEMFLOW_DUMP_FOLDER"); v != "" {
		cfg.DumpFolder = v
	}

	if flags.Port != 0 {
		cfg.Port = flags.Port
	}
	if flags.MemsizeMB != 0 {
		cfg.MemsizeMB = flags.MemsizeMB
	}
	if flags.DumpFolder != "" {
		cfg.DumpFolder = flags.DumpFolder
	}

	return cfg
}
