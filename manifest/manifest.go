// Package manifest handles bfi.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"github.com/chazu/bfi/pkg/bytecode"
)

// FileName is the name of the configuration file.
const FileName = "bfi.toml"

// Manifest represents a bfi.toml configuration.
type Manifest struct {
	Run   Run         `toml:"run"`
	Tape  Tape        `toml:"tape"`
	Cache CacheConfig `toml:"cache"`
	Log   Log         `toml:"log"`

	// Dir is the directory containing the bfi.toml file (set at load time).
	Dir string `toml:"-"`
}

// Run configures how programs are compiled and executed.
type Run struct {
	Optimize bool `toml:"optimize"`
	Trace    bool `toml:"trace"`
	Stats    bool `toml:"stats"`
}

// Tape configures the data tape.
type Tape struct {
	Reserve int `toml:"reserve"`
}

// CacheConfig configures the compile cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no bfi.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Tape.Reserve <= 0 {
		m.Tape.Reserve = bytecode.DefaultReserve
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".bfi", "cache.db")
	}
}

// Load parses a bfi.toml file from the given directory. Keys that are
// absent keep their Default values.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if m.Log.Verbosity < 0 {
		return nil, fmt.Errorf("%s: log.verbosity must not be negative", path)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a bfi.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ApplyEnv overrides settings from BFI_* environment variables. It runs
// after loading so the environment wins over bfi.toml, and before flags so
// the command line wins over both.
//
//	BFI_OPTIMIZE   run.optimize
//	BFI_RESERVE    tape.reserve
//	BFI_CACHE      cache.path, and enables the cache
//	BFI_VERBOSITY  log.verbosity
//	BFI_LOG_FILE   log.file
func (m *Manifest) ApplyEnv() {
	if env.Str("BFI_OPTIMIZE") != "" {
		m.Run.Optimize = env.Bool("BFI_OPTIMIZE")
	}
	if n := env.Int("BFI_RESERVE", 0); n > 0 {
		m.Tape.Reserve = n
	}
	if p := env.Str("BFI_CACHE"); p != "" {
		m.Cache.Enabled = true
		m.Cache.Path = p
	}
	m.Log.Verbosity = env.Int("BFI_VERBOSITY", m.Log.Verbosity)
	m.Log.File = env.Str("BFI_LOG_FILE", m.Log.File)
}

// CachePath returns the cache database path, resolved against Dir when
// relative.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// LogFile returns the log file path, or "" for stderr.
func (m *Manifest) LogFile() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
