// Package config loads vgadepth settings.
//
// Settings come from three layers, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, by default $XDG_CONFIG_HOME/vgadepth/config.toml
//  3. VGADEPTH_* environment variables, after loading .env from the
//     working directory
//
// A missing default file is not an error; a missing explicit file is.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
)

const appName = "vgadepth"

// DefaultMaxCells is the default grid size limit, a 4096x4096 grid.
const DefaultMaxCells = 1 << 24

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the complete configuration.
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Cache    CacheConfig    `toml:"cache"`
	Persist  PersistConfig  `toml:"persist"`
	Server   ServerConfig   `toml:"server"`
}

// AnalysisConfig holds engine and input defaults.
type AnalysisConfig struct {
	// Delimiter separates fields in points files. "tab" or "\t" means tab.
	Delimiter  string `toml:"delimiter"`
	CheckEvery int    `toml:"check_every"`
	// MaxCells bounds the grid size of loaded graphs. 0 disables the bound.
	MaxCells   int    `toml:"max_cells"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	MemoryEntries int      `toml:"memory_entries"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Prefix        string   `toml:"prefix"`
}

// PersistConfig names the database sinks. Empty values disable a sink.
type PersistConfig struct {
	SQLitePath      string `toml:"sqlite_path"`
	PostgresDSN     string `toml:"postgres_dsn"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	RunTimeout Duration `toml:"run_timeout"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Delimiter:  "\t",
			CheckEvery: 1024,
			MaxCells:   DefaultMaxCells,
		},
		Cache: CacheConfig{
			Backend:       CacheFile,
			TTL:           Duration{7 * 24 * time.Hour},
			MemoryEntries: 256,
		},
		Persist: PersistConfig{
			MongoDatabase:   "vgadepth",
			MongoCollection: "attribute_columns",
		},
		Server: ServerConfig{
			Addr:       ":8080",
			RunTimeout: Duration{5 * time.Minute},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vgadepth/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/vgadepth, falling back to
// ~/.cache.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load builds the configuration from defaults, the TOML file at path (or
// the default path when empty) and the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		err := cfg.loadFile(path)
		if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.Cache.Dir == "" {
		if dir, err := DefaultCacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if errors.Is(err, fs.ErrNotExist) {
		return vgaerrors.Wrap(vgaerrors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	if err != nil {
		return vgaerrors.Wrap(vgaerrors.ErrCodeInvalidFormat, err, "config file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return vgaerrors.New(vgaerrors.ErrCodeInvalidFormat, "config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// applyEnv overrides fields from VGADEPTH_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return vgaerrors.Wrap(vgaerrors.ErrCodeInvalidArgument, err, "%s", key)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		if err := dst.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return vgaerrors.Wrap(vgaerrors.ErrCodeInvalidArgument, err, "%s", key)
		}
		return nil
	}

	if v, ok := lookup("VGADEPTH_DELIMITER"); ok && v != "" {
		c.Analysis.Delimiter = v
	}
	str("VGADEPTH_CACHE_BACKEND", &c.Cache.Backend)
	str("VGADEPTH_CACHE_DIR", &c.Cache.Dir)
	str("VGADEPTH_CACHE_PREFIX", &c.Cache.Prefix)
	str("VGADEPTH_REDIS_ADDR", &c.Cache.RedisAddr)
	str("VGADEPTH_REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("VGADEPTH_SQLITE_PATH", &c.Persist.SQLitePath)
	str("VGADEPTH_POSTGRES_DSN", &c.Persist.PostgresDSN)
	str("VGADEPTH_MONGO_URI", &c.Persist.MongoURI)
	str("VGADEPTH_MONGO_DATABASE", &c.Persist.MongoDatabase)
	str("VGADEPTH_MONGO_COLLECTION", &c.Persist.MongoCollection)
	str("VGADEPTH_SERVER_ADDR", &c.Server.Addr)

	for key, dst := range map[string]*int{
		"VGADEPTH_CHECK_EVERY":    &c.Analysis.CheckEvery,
		"VGADEPTH_MAX_CELLS":      &c.Analysis.MaxCells,
		"VGADEPTH_MEMORY_ENTRIES": &c.Cache.MemoryEntries,
		"VGADEPTH_REDIS_DB":       &c.Cache.RedisDB,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*Duration{
		"VGADEPTH_CACHE_TTL":   &c.Cache.TTL,
		"VGADEPTH_RUN_TIMEOUT": &c.Server.RunTimeout,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}

	// PORT is honored for container platforms that set it.
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		port = strings.TrimSpace(port)
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		c.Server.Addr = port
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheMemory, CacheRedis, CacheNone:
	default:
		return vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "unknown cache backend %q (must be one of: file, memory, redis, none)", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "redis cache requires redis_addr")
	}
	if c.Analysis.CheckEvery < 1 {
		return vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "check_every must be at least 1")
	}
	if c.Analysis.MaxCells < 0 {
		return vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "max_cells must not be negative")
	}
	if _, err := c.Analysis.DelimiterRune(); err != nil {
		return err
	}
	return nil
}

// DelimiterRune returns the points file delimiter as a rune.
func (a AnalysisConfig) DelimiterRune() (rune, error) {
	return ParseDelimiter(a.Delimiter)
}

// ParseDelimiter converts a delimiter setting to a rune. "tab" and the
// two-character escape `\t` mean tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if err := vgaerrors.ValidateDelimiter(r); err != nil {
		return 0, err
	}
	return r, nil
}

// String renders the configuration as TOML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Cache.RedisPassword != "" {
		masked.Cache.RedisPassword = "****"
	}
	if masked.Persist.PostgresDSN != "" {
		masked.Persist.PostgresDSN = maskDSN(masked.Persist.PostgresDSN)
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(masked); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

// maskDSN hides the password in a URL-style DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if i := strings.Index(userinfo, ":"); i >= 0 {
		return dsn[:scheme+3] + userinfo[:i] + ":****" + dsn[at:]
	}
	return dsn
}
