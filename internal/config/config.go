// Package config resolves Cortex's runtime configuration: scan limits,
// watcher tuning, the on-disk store location, and the active embedding
// model's dimension.
//
// Configuration order of precedence, lowest to highest:
//  1. Hardcoded defaults (NewConfig)
//  2. User config (~/.config/cortex/config.yaml)
//  3. Environment variables (CORTEX_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is Cortex's complete runtime configuration.
type Config struct {
	Scan   ScanConfig   `yaml:"scan" json:"scan"`
	Watch  WatchConfig  `yaml:"watch" json:"watch"`
	Store  StoreConfig  `yaml:"store" json:"store"`
	Vector VectorConfig `yaml:"vector" json:"vector"`
}

// ScanConfig configures the Scanner (§4.2).
type ScanConfig struct {
	// MaxFileSize is the size in bytes above which a file is skipped and
	// recorded as a warning rather than indexed. Default 200MB.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
	// FollowSymlinks controls whether symlink entries are indexed; when
	// false they are skipped. Symlinked directories are never descended
	// into, whatever the setting. Default false.
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`
	// VisitDotfiles controls whether dotfile/dot-directory descendants of
	// a root are visited. The root itself is always visited regardless.
	// Default false.
	VisitDotfiles bool `yaml:"visit_dotfiles" json:"visit_dotfiles"`
	// AllowExtensions is the allow-list of lowercase extensions (without
	// the dot) emitted by the scanner. Empty entry "" matches extensionless
	// files.
	AllowExtensions []string `yaml:"allow_extensions" json:"allow_extensions"`
	// FallbackPlainText enables emitting files whose extension is not in
	// AllowExtensions through the plain-text extractor path anyway.
	FallbackPlainText bool `yaml:"fallback_plain_text" json:"fallback_plain_text"`
	// DenyDirs is the fixed deny-list of directory names never descended
	// into, in addition to user-supplied exclude patterns.
	DenyDirs []string `yaml:"deny_dirs" json:"deny_dirs"`
	// ExcludePatterns are additional gitignore-syntax exclude patterns.
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns"`
}

// WatchConfig configures the Watcher (§4.3).
type WatchConfig struct {
	DebounceWindowMS int      `yaml:"debounce_window_ms" json:"debounce_window_ms"`
	PollIntervalS    int      `yaml:"poll_interval_s" json:"poll_interval_s"`
	EventBufferSize  int      `yaml:"event_buffer_size" json:"event_buffer_size"`
	IgnorePatterns   []string `yaml:"ignore_patterns" json:"ignore_patterns"`
}

// StoreConfig configures the Store (§4.1).
type StoreConfig struct {
	// Path is the on-disk database file path. Empty means resolve the
	// conventional per-user location via DefaultStorePath.
	Path string `yaml:"path" json:"path"`
	// CacheSizeKB is a SQLite page cache size in KB. store.Open does not
	// read it: the Store always applies its own fixed cache_size pragma
	// (64 MB).
	CacheSizeKB int `yaml:"cache_size_kb" json:"cache_size_kb"`
	// BusyTimeoutMS is a lock-wait bound in milliseconds. store.Open does
	// not read it: the Store always uses a fixed 5000 ms busy_timeout.
	BusyTimeoutMS int `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// VectorConfig configures the Vector Layer (§4.8).
type VectorConfig struct {
	// Dimension is the expected vector width for the active model.
	Dimension int `yaml:"dimension" json:"dimension"`
	// Model is the active model version tag consulted by search.
	Model string `yaml:"model" json:"model"`
	// SimilarityThreshold is the default minimum cosine similarity for
	// semantic_search/similar_files.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	// Alpha is the default reciprocal-rank-fusion weight on the semantic
	// side for hybrid_search.
	Alpha float64 `yaml:"alpha" json:"alpha"`
}

var defaultDenyDirs = []string{"node_modules", "target", "dist", "build", ".git", ".svn"}

// NewConfig returns Cortex's hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			MaxFileSize:       200 * 1024 * 1024,
			FollowSymlinks:    false,
			VisitDotfiles:     false,
			AllowExtensions:   []string{"txt", "md", "markdown", "mdx", "docx", "pdf", ""},
			FallbackPlainText: false,
			DenyDirs:          append([]string(nil), defaultDenyDirs...),
			ExcludePatterns:   nil,
		},
		Watch: WatchConfig{
			DebounceWindowMS: 200,
			PollIntervalS:    5,
			EventBufferSize:  1000,
			IgnorePatterns:   nil,
		},
		Store: StoreConfig{
			Path:          "",
			CacheSizeKB:   65536,
			BusyTimeoutMS: 5000,
		},
		Vector: VectorConfig{
			Dimension:           384,
			Model:               "default",
			SimilarityThreshold: 0.7,
			Alpha:               0.6,
		},
	}
}

// Load builds a Config from defaults, an optional user config file, and
// environment variable overrides.
func Load() (*Config, error) {
	cfg := NewConfig()

	userPath := UserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("load user config %s: %w", userPath, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// UserConfigPath returns the conventional per-user config file location.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cortex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "cortex", "config.yaml")
	}
	return filepath.Join(home, ".config", "cortex", "config.yaml")
}

// DefaultStorePath returns the conventional per-user data directory path
// for the Cortex database file, per SPEC_FULL.md §6.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cortex", "cortex.db")
	}
	return filepath.Join(home, ".cortex", "cortex.db")
}

// ResolvedStorePath returns Store.Path if set, else DefaultStorePath().
func (c *Config) ResolvedStorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return DefaultStorePath()
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORTEX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CORTEX_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Scan.MaxFileSize = n
		}
	}
	if v := os.Getenv("CORTEX_VECTOR_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Vector.Alpha = f
		}
	}
	if v := os.Getenv("CORTEX_VECTOR_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vector.Dimension = n
		}
	}
}

// Validate rejects configurations that would put components into an
// inconsistent state.
func (c *Config) Validate() error {
	if c.Scan.MaxFileSize <= 0 {
		return fmt.Errorf("scan.max_file_size must be positive, got %d", c.Scan.MaxFileSize)
	}
	if c.Vector.Dimension <= 0 {
		return fmt.Errorf("vector.dimension must be positive, got %d", c.Vector.Dimension)
	}
	if c.Vector.Alpha < 0 || c.Vector.Alpha > 1 {
		return fmt.Errorf("vector.alpha must be within [0,1], got %f", c.Vector.Alpha)
	}
	if c.Vector.SimilarityThreshold < -1 || c.Vector.SimilarityThreshold > 1 {
		return fmt.Errorf("vector.similarity_threshold must be within [-1,1], got %f", c.Vector.SimilarityThreshold)
	}
	if c.Watch.DebounceWindowMS < 0 || c.Watch.PollIntervalS < 0 || c.Watch.EventBufferSize <= 0 {
		return fmt.Errorf("watch config values must be non-negative, buffer size positive")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
