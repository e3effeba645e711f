package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the main configuration for horus.
type Config struct {
	User      string           `toml:"user"`
	BaseDir   string           `toml:"base_dir"`
	LogDir    string           `toml:"log_dir"`
	LogLevel  string           `toml:"log_level"` // "debug", "info", "warn" or "error"
	Providers []ProviderConfig `toml:"providers"`
	Naming    NamingConfig     `toml:"naming"`
	Journal   JournalConfig    `toml:"journal"`
	Playback  PlaybackConfig   `toml:"playback"`
}

// ProviderConfig represents one way of reaching the project tree. Providers
// are tried in the order they are listed.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ProviderConfig struct {
	Type    string `toml:"type"`              // "remote", "local", "s3" or "memory"
	Root    string `toml:"root,omitempty"`    // project root on the server or the mount
	Timeout string `toml:"timeout,omitempty"` // probe/request timeout, e.g. "5s"

	// Remote-specific fields (only used when Type == "remote")
	Host                  string `toml:"host,omitempty"`
	Port                  int    `toml:"port,omitempty"`
	SSHUser               string `toml:"ssh_user,omitempty"`
	KeyPath               string `toml:"key_path,omitempty"`
	KnownHostsPath        string `toml:"known_hosts_path,omitempty"`
	InsecureIgnoreHostKey bool   `toml:"insecure_ignore_host_key,omitempty"`
	Sudo                  bool   `toml:"sudo,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// ParsedTimeout returns the configured timeout, or def when none is set.
func (p ProviderConfig) ParsedTimeout(def time.Duration) (time.Duration, error) {
	if p.Timeout == "" {
		return def, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
	}
	return d, nil
}

// NamingConfig overrides the directory name patterns of the project tree.
// Empty lists keep the defaults.
type NamingConfig struct {
	Episodes    []string `toml:"episodes,omitempty"`
	Sequences   []string `toml:"sequences,omitempty"`
	Shots       []string `toml:"shots,omitempty"`
	Departments []string `toml:"departments,omitempty"`
}

// JournalConfig represents configuration for the local operation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// PlaybackConfig controls the paths handed to the media player.
type PlaybackConfig struct {
	Root string `toml:"root,omitempty"` // where the project root is mounted for the player
}

// NewConfig creates a new Config with the provided values and a default
// provider order: the remote server first, then a local mount.
func NewConfig(user, baseDir string) *Config {
	return &Config{
		User:     user,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Providers: []ProviderConfig{
			{Type: "remote", Host: "fileserver", Port: 22, SSHUser: user, Root: "/mnt/projects/horus", Timeout: "5s"},
			{Type: "local", Root: "/mnt/projects/horus"},
		},
		Journal: JournalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
	}
}

// Env holds the environment overrides, read with the HORUS_ prefix
// (HORUS_USER, HORUS_ACCESS, HORUS_LOG_DIR, HORUS_LOG_LEVEL,
// HORUS_PLAYBACK_ROOT).
type Env struct {
	User         string
	Access       string // provider type to try first
	LogDir       string `split_words:"true"`
	LogLevel     string `split_words:"true"`
	PlaybackRoot string `split_words:"true"`
}

// ApplyEnv overlays HORUS_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env Env
	if err := envconfig.Process("horus", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.User != "" {
		cfg.User = env.User
	}
	if env.LogDir != "" {
		cfg.LogDir = env.LogDir
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
	if env.PlaybackRoot != "" {
		cfg.Playback.Root = env.PlaybackRoot
	}
	if env.Access != "" {
		if err := cfg.Prefer(env.Access); err != nil {
			return err
		}
	}
	return nil
}

// Prefer moves the first provider of the given type to the front of the
// list, keeping the others in order.
func (c *Config) Prefer(providerType string) error {
	for i, p := range c.Providers {
		if p.Type != providerType {
			continue
		}
		reordered := append([]ProviderConfig{p}, c.Providers[:i]...)
		c.Providers = append(reordered, c.Providers[i+1:]...)
		return nil
	}
	return fmt.Errorf("no %q provider configured", providerType)
}

// LoadDotEnv loads variables from a .env file if one exists. Variables that
// are already set win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file. It refuses to overwrite an existing one.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
