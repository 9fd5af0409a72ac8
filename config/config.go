package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Assets  AssetsConfig  `toml:"assets"`
	Reload  ReloadConfig  `toml:"reload"`
	Logging LoggingConfig `toml:"logging"`
}

type AssetsConfig struct {
	Root       string   `toml:"root"`
	Extensions []string `toml:"extensions"` // file types preloaded and watched
	QueueSize  int      `toml:"queue_size"`
}

type ReloadConfig struct {
	Enabled      bool          `toml:"enabled"`
	Debounce     time.Duration `toml:"debounce"`
	PollInterval time.Duration `toml:"poll_interval"` // 0 disables polling
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	File   string `toml:"file"`   // optional copy of the log
	Caller bool   `toml:"caller"`
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Assets.Root == "" {
		return fmt.Errorf("assets.root is empty")
	}
	if c.Assets.QueueSize < 1 {
		return fmt.Errorf("assets.queue_size must be positive, got %d", c.Assets.QueueSize)
	}
	if c.Reload.Debounce < 0 || c.Reload.PollInterval < 0 {
		return fmt.Errorf("reload durations must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Assets: AssetsConfig{
			Root:       "assets",
			Extensions: []string{"png", "gif", "jpg", "jpeg", "bmp", "webp", "yaml", "yml", "toml", "json", "tengo", "wav"},
			QueueSize:  64,
		},
		Reload: ReloadConfig{
			Enabled:  true,
			Debounce: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
