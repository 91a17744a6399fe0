package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	DataDir      string        `json:"data_dir"`
	SpoolDir     string        `json:"spool_dir"`
	NoWatch      bool          `json:"no_watch"`
	DBPath       string        `json:"-"`
	WriteTimeout time.Duration `json:"-"`
}

// Default returns a Config with default values rooted under
// ~/.chatlens.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".chatlens")
	return Config{
		Host:         "127.0.0.1",
		Port:         8094,
		DataDir:      dataDir,
		SpoolDir:     filepath.Join(dataDir, "spool"),
		DBPath:       filepath.Join(dataDir, "analytics.db"),
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file, and
// env, without CLI flags. Subcommands with their own flag sets
// use this.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	cfg.DBPath = filepath.Join(cfg.DataDir, "analytics.db")
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		SpoolDir string `json:"spool_dir"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.SpoolDir != "" {
		c.SpoolDir = file.SpoolDir
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("CHATLENS_DATA_DIR"); v != "" {
		c.DataDir = v
		c.SpoolDir = filepath.Join(v, "spool")
	}
	if v := os.Getenv("CHATLENS_SPOOL_DIR"); v != "" {
		c.SpoolDir = v
	}
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8094, "Port to listen on")
	fs.String("spool-dir", "", "Chat event spool directory")
	fs.Bool("no-watch", false, "Don't watch the spool directory")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "spool-dir":
			cfg.SpoolDir = f.Value.String()
		case "no-watch":
			cfg.NoWatch = f.Value.String() == "true"
		}
	})
}
