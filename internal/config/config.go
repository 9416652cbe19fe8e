// Package config loads zplconv settings from a TOML file, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"tomgalvin.uk/zplconv/internal/convert"
)

type ServerConfig struct {
	Port          int      `toml:"port"`
	MaxUploadSize int64    `toml:"max_upload_size"`
	CorsOrigins   []string `toml:"cors_origins"`
	GinMode       string   `toml:"gin_mode"`
}

func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

type RenderConfig struct {
	Pdftoppm    string `toml:"pdftoppm"`
	Wkhtmltopdf string `toml:"wkhtmltopdf"`
	TempDir     string `toml:"temp_dir"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type PrinterConfig struct {
	// Kind is one of none, tcp, serial, usb or bluetooth.
	Kind      string `toml:"kind"`
	Address   string `toml:"address"`
	BaudRate  int    `toml:"baud_rate"`
	VendorID  uint16 `toml:"vendor_id"`
	ProductID uint16 `toml:"product_id"`
	Name      string `toml:"name"`
}

type WatchConfig struct {
	Input        string `toml:"input"`
	Output       string `toml:"output"`
	Print        bool   `toml:"print"`
	PollInterval int    `toml:"poll_interval"` // seconds, 0 = no rescan
	Workers      int    `toml:"workers"`
}

func (w WatchConfig) PollDuration() time.Duration {
	return time.Duration(w.PollInterval) * time.Second
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

type Config struct {
	Server   ServerConfig    `toml:"server"`
	Render   RenderConfig    `toml:"render"`
	Database DatabaseConfig  `toml:"database"`
	Defaults convert.Options `toml:"defaults"`
	Printer  PrinterConfig   `toml:"printer"`
	Watch    WatchConfig     `toml:"watch"`
	Log      LogConfig       `toml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          8000,
			MaxUploadSize: 10 << 20,
			CorsOrigins:   []string{"*"},
			GinMode:       "debug",
		},
		Render: RenderConfig{
			Pdftoppm:    "pdftoppm",
			Wkhtmltopdf: "wkhtmltopdf",
		},
		Database: DatabaseConfig{Path: "zplconv.db"},
		Defaults: convert.DefaultOptions(),
		Printer: PrinterConfig{
			Kind:     "none",
			BaudRate: 9600,
		},
		Watch: WatchConfig{
			Workers: 2,
		},
		Log: LogConfig{Level: slog.LevelInfo},
	}
}

// Load reads path over the defaults; a missing file leaves the defaults alone.
// Variables in envFile, when it exists, are added to the environment without
// replacing ones already set, and then the environment overrides the file.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("Couldn't parse config %s:\n%w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("Couldn't load %s:\n%w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid conversion defaults:\n%w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Bad PORT %q:\n%w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("MAX_UPLOAD_SIZE"); ok {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("Bad MAX_UPLOAD_SIZE %q:\n%w", v, err)
		}
		c.Server.MaxUploadSize = size
	}
	if v, ok := os.LookupEnv("DATABASE_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv("GIN_MODE"); ok {
		c.Server.GinMode = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := c.Log.Level.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("Bad LOG_LEVEL %q:\n%w", v, err)
		}
	}
	return nil
}
