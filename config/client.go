package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultClientConfigPath = "~/.config/flashcards/config.toml"
	defaultDataDir          = "~/.local/share/flashcards"
	defaultServerURL        = "http://localhost:8080"
)

// Client is the CLI configuration.
type Client struct {
	ServerURL string `toml:"server_url"`
	Token     string `toml:"token"`
	DataDir   string `toml:"data_dir"`
}

// LoadClient reads the CLI config at path (the default location when
// empty), falling back to defaults when the file is missing.
// FLASHCARDS_SERVER and FLASHCARDS_TOKEN override the file.
func LoadClient(path string) (Client, error) {
	resolved, err := resolvePath(path, defaultClientConfigPath)
	if err != nil {
		return Client{}, err
	}

	var cfg Client
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Client{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Client{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("FLASHCARDS_SERVER")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FLASHCARDS_TOKEN")); v != "" {
		cfg.Token = v
	}

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.DataDir, err = expandPath(cfg.DataDir); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// SaveClient writes cfg to path (the default location when empty).
func SaveClient(path string, cfg Client) error {
	resolved, err := resolvePath(path, defaultClientConfigPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, resolved)
}

func resolvePath(path, fallback string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(fallback)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
