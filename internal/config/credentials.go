package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Credentials is the persisted session state: where the backend lives and
// the opaque bearer credential attached to every call.
type Credentials struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
}

// credentialsFile resolves the credential store path. TABLEMAP_CONFIG_DIR
// overrides the user config dir.
func credentialsFile(cfg Config) (string, error) {
	dir := cfg.ConfigDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "tablemap")
	}
	return filepath.Join(dir, "credentials.yml"), nil
}

// LoadCredentials reads the stored session. A missing store is not an
// error; it returns empty credentials.
func LoadCredentials(cfg Config) (Credentials, error) {
	path, err := credentialsFile(cfg)
	if err != nil {
		return Credentials{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// SaveCredentials writes the session to the store, creating the directory
// if needed. The file is user-readable only.
func SaveCredentials(cfg Config, creds Credentials) error {
	path, err := credentialsFile(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// ClearCredentials removes the stored session.
func ClearCredentials(cfg Config) error {
	path, err := credentialsFile(cfg)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
