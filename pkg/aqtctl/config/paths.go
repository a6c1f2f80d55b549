package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName   = "aqtctl"
	defaultConfigFile      = "config.yaml"
	defaultAccessTokenFile = "access_token"
	defaultRefreshFile     = "refresh_token"
)

func DefaultConfigPath() string {
	if env := os.Getenv("AQTCTL_CONFIG"); env != "" {
		return env
	}
	return filepath.Join(DefaultAppDir(), defaultConfigFile)
}

// DefaultAppDir is where tokens are stored unless app_dir says otherwise.
func DefaultAppDir() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aqtctl")
}

func (c *Config) AccessTokenPath() string {
	return filepath.Join(c.appDir(), defaultAccessTokenFile)
}

func (c *Config) RefreshTokenPath() string {
	return filepath.Join(c.appDir(), defaultRefreshFile)
}

func (c *Config) appDir() string {
	if c.AppDir != "" {
		return c.AppDir
	}
	return DefaultAppDir()
}
