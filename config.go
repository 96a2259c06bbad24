package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/xrdtools/xrdmods/lib"
)

const (
	settingsFileName = "xrdmods.toml"
	envPrefix        = "XRDMODS"

	keyGameFolder       = "game_folder"
	keyAPIURL           = "api_url"
	keyUserAgent        = "user_agent"
	keyConnectTimeout   = "connect_timeout"
	keyRequestTimeout   = "request_timeout"
	keyInstallerTimeout = "installer_timeout"
	keyLogLevel         = "log_level"

	defaultInstallerTimeout = 5 * time.Minute
)

// Settings are the tool options read from xrdmods.toml in the mods folder,
// XRDMODS_* environment variables and flags, in increasing priority.
type Settings struct {
	ModFolder        string        `mapstructure:"-"`
	GameFolder       string        `mapstructure:"game_folder"`
	APIURL           string        `mapstructure:"api_url"`
	UserAgent        string        `mapstructure:"user_agent"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	InstallerTimeout time.Duration `mapstructure:"installer_timeout"`
	LogLevel         string        `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyGameFolder, "")
	v.SetDefault(keyAPIURL, lib.DefaultAPIURL)
	v.SetDefault(keyUserAgent, lib.DefaultUserAgent)
	v.SetDefault(keyConnectTimeout, lib.DefaultConnectTimeout)
	v.SetDefault(keyRequestTimeout, lib.DefaultRequestTimeout)
	v.SetDefault(keyInstallerTimeout, defaultInstallerTimeout)
	v.SetDefault(keyLogLevel, "info")
}

// loadSettings layers defaults, <modFolder>/xrdmods.toml and the environment
// into v and decodes the result. Flags bound to v before the call win.
func loadSettings(v *viper.Viper, modFolder string) (*Settings, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := filepath.Join(modFolder, settingsFileName)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.ModFolder = modFolder
	return &s, nil
}

// defaultSettingsTOML renders the default settings file.
func defaultSettingsTOML() ([]byte, error) {
	doc := map[string]interface{}{
		keyGameFolder:       "",
		keyAPIURL:           lib.DefaultAPIURL,
		keyUserAgent:        lib.DefaultUserAgent,
		keyConnectTimeout:   lib.DefaultConnectTimeout.String(),
		keyRequestTimeout:   lib.DefaultRequestTimeout.String(),
		keyInstallerTimeout: defaultInstallerTimeout.String(),
		keyLogLevel:         "info",
	}
	return toml.Marshal(doc)
}

// writeDefaultSettings creates xrdmods.toml unless it already exists.
func writeDefaultSettings(modFolder string, overwrite bool) (string, error) {
	path := filepath.Join(modFolder, settingsFileName)
	if _, err := os.Stat(path); err == nil && !overwrite {
		return path, fmt.Errorf("%s already exists", path)
	}

	data, err := defaultSettingsTOML()
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(modFolder, 0755); err != nil {
		return "", fmt.Errorf("failed to create mods folder: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write settings: %w", err)
	}
	return path, nil
}

// settingsTOML renders the effective settings.
func settingsTOML(s *Settings) ([]byte, error) {
	return toml.Marshal(map[string]interface{}{
		"mod_folder":        s.ModFolder,
		keyGameFolder:       s.GameFolder,
		keyAPIURL:           s.APIURL,
		keyUserAgent:        s.UserAgent,
		keyConnectTimeout:   s.ConnectTimeout.String(),
		keyRequestTimeout:   s.RequestTimeout.String(),
		keyInstallerTimeout: s.InstallerTimeout.String(),
		keyLogLevel:         s.LogLevel,
	})
}
