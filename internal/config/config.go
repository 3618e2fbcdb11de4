/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	DataDir   string `yaml:"data_dir"`
	StaticDir string `yaml:"static_dir"`
	HotReload bool   `yaml:"hot_reload"`
	// MaxUploadMB caps multipart uploads on POST /user.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// PagesConfig describes the fixed-size page canvases. Units are CSS pixels.
type PagesConfig struct {
	Count  int     `yaml:"count"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Margin float64 `yaml:"margin"`
	Gap    float64 `yaml:"gap"`
}

type EditorConfig struct {
	HistoryDepth int     `yaml:"history_depth"`
	Padding      float64 `yaml:"padding"`
	Spacing      float64 `yaml:"spacing"`
	OpacityStep  float64 `yaml:"opacity_step"`
	ScaleStep    float64 `yaml:"scale_step"`
	RotationStep int     `yaml:"rotation_step"`
}

type DatabaseConfig struct {
	// PostgresDSN switches position persistence from positions.json to Postgres when set.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ClientConfig is used by the headless CLI commands that talk to a running server.
type ClientConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Server        ServerConfig   `yaml:"server"`
	Pages         PagesConfig    `yaml:"pages"`
	Editor        EditorConfig   `yaml:"editor"`
	Database      DatabaseConfig `yaml:"database"`
	Client        ClientConfig   `yaml:"client"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Server:        ServerConfig{Addr: ":3000", DataDir: ".", StaticDir: "", HotReload: false, MaxUploadMB: 32},
		Pages:         PagesConfig{Count: 2, Width: 794, Height: 1123, Margin: 20, Gap: 40},
		Editor: EditorConfig{
			HistoryDepth: 100,
			Padding:      20,
			Spacing:      15,
			OpacityStep:  0.05,
			ScaleStep:    0.05,
			RotationStep: 5,
		},
		Client:  ClientConfig{BaseURL: "http://localhost:3000", TimeoutMs: 15000},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "PGB_CONFIG"
	EnvAddr            = "PGB_ADDR"
	EnvDataDir         = "PGB_DATA_DIR"
	EnvStaticDir       = "PGB_STATIC_DIR"
	EnvHotReload       = "PGB_HOT_RELOAD"
	EnvPostgresDSN     = "PGB_PG_DSN"
	EnvServerURL       = "PGB_SERVER_URL"
	EnvClientTimeoutMs = "PGB_CLIENT_TIMEOUT_MS"
	EnvTelemetryOptIn  = "PGB_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PGB_LOG_LEVEL"
	EnvLogFormat = "PGB_LOG_FORMAT"
	EnvLogSource = "PGB_LOG_SOURCE"
	EnvLogFile   = "PGB_LOG_FILE"
)

// ConfigPath returns the per-user config file path. PGB_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Pageboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Pageboard")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "pageboard")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file. A missing file is not an error;
// a malformed one is, but the returned config is still usable (defaults + env).
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	var perr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			perr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, perr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.Server.HotReload = src.Server.HotReload

	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	if s := strings.TrimSpace(src.Server.DataDir); s != "" {
		dst.Server.DataDir = s
	}
	if s := strings.TrimSpace(src.Server.StaticDir); s != "" {
		dst.Server.StaticDir = s
	}
	if src.Server.MaxUploadMB > 0 {
		dst.Server.MaxUploadMB = src.Server.MaxUploadMB
	}

	if src.Pages.Count > 0 {
		dst.Pages.Count = src.Pages.Count
	}
	if src.Pages.Width > 0 {
		dst.Pages.Width = src.Pages.Width
	}
	if src.Pages.Height > 0 {
		dst.Pages.Height = src.Pages.Height
	}
	if src.Pages.Margin > 0 {
		dst.Pages.Margin = src.Pages.Margin
	}
	if src.Pages.Gap > 0 {
		dst.Pages.Gap = src.Pages.Gap
	}

	if src.Editor.HistoryDepth > 0 {
		dst.Editor.HistoryDepth = src.Editor.HistoryDepth
	}
	if src.Editor.Padding > 0 {
		dst.Editor.Padding = src.Editor.Padding
	}
	if src.Editor.Spacing > 0 {
		dst.Editor.Spacing = src.Editor.Spacing
	}
	if src.Editor.OpacityStep > 0 {
		dst.Editor.OpacityStep = src.Editor.OpacityStep
	}
	if src.Editor.ScaleStep > 0 {
		dst.Editor.ScaleStep = src.Editor.ScaleStep
	}
	if src.Editor.RotationStep != 0 {
		dst.Editor.RotationStep = src.Editor.RotationStep
	}

	if s := strings.TrimSpace(src.Database.PostgresDSN); s != "" {
		dst.Database.PostgresDSN = s
	}
	if s := strings.TrimSpace(src.Client.BaseURL); s != "" {
		dst.Client.BaseURL = s
	}
	if src.Client.TimeoutMs != 0 {
		dst.Client.TimeoutMs = src.Client.TimeoutMs
	}

	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Server.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStaticDir)); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHotReload)); v != "" {
		cfg.Server.HotReload = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvClientTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Client.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"server.addr":              EnvAddr,
		"server.data_dir":          EnvDataDir,
		"server.static_dir":        EnvStaticDir,
		"server.hot_reload":        EnvHotReload,
		"database.postgres_dsn":    EnvPostgresDSN,
		"client.base_url":          EnvServerURL,
		"client.timeout_ms":        EnvClientTimeoutMs,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// EffectiveTimeout returns the client timeout, falling back to the default for non-positive values.
func (c ClientConfig) EffectiveTimeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return time.Duration(Defaults().Client.TimeoutMs) * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
