/*
Package config manages the TOML config of dixserve, with DIXSERVE_* environment overrides on top.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/dictionary"
	"github.com/bastiangx/dixserve/pkg/nav"
	"github.com/bastiangx/dixserve/pkg/paradigm"
	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

// Config holds the entire config structure
type Config struct {
	Nav      NavConfig      `toml:"nav"`
	Index    IndexConfig    `toml:"index"`
	Server   ServerConfig   `toml:"server"`
	CLI      CliConfig      `toml:"cli"`
	Interest InterestConfig `toml:"interest"`
}

// NavConfig bounds structural walks.
type NavConfig struct {
	MaxDistance int    `toml:"max_distance" env:"DIXSERVE_NAV_MAX_DISTANCE"`
	Barrier     string `toml:"barrier" env:"DIXSERVE_NAV_BARRIER"`
	MaxSteps    int    `toml:"max_steps" env:"DIXSERVE_NAV_MAX_STEPS"`
	LexWindow   int    `toml:"lex_window" env:"DIXSERVE_NAV_LEX_WINDOW"`
}

// IndexConfig holds paradigm index options.
type IndexConfig struct {
	MinUnmatched int    `toml:"min_unmatched" env:"DIXSERVE_INDEX_MIN_UNMATCHED"`
	DefaultMode  string `toml:"default_mode" env:"DIXSERVE_INDEX_DEFAULT_MODE"`
	MaxDocuments int    `toml:"max_documents" env:"DIXSERVE_INDEX_MAX_DOCUMENTS"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	HTTPAddr        string `toml:"http_addr" env:"DIXSERVE_HTTP_ADDR"`
	MaxRequestBytes int    `toml:"max_request_bytes" env:"DIXSERVE_MAX_REQUEST_BYTES"`
	MaxFileBytes    int    `toml:"max_file_bytes" env:"DIXSERVE_MAX_FILE_BYTES"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultPType string `toml:"default_ptype" env:"DIXSERVE_CLI_PTYPE"`
	DefaultMode  string `toml:"default_mode" env:"DIXSERVE_CLI_MODE"`
}

// InterestConfig extends the built-in navigation table. An element mapped to an empty list is removed.
type InterestConfig struct {
	Elements map[string][]string `toml:"elements"`
	Skip     []string            `toml:"skip" env:"DIXSERVE_INTEREST_SKIP"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Nav: NavConfig{
			MaxDistance: nav.DefaultMaxDistance,
			Barrier:     "",
			MaxSteps:    nav.DefaultMaxSteps,
			LexWindow:   xmlscan.DefaultWindow,
		},
		Index: IndexConfig{
			MinUnmatched: paradigm.DefaultMinUnmatched,
			DefaultMode:  paradigm.ModeEntries.String(),
			MaxDocuments: paradigm.DefaultMaxDocuments,
		},
		Server: ServerConfig{
			HTTPAddr:        "",
			MaxRequestBytes: 64 << 20,
			MaxFileBytes:    dictionary.DefaultMaxFileSize,
		},
		CLI: CliConfig{
			DefaultPType: "n",
			DefaultMode:  paradigm.ModeEntries.String(),
		},
		Interest: InterestConfig{
			Elements: map[string][]string{},
			Skip:     []string{},
		},
	}
}

// Bound is the search bound for upward walks.
func (c *Config) Bound() nav.Bound {
	return nav.Bound{Barrier: c.Nav.Barrier, MaxDistance: c.Nav.MaxDistance}
}

// Table is the built-in interest table extended by [interest].
func (c *Config) Table() *nav.Table {
	return nav.DefaultTable().Extend(c.Interest.Elements, c.Interest.Skip)
}

// Mode parses index.default_mode, falling back to entries.
func (c *Config) Mode() paradigm.Mode {
	m, err := paradigm.ParseMode(c.Index.DefaultMode)
	if err != nil {
		log.Warnf("Invalid index.default_mode: %v. Using %s", err, paradigm.ModeEntries)
	}
	return m
}

// GetConfigDir returns the config directory with fallback priority:
// 1. the OS user config dir (~/.config on Linux)
// 2. ~/.config
func GetConfigDir() (string, error) {
	if base, err := os.UserConfigDir(); err == nil {
		dir := filepath.Join(base, "dixserve")
		if result := utils.CheckDirStatus(dir); result.Writable {
			return dir, nil
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return "", err
	}
	dir := filepath.Join(homeDir, ".config", "dixserve")
	if result := utils.CheckDirStatus(dir); !result.Writable {
		return "", fmt.Errorf("config directory %s is not writable", dir)
	}
	return dir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/dixserve/config.toml
// 3. Builtin defaults
// Environment overrides are applied last in every case.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	config, path := loadFile(customConfigPath)
	if err := ApplyEnv(config); err != nil {
		return nil, path, err
	}
	return config, path, nil
}

func loadFile(customConfigPath string) (*Config, string) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), ""
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), ""
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath
}

// ApplyEnv overrides config values from DIXSERVE_* variables that are set.
func ApplyEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}
	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed key of a file that failed to decode as a whole.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "nav"); ok {
		extractNavConfig(section, &config.Nav)
	}
	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	if section, ok := utils.ExtractSection(tempConfig, "interest"); ok {
		extractInterestConfig(section, &config.Interest)
	}
	return config, nil
}

func extractNavConfig(data map[string]any, c *NavConfig) {
	if val, ok := utils.ExtractInt64(data, "max_distance"); ok {
		c.MaxDistance = val
	}
	if val, ok := utils.ExtractString(data, "barrier"); ok {
		c.Barrier = val
	}
	if val, ok := utils.ExtractInt64(data, "max_steps"); ok {
		c.MaxSteps = val
	}
	if val, ok := utils.ExtractInt64(data, "lex_window"); ok {
		c.LexWindow = val
	}
}

func extractIndexConfig(data map[string]any, c *IndexConfig) {
	if val, ok := utils.ExtractInt64(data, "min_unmatched"); ok {
		c.MinUnmatched = val
	}
	if val, ok := utils.ExtractString(data, "default_mode"); ok {
		c.DefaultMode = val
	}
	if val, ok := utils.ExtractInt64(data, "max_documents"); ok {
		c.MaxDocuments = val
	}
}

func extractServerConfig(data map[string]any, c *ServerConfig) {
	if val, ok := utils.ExtractString(data, "http_addr"); ok {
		c.HTTPAddr = val
	}
	if val, ok := utils.ExtractInt64(data, "max_request_bytes"); ok {
		c.MaxRequestBytes = val
	}
	if val, ok := utils.ExtractInt64(data, "max_file_bytes"); ok {
		c.MaxFileBytes = val
	}
}

func extractCliConfig(data map[string]any, c *CliConfig) {
	if val, ok := utils.ExtractString(data, "default_ptype"); ok {
		c.DefaultPType = val
	}
	if val, ok := utils.ExtractString(data, "default_mode"); ok {
		c.DefaultMode = val
	}
}

func extractInterestConfig(data map[string]any, c *InterestConfig) {
	if val, ok := utils.ExtractStringSlice(data, "skip"); ok {
		c.Skip = val
	}
	elements, ok := utils.ExtractSection(data, "elements")
	if !ok {
		return
	}
	for name := range elements {
		if attrs, ok := utils.ExtractStringSlice(elements, name); ok {
			c.Elements[name] = attrs
		} else {
			log.Warnf("Ignoring [interest.elements] %s: not a list of strings", name)
		}
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
