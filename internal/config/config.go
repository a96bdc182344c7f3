// Package config loads nbtemplates configuration from file, environment and
// defaults. The resulting Config is a value object fixed at startup and
// shared read-only across request handlers.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jovyan/nbtemplates/internal/templates"
)

// ListenConfig is the HTTP bind address.
type ListenConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AuthConfig controls token authentication. When both Token and HashedToken
// are empty and auth is not disabled, the server generates a token at
// startup and logs it.
type AuthConfig struct {
	Token       string `mapstructure:"token"`
	HashedToken string `mapstructure:"hashed_token"`
	Disabled    bool   `mapstructure:"disabled"`
}

// StoreConfig locates the content-store backend.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the full service configuration.
type Config struct {
	// TemplateDirs are the local root directories to enumerate.
	TemplateDirs []string `mapstructure:"template_dirs"`

	// StoreGroups maps catalog group names to content-store root paths,
	// used when LocalFiles is false.
	StoreGroups map[string]string `mapstructure:"store_groups"`

	// LocalFiles selects the local filesystem walk (true) or the content
	// store (false) as the enumeration backend.
	LocalFiles bool `mapstructure:"local_files"`

	// IncludeDefault adds the bundled sample templates. Defaults to the
	// value of LocalFiles.
	IncludeDefault bool `mapstructure:"include_default"`

	// IncludeCorePaths adds the per-installation standard template
	// directories. Defaults to the value of LocalFiles.
	IncludeCorePaths bool `mapstructure:"include_core_paths"`

	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	TemplateLabel     string   `mapstructure:"template_label"`
	BaseURL           string   `mapstructure:"base_url"`

	Listen ListenConfig `mapstructure:"listen"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Store  StoreConfig  `mapstructure:"store"`
}

// Load reads configuration from the given file (or the default search paths
// when empty), applies NBTEMPLATES_* environment overrides, and validates.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("template_dirs", []string{})
	v.SetDefault("store_groups", map[string]string{})
	v.SetDefault("local_files", true)
	v.SetDefault("allowed_extensions", templates.DefaultExtensions())
	v.SetDefault("template_label", templates.DefaultLabel)
	v.SetDefault("base_url", "/")
	v.SetDefault("listen.host", "127.0.0.1")
	v.SetDefault("listen.port", 8888)
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.hashed_token", "")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("store.path", "")

	v.SetEnvPrefix("NBTEMPLATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// These two keys deliberately have no default (they follow local_files
	// when unset), so their env variables must be bound explicitly for
	// Unmarshal to see them.
	_ = v.BindEnv("include_default")
	_ = v.BindEnv("include_core_paths")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("nbtemplates")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, dir := range configSearchDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// include_default and include_core_paths follow local_files unless set
	// explicitly.
	if !v.IsSet("include_default") {
		cfg.IncludeDefault = cfg.LocalFiles
	}
	if !v.IsSet("include_core_paths") {
		cfg.IncludeCorePaths = cfg.LocalFiles
	}

	if cfg.TemplateLabel == "" {
		cfg.TemplateLabel = templates.DefaultLabel
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = templates.DefaultExtensions()
	}
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if !c.LocalFiles {
		if len(c.StoreGroups) == 0 {
			return fmt.Errorf("store backend selected but store_groups is empty")
		}
		if c.Store.Path == "" {
			return fmt.Errorf("store backend selected but store.path is not set")
		}
	}
	if c.Auth.Token != "" && c.Auth.HashedToken != "" {
		return fmt.Errorf("auth.token and auth.hashed_token are mutually exclusive")
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Listen.Port)
	}
	return nil
}

// Roots returns the local directories to walk, in search order: configured
// directories first, then the standard per-installation paths.
func (c *Config) Roots() []string {
	roots := make([]string, 0, len(c.TemplateDirs)+4)
	roots = append(roots, c.TemplateDirs...)
	if c.IncludeCorePaths {
		roots = append(roots, templates.CorePaths()...)
	}
	return roots
}

// NormalizeBaseURL ensures a leading and trailing slash.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func configSearchDirs() []string {
	dirs := make([]string, 0, 2)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "nbtemplates"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "nbtemplates"))
	}
	return dirs
}
