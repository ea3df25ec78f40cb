// Package config provides configuration management for stencil using Viper
// for loading from a .stencil.yml file, STENCIL_ environment variables and
// command-line flags.
//
// Every key has a default, so a site without a config file builds with the
// conventional layout: pages at the root, partials and templates named with a
// leading underscore, assets in assets/ and output in output/local.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/stencil/internal/site"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = ".stencil.yml"
	// EnvPrefix prefixes environment overrides, e.g. STENCIL_SERVER_PORT.
	EnvPrefix = "STENCIL"
)

// EnvKeyReplacer maps nested keys to environment variable names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

type Config struct {
	Site   SiteConfig   `mapstructure:"site" yaml:"site"`
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type SiteConfig struct {
	Root  string `mapstructure:"root" yaml:"root"`
	Title string `mapstructure:"title" yaml:"title,omitempty"`
}

type BuildConfig struct {
	PageExtensions  []string `mapstructure:"page_extensions" yaml:"page_extensions"`
	ExcludePattern  string   `mapstructure:"exclude_pattern" yaml:"exclude_pattern"`
	AssetsDir       string   `mapstructure:"assets_dir" yaml:"assets_dir"`
	OutputDir       string   `mapstructure:"output_dir" yaml:"output_dir"`
	ReleaseDir      string   `mapstructure:"release_dir" yaml:"release_dir"`
	OutputAssetsDir string   `mapstructure:"output_assets_dir" yaml:"output_assets_dir"`
	MaxDepth        int      `mapstructure:"max_depth" yaml:"max_depth"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	LiveReload bool   `mapstructure:"live_reload" yaml:"live_reload"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	layout := site.DefaultLayout()
	return &Config{
		Site: SiteConfig{Root: "."},
		Build: BuildConfig{
			PageExtensions:  layout.PageExtensions,
			ExcludePattern:  layout.ExcludePattern,
			AssetsDir:       layout.AssetsDir,
			OutputDir:       filepath.ToSlash(layout.OutputDir),
			ReleaseDir:      filepath.ToSlash(layout.ReleaseDir),
			OutputAssetsDir: layout.OutputAssetsDir,
			MaxDepth:        layout.MaxDepth,
		},
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8000,
			LiveReload: true,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
			Ignore:   []string{"*.swp", "*~", "*.tmp"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default on v so unset keys, and keys only
// present in the environment, unmarshal correctly.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("site.root", d.Site.Root)
	v.SetDefault("site.title", d.Site.Title)

	v.SetDefault("build.page_extensions", d.Build.PageExtensions)
	v.SetDefault("build.exclude_pattern", d.Build.ExcludePattern)
	v.SetDefault("build.assets_dir", d.Build.AssetsDir)
	v.SetDefault("build.output_dir", d.Build.OutputDir)
	v.SetDefault("build.release_dir", d.Build.ReleaseDir)
	v.SetDefault("build.output_assets_dir", d.Build.OutputAssetsDir)
	v.SetDefault("build.max_depth", d.Build.MaxDepth)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.live_reload", d.Server.LiveReload)

	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.ignore", d.Watch.Ignore)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load unmarshals and validates the global viper configuration.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Workaround for viper slice handling when the key comes from a bound flag.
	if v.IsSet("build.page_extensions") && len(config.Build.PageExtensions) == 0 {
		config.Build.PageExtensions = v.GetStringSlice("build.page_extensions")
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Layout converts the build section to a site layout.
func (c *BuildConfig) Layout() site.Layout {
	return site.Layout{
		PageExtensions:  c.PageExtensions,
		ExcludePattern:  c.ExcludePattern,
		AssetsDir:       filepath.FromSlash(c.AssetsDir),
		OutputDir:       filepath.FromSlash(c.OutputDir),
		ReleaseDir:      filepath.FromSlash(c.ReleaseDir),
		OutputAssetsDir: filepath.FromSlash(c.OutputAssetsDir),
		MaxDepth:        c.MaxDepth,
	}
}

// Address returns host:port.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
