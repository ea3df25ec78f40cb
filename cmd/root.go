// Package cmd provides the stencil command-line interface.
//
// Configuration is read, lowest priority first, from defaults, a
// .stencil.yml file in the working directory (or the file named by --config
// or STENCIL_CONFIG_FILE), STENCIL_<SECTION>_<OPTION> environment variables
// and command-line flags.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/conneroisu/stencil/internal/config"
	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/site"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stencil",
	Short: "A static site builder with templates and partials",
	Long: `Stencil builds a static site from HTML and text pages. Pages declare a
template and fill its named sections; templates and pages pull in partials.

Quick Start:
  stencil new my-site        Create a site from the default skeleton
  stencil build              Build the site into output/local
  stencil build --release    Build the site into output/release
  stencil serve              Serve the site with live reload
  stencil clean              Remove built output`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		// Build failures carry a code; anything else is a usage problem.
		if errors.Code(err) == "" {
			fmt.Fprintln(os.Stderr, "Run 'stencil --help' for usage.")
		}
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .stencil.yml, can also use STENCIL_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringP("root", "r", ".", "site root directory")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	AddFlagValidation(rootCmd.PersistentFlags(), "log-level", ValidateLogLevel)
}

// initConfig points viper at the config file and binds flags and the
// environment. A missing config file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stencil")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	bindFlags()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds flags to their config keys. It runs on every execution so
// bindings survive viper.Reset.
func bindFlags() {
	bindings := map[string]struct {
		cmd  *cobra.Command
		flag string
	}{
		"site.root":      {rootCmd, "root"},
		"log.level":      {rootCmd, "log-level"},
		"log.format":     {rootCmd, "log-format"},
		"server.port":    {serveCmd, "port"},
		"server.host":    {serveCmd, "host"},
		"watch.debounce": {watchCmd, "debounce"},
	}

	for key, b := range bindings {
		flag := b.cmd.PersistentFlags().Lookup(b.flag)
		if flag == nil {
			flag = b.cmd.Flags().Lookup(b.flag)
		}
		if flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}

// loadConfig loads the configuration and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg.Log, cmd.ErrOrStderr()), nil
}

func newLogger(cfg config.LogConfig, w io.Writer) logging.Logger {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Format,
		Output: w,
	})
}

// openSite loads the configured site root.
func openSite(cfg *config.Config, logger logging.Logger, release bool) (*site.Site, error) {
	return site.Open(cfg.Site.Root,
		site.WithLayout(cfg.Build.Layout()),
		site.WithLogger(logger),
		site.WithRelease(release))
}
