package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tiv91/intimshopbot/pkg/config"
	"github.com/tiv91/intimshopbot/pkg/envconfig"
	"github.com/tiv91/intimshopbot/pkg/flags"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "storebot"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Telegram storefront backed by a Google spreadsheet",
		Long: `storebot serves a product catalog kept in a Google spreadsheet through a
Telegram bot. Every sheet is a category; orders are appended to a reserved
sheet and the administrator is notified in Telegram.`,
		SilenceUsage: true,
	}
	flagConfig := flags.Bind(cmd.PersistentFlags())

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start polling Telegram (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *flagConfig)
		},
	}
	cmd.RunE = runCmd.RunE
	cmd.AddCommand(runCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then print it with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*flagConfig)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			out, err := yaml.Marshal(masked(cfg))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// loadConfig applies the .env file, the YAML file, the environment and
// finally the command-line flags, in that order of increasing priority.
func loadConfig(fc flags.Config) (*config.Config, error) {
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	if fc.EnvFile != "" {
		if err := envconfig.LoadEnvFile(fc.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.Load(fc.ConfigPath)
	if err != nil {
		return nil, err
	}
	if fc.Port != "" {
		cfg.Ops.Port = fc.Port
	}
	if fc.LogLevel != "" {
		cfg.Log.Level = logger.ParseLevel(fc.LogLevel)
	}
	return cfg, nil
}

func masked(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Telegram.Token != "" {
		c.Telegram.Token = "***"
	}
	if c.Database.Password != "" {
		c.Database.Password = "***"
	}
	if c.Session.RedisURL != "" {
		c.Session.RedisURL = maskURL(c.Session.RedisURL)
	}
	return &c
}

func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
