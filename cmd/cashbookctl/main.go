package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cashbook/internal/cli"
	"cashbook/internal/config"
	"cashbook/internal/log"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "cashbookctl",
		Short: "Operate a cashbook ledger from the command line",
		Long: `cashbookctl runs migrations, imports statements, prints summaries and
exports reports against the same backend the cashbook server uses.

Settings come from the environment (.env is loaded when present) and may be
overridden by a config file or flags.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	cfg    *config.Config
	logger *log.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "data backend (sqlite, postgres, memory)")

	_ = viper.BindPFlag("LOG_LEVEL", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("DATA_BACKEND", rootCmd.PersistentFlags().Lookup("backend"))

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(monthlyCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(hashPasswordCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig layers flags and the optional config file over the environment,
// then validates the result the same way the server does.
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	}
	viper.AutomaticEnv()

	if cmd.Name() == "hash-password" {
		logger = cli.SetupLogger(os.Stderr, viper.GetString("LOG_LEVEL"), "text")
		return nil
	}

	c, err := cli.LoadAndValidateConfig(viperGetter)
	if err != nil {
		return err
	}
	cfg = c
	logger = cli.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return nil
}

// viperGetter resolves keys through viper. Config files may use lower-case keys.
func viperGetter(key string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return viper.GetString(strings.ToLower(key))
}
