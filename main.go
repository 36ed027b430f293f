package main

import (
	"context"
	"fmt"
	"os"

	"giftmatch/internal/config"
	"giftmatch/internal/core"
	"giftmatch/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "giftmatch",
	Short: "GiftMatch - conversational gift recommendation assistant",
	Long: `GiftMatch gathers who a gift is for, the occasion and the budget over a short chat,
filters a curated catalog of gifts and asks a language model to present the best matches.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, recommendCmd, seedDocsCmd)
}

// loadConfig reads .env, the YAML config and the environment, then initializes the logger
func loadConfig() (core.Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return core.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.InitLogger(cfg.Log); err != nil {
		return core.Config{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
