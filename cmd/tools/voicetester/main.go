// Command voicetester exercises the Swift backend and its speech providers
// from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Victorugws/swift/internal/config"
	"github.com/Victorugws/swift/internal/logging"
)

func main() {
	var timeout time.Duration
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	rootCmd := &cobra.Command{
		Use:           "voicetester",
		Short:         "Manual checks for the Swift voice backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if err := godotenv.Load(); err != nil {
				logger.Debug().Err(err).Msg("无法加载 .env，改用系统环境变量")
			}
		},
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 45*time.Second, "request timeout")

	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	loadConfig := func() (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, logger, fmt.Errorf("配置加载失败: %w", err)
		}
		return cfg, logging.New(config.LogConfig{Level: cfg.Log.Level, Format: "console"}), nil
	}

	rootCmd.AddCommand(
		newAskCmd(withTimeout, logger),
		newTranscribeCmd(withTimeout, loadConfig),
		newSynthesizeCmd(withTimeout, loadConfig),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("voicetester failed")
		os.Exit(1)
	}
}
