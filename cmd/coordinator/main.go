package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/arena-coordinator/internal/app"
	"github.com/vovakirdan/arena-coordinator/internal/auth"
	"github.com/vovakirdan/arena-coordinator/internal/config"
	arenalog "github.com/vovakirdan/arena-coordinator/internal/log"
)

// exitFatal is returned to the shell when the coordinator cannot start.
const exitFatal = 255

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatal)
	}
}

func rootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:          "arena-coordinator",
		Short:        "Matchmaking coordinator for arena card games",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, logLevel)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config.yaml (created with defaults if missing)")
	flags.StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(tokenCommand())
	return cmd
}

func serve(ctx context.Context, configPath, logLevel string) error {
	bootLogger := arenalog.New("info")
	cfg, resolvedPath, err := config.Load(bootLogger, configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := arenalog.New(cfg.LogLevel)
	logger.Info().
		Str("config", resolvedPath).
		Str("addr", cfg.Coordinator.Addr).
		Str("provider", cfg.Provider.Kind).
		Msg("starting arena coordinator")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("coordinator exited with error")
		return err
	}
	logger.Info().Msg("coordinator stopped")
	return nil
}

func tokenCommand() *cobra.Command {
	var (
		keyPath  string
		alg      string
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <player-id>",
		Short: "Sign a player token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, key, err := auth.LoadSigningKey(keyPath, alg)
			if err != nil {
				return err
			}
			token, err := auth.Sign(method, key, args[0], username, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "certs/jwt.key", "PEM private key")
	cmd.Flags().StringVar(&alg, "alg", "RS256", "signing algorithm")
	cmd.Flags().StringVar(&username, "username", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
