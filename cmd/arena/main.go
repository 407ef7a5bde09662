// Package main provides the terminal client for Cypher Arena.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cypher_arena/internal/config"
	"cypher_arena/internal/logger"
)

const defaultPlayer = "local"

var (
	profilePlayer string
	duelName      string
	logLevel      string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "arena",
		Short:         "Decode encoded strings against the clock or an opponent",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.InitTo(os.Stderr, logLevel, false)
		},
		RunE: runPracticeCmd,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newDuelCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newAchievementsCmd())

	return rootCmd
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Play a solo session",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().StringVar(&profilePlayer, "player", defaultPlayer, "local profile name")
	return cmd
}

func newDuelCmd() *cobra.Command {
	duelCmd := &cobra.Command{
		Use:   "duel",
		Short: "Play a head-to-head match through a room",
	}
	duelCmd.PersistentFlags().StringVar(&duelName, "name", "", "username to play as")
	_ = duelCmd.MarkPersistentFlagRequired("name")

	duelCmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Open a room and print its code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDuel(cmd, "")
		},
	})
	duelCmd.AddCommand(&cobra.Command{
		Use:   "join <code>",
		Short: "Join a room by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuel(cmd, args[0])
		},
	})
	return duelCmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show lifetime stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&profilePlayer, "player", defaultPlayer, "local profile name")
	return cmd
}

func newAchievementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "List achievements and which are unlocked",
		Args:  cobra.NoArgs,
		RunE:  runAchievementsCmd,
	}
	cmd.Flags().StringVar(&profilePlayer, "player", defaultPlayer, "local profile name")
	return cmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if profilePlayer == "" {
		profilePlayer = defaultPlayer
	}
	return practice(cmd.Context(), cfg, profilePlayer, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runDuel(cmd *cobra.Command, code string) error {
	cfg := config.Load()
	if err := cfg.DuelAvailable(); err != nil {
		return fmt.Errorf("duels are unavailable: %w", err)
	}
	return playDuel(cmd.Context(), cfg, duelName, code, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	return showStats(cmd.Context(), config.Load(), profilePlayer, cmd.OutOrStdout())
}

func runAchievementsCmd(cmd *cobra.Command, _ []string) error {
	return showAchievements(cmd.Context(), config.Load(), profilePlayer, cmd.OutOrStdout())
}
