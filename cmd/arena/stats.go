package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/config"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/scoring"
)

func showStats(ctx context.Context, cfg *config.Config, player string, out io.Writer) error {
	profiles, err := openProfile(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := profiles.Close(); cerr != nil {
			logger.Warn("failed to close profile", "error", cerr)
		}
	}()

	life, err := profiles.LoadStats(ctx, player)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	writeStats(out, life)
	return nil
}

func writeStats(out io.Writer, l scoring.Lifetime) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "sessions\t%d\n", l.Sessions)
	fmt.Fprintf(tw, "wins\t%d\n", l.Wins)
	fmt.Fprintf(tw, "losses\t%d\n", l.Losses)
	fmt.Fprintf(tw, "points\t%d\n", l.Points)
	fmt.Fprintf(tw, "decodes\t%d\n", l.Decodes)
	fmt.Fprintf(tw, "best combo\t%d\n", l.BestCombo)
	if l.FastestDecode > 0 {
		fmt.Fprintf(tw, "fastest decode\t%s\n", seconds(l.FastestDecode))
	}
	fmt.Fprintf(tw, "longest rot13 streak\t%d\n", l.LongestROT13Streak)
	for _, sc := range cipher.AllSchemes() {
		if n := l.SchemeSessions[sc]; n > 0 {
			fmt.Fprintf(tw, "%s sessions\t%d\n", sc.DisplayName(), n)
		}
	}
	_ = tw.Flush()
}

func showAchievements(ctx context.Context, cfg *config.Config, player string, out io.Writer) error {
	profiles, err := openProfile(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := profiles.Close(); cerr != nil {
			logger.Warn("failed to close profile", "error", cerr)
		}
	}()

	unlocked, err := profiles.Unlocked(ctx, player)
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	writeAchievements(out, unlocked)
	return nil
}

func writeAchievements(out io.Writer, unlocked []string) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range scoring.Catalog() {
		mark := " "
		if slices.Contains(unlocked, a.ID) {
			mark = "x"
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\n", mark, a.Name, a.Description)
	}
	_ = tw.Flush()
}
