package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cypher_arena/internal/config"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/profile"
	"cypher_arena/internal/questions"
	"cypher_arena/internal/session"
)

func openProfile(cfg *config.Config) (*profile.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	st, err := profile.OpenSQLite(cfg.ProfilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	return st, nil
}

func practice(ctx context.Context, cfg *config.Config, player string, in io.Reader, out io.Writer) error {
	profiles, err := openProfile(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := profiles.Close(); cerr != nil {
			logger.Warn("failed to close profile", "error", cerr)
		}
	}()

	source, err := questions.NewDefaultSource()
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	s, err := session.New(player, cfg.Rules(), source,
		session.WithRecorder(profile.NewRecorder(profiles, cfg.Scoring())))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Decode each string. /hint and /skip use power-ups, /quit ends the session.")
	s.Start(ctx)
	play(ctx, s, readLines(in), out)
	<-s.Done()
	return nil
}
