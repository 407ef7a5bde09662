package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cypher_arena/internal/config"
	"cypher_arena/internal/db"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/duel"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/matchmaking"
	"cypher_arena/internal/profile"
	"cypher_arena/internal/questions"
	"cypher_arena/internal/realtime"
	"cypher_arena/internal/repository"
	"cypher_arena/internal/store"
)

func playDuel(ctx context.Context, cfg *config.Config, name, code string, in io.Reader, out io.Writer) error {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := realtime.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	bus := realtime.NewRedisBus(rdb)
	st := store.WithChangeFeed(repository.NewStore(pool), bus)
	recorder := profile.NewRecorder(repository.NewProfileRepository(pool), cfg.Scoring())

	player, err := store.RegisterPlayer(ctx, st, name)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	coord := matchmaking.New(st, bus, player,
		matchmaking.WithPollInterval(cfg.MatchPollInterval),
		matchmaking.WithStartingHP(cfg.StartingHP))

	var room domain.Room
	if code == "" {
		room, err = coord.CreateRoom(ctx)
	} else {
		room, err = coord.JoinRoom(ctx, code)
	}
	if err != nil {
		return err
	}
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := coord.LeaveRoom(leaveCtx); err != nil {
			logger.Warn("failed to leave room", "error", err)
		}
	}()

	fmt.Fprintf(out, "Room %s. /search finds an opponent, /cancel stops searching, /quit leaves. Anything else is chat.\n", room.Code)

	lines := readLines(in)
	for {
		m, ok, err := lobby(ctx, coord, lines, out)
		if err != nil || !ok {
			return err
		}

		source, err := questions.NewDefaultSource()
		if err != nil {
			return fmt.Errorf("failed to load questions: %w", err)
		}
		peer, err := duel.NewPeer(player, m, coord.OpponentName(ctx, m), cfg.DuelRules(), st, bus, source,
			duel.WithRecorder(recorder),
			duel.WithRelease(coord.Release))
		if err != nil {
			return err
		}
		if err := peer.Start(ctx); err != nil {
			return err
		}
		play(ctx, peer, lines, out)
		<-peer.Done()
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintln(out, "\nBack in the room. /search for a rematch.")
	}
}

type searchResult struct {
	match domain.Match
	err   error
}

// lobby shows room activity until a match is found. ok is false when the
// player left or input ended.
func lobby(ctx context.Context, coord *matchmaking.Coordinator, lines <-chan string, out io.Writer) (domain.Match, bool, error) {
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	events, err := coord.Watch(watchCtx)
	if err != nil {
		return domain.Match{}, false, err
	}

	var (
		results      chan searchResult
		cancelSearch context.CancelFunc = func() {}
	)
	defer func() { cancelSearch() }()

	for {
		select {
		case ev, open := <-events:
			if !open {
				events = nil
				continue
			}
			renderRoom(out, ev)
		case r := <-results:
			results = nil
			switch {
			case ctx.Err() != nil:
				return domain.Match{}, false, nil
			case errors.Is(r.err, context.Canceled):
				fmt.Fprintln(out, "Search cancelled")
			case r.err != nil:
				return domain.Match{}, false, r.err
			default:
				return r.match, true, nil
			}
		case line, open := <-lines:
			if !open {
				return domain.Match{}, false, nil
			}
			switch strings.ToLower(line) {
			case "":
			case "/search":
				if results != nil {
					continue
				}
				cancelSearch()
				var searchCtx context.Context
				searchCtx, cancelSearch = context.WithCancel(ctx)
				results = make(chan searchResult, 1)
				go func(ch chan<- searchResult) {
					m, err := coord.Search(searchCtx)
					ch <- searchResult{match: m, err: err}
				}(results)
				fmt.Fprintln(out, "Searching...")
			case "/cancel":
				cancelSearch()
			case "/quit", "/exit":
				return domain.Match{}, false, nil
			default:
				if err := coord.SendChat(ctx, line); err != nil {
					fmt.Fprintf(out, "Chat failed: %v\n", err)
				}
			}
		case <-ctx.Done():
			return domain.Match{}, false, nil
		}
	}
}

func renderRoom(w io.Writer, ev matchmaking.Event) {
	switch ev := ev.(type) {
	case matchmaking.MembersChanged:
		names := make([]string, 0, len(ev.Members))
		for _, m := range ev.Members {
			name := m.Username
			if name == "" {
				name = matchmaking.OpponentPlaceholder
			}
			names = append(names, fmt.Sprintf("%s (%s)", name, m.Status))
		}
		fmt.Fprintf(w, "In room: %s\n", strings.Join(names, ", "))
	case matchmaking.ChatMessage:
		fmt.Fprintf(w, "<%s> %s\n", ev.Username, ev.Message)
	}
}
