package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/duel"
	"cypher_arena/internal/round"
	"cypher_arena/internal/scoring"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AllowedOrigin string
	JWTSecret     string
	LogLevel      string
	LogJSON       bool

	// External services for duels
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Local profile
	DataDir string

	// API limits
	RateLimit       int
	RateLimitWindow time.Duration

	// Game tuning
	TotalRounds        int
	StartingHP         int
	RoundDelay         time.Duration
	WrongCooldown      time.Duration
	MatchStartDelay    time.Duration
	SkipDelay          time.Duration
	BasePoints         int
	ComboMultiplier    int
	TimeBonusThreshold time.Duration
	TimeBonusPoints    int
	HintCount          int
	HintReveal         int
	SkipCount          int
	MatchPollInterval  time.Duration
	RoomSweepInterval  time.Duration
	RoomSweepAge       time.Duration
}

// Load reads the config from env, after a .env file if one exists. Nothing
// here is fatal: missing duel services are reported by DuelAvailable.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:       str("APP_PORT", "8080"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      str("LOG_LEVEL", "info"),
		LogJSON:       os.Getenv("LOG_JSON") == "true",

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       integer("REDIS_DB", 0),

		DataDir: str("ARENA_DATA_DIR", defaultDataDir()),

		RateLimit:       integer("RATE_LIMIT", 60),
		RateLimitWindow: seconds("RATE_LIMIT_WINDOW", 60),

		TotalRounds:        integer("TOTAL_ROUNDS", 15),
		StartingHP:         integer("STARTING_HP", 6),
		RoundDelay:         millis("ROUND_DELAY_MS", 2000),
		WrongCooldown:      millis("WRONG_COOLDOWN_MS", 500),
		MatchStartDelay:    millis("MATCH_START_DELAY_MS", 1500),
		SkipDelay:          millis("SKIP_DELAY_MS", 500),
		BasePoints:         integer("BASE_POINTS", 100),
		ComboMultiplier:    integer("COMBO_MULTIPLIER", 50),
		TimeBonusThreshold: millis("TIME_BONUS_THRESHOLD_MS", 5000),
		TimeBonusPoints:    integer("TIME_BONUS_POINTS", 50),
		HintCount:          integer("HINT_COUNT", 1),
		HintReveal:         integer("HINT_REVEAL", 2),
		SkipCount:          integer("SKIP_COUNT", 2),
		MatchPollInterval:  millis("MATCH_POLL_MS", 1500),
		RoomSweepInterval:  seconds("ROOM_SWEEP_INTERVAL", 300),
		RoomSweepAge:       seconds("ROOM_SWEEP_AGE", 1800),
	}
}

// DuelAvailable reports the external services duels need but are not
// configured. Practice works either way.
func (c *Config) DuelAvailable() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if len(missing) > 0 {
		return &apperr.ConfigurationError{Missing: missing}
	}
	return nil
}

// ProfilePath is the SQLite file for the local profile.
func (c *Config) ProfilePath() string {
	return filepath.Join(c.DataDir, "profile.db")
}

func (c *Config) Scoring() scoring.Rules {
	r := scoring.DefaultRules()
	r.BasePoints = c.BasePoints
	r.ComboMultiplier = c.ComboMultiplier
	r.TimeBonusThreshold = c.TimeBonusThreshold
	r.TimeBonusPoints = c.TimeBonusPoints
	return r
}

// Rules are the practice rules with env overrides applied.
func (c *Config) Rules() round.Rules {
	r := round.PracticeRules()
	c.tune(&r)
	r.WrongCooldown = c.WrongCooldown
	r.SkipDelay = c.SkipDelay
	r.HintCount = c.HintCount
	r.HintReveal = c.HintReveal
	r.SkipCount = c.SkipCount
	return r
}

func (c *Config) DuelRules() duel.Rules {
	r := duel.DefaultRules()
	c.tune(&r.Round)
	r.StartDelay = c.MatchStartDelay
	return r
}

func (c *Config) tune(r *round.Rules) {
	r.TotalRounds = c.TotalRounds
	r.StartingHP = c.StartingHP
	r.AdvanceDelay = c.RoundDelay
	r.Scoring = c.Scoring()
}

func defaultDataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "cypher-arena")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "cypher-arena")
	}
	return "."
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// integer falls back to def for unset, malformed or negative values.
func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func millis(key string, def int) time.Duration {
	return time.Duration(integer(key, def)) * time.Millisecond
}

func seconds(key string, def int) time.Duration {
	return time.Duration(integer(key, def)) * time.Second
}
