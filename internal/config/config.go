// Package config loads server settings from an optional .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

// Config is everything cmd/server needs to run one table.
type Config struct {
	ListenAddr string
	HTTPAddr   string

	Seats        int
	TurnTimeout  time.Duration
	MaxRejects   int
	HelloTimeout time.Duration

	WriteTimeout  time.Duration
	SendQueue     int
	MaxFrameBytes int

	Seed               uint64 // 0 picks a fresh seed per run
	CardsPerPlayer     int
	StrictWildDrawFour bool
	MaxTurns           int

	LogLevel  string
	LogFormat string

	JWTSecret      string
	JWTIssuer      string
	PassphraseHash string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		ListenAddr:     ":10000",
		Seats:          2,
		TurnTimeout:    60 * time.Second,
		MaxRejects:     3,
		HelloTimeout:   2 * time.Second,
		WriteTimeout:   5 * time.Second,
		SendQueue:      64,
		MaxFrameBytes:  64 << 10,
		CardsPerPlayer: 7,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds a Config for the server binary. args excludes the program name.
// The -env flag names a dotenv file; a missing default .env is not an error.
func Load(args []string, stderr io.Writer) (Config, error) {
	envFile := ".env"
	explicit := false
	for i, a := range args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "env" || !strings.HasPrefix(a, "-") {
			continue
		}
		explicit = true
		if hasVal {
			envFile = val
		} else if i+1 < len(args) {
			envFile = args[i+1]
		}
	}
	if err := godotenv.Load(envFile); err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("uno-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("env", envFile, "dotenv file to load before reading the environment")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// BindFlags registers the command-line overrides, defaulting to cfg's values.
func (cfg *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP address to accept players on")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "optional HTTP address for /ws, /healthz and /session")
	fs.IntVar(&cfg.Seats, "seats", cfg.Seats, "number of players the table waits for")
	fs.DurationVar(&cfg.TurnTimeout, "turn-timeout", cfg.TurnTimeout, "time a player has to act before a forced pass")
	fs.IntVar(&cfg.MaxRejects, "max-rejects", cfg.MaxRejects, "consecutive illegal actions before a forced pass")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
}

// FromEnv reads settings from getenv, starting from Default.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	e := envReader{getenv: getenv}

	e.str("UNO_LISTEN_ADDR", &cfg.ListenAddr)
	e.str("UNO_HTTP_ADDR", &cfg.HTTPAddr)
	e.integer("UNO_SEATS", &cfg.Seats)
	e.duration("UNO_TURN_TIMEOUT", &cfg.TurnTimeout)
	e.integer("UNO_MAX_REJECTS", &cfg.MaxRejects)
	e.duration("UNO_HELLO_TIMEOUT", &cfg.HelloTimeout)
	e.duration("UNO_WRITE_TIMEOUT", &cfg.WriteTimeout)
	e.integer("UNO_SEND_QUEUE", &cfg.SendQueue)
	e.integer("UNO_MAX_FRAME_BYTES", &cfg.MaxFrameBytes)
	e.uint64("UNO_SEED", &cfg.Seed)
	e.integer("UNO_CARDS_PER_PLAYER", &cfg.CardsPerPlayer)
	e.boolean("UNO_STRICT_WILD_DRAW_FOUR", &cfg.StrictWildDrawFour)
	e.integer("UNO_MAX_TURNS", &cfg.MaxTurns)
	e.str("LOG_LEVEL", &cfg.LogLevel)
	e.str("LOG_FORMAT", &cfg.LogFormat)
	e.str("UNO_JWT_SECRET", &cfg.JWTSecret)
	e.str("UNO_JWT_ISSUER", &cfg.JWTIssuer)
	e.str("UNO_PASSPHRASE_HASH", &cfg.PassphraseHash)
	e.str("REDIS_ADDR", &cfg.RedisAddr)
	e.str("REDIS_PASSWORD", &cfg.RedisPassword)
	e.integer("REDIS_DB", &cfg.RedisDB)
	e.str("DATABASE_URL", &cfg.DatabaseURL)

	if len(e.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(e.errs...))
	}
	return cfg, nil
}

// Validate reports the first setting that cannot run a table.
func (cfg Config) Validate() error {
	switch {
	case cfg.ListenAddr == "":
		return errors.New("config: listen address is required")
	case cfg.Seats < session.MinSeats || cfg.Seats > session.MaxSeats:
		return fmt.Errorf("config: seats must be between %d and %d, got %d: %w",
			session.MinSeats, session.MaxSeats, cfg.Seats, session.ErrInvalidCapacity)
	case cfg.TurnTimeout <= 0:
		return fmt.Errorf("config: turn timeout must be positive, got %s", cfg.TurnTimeout)
	case cfg.MaxRejects < 1:
		return fmt.Errorf("config: max rejects must be at least 1, got %d", cfg.MaxRejects)
	case cfg.HelloTimeout <= 0:
		return fmt.Errorf("config: hello timeout must be positive, got %s", cfg.HelloTimeout)
	case cfg.CardsPerPlayer < 1 || cfg.CardsPerPlayer*cfg.Seats > engine.MaxDealt:
		return fmt.Errorf("config: cannot deal %d cards to %d seats, at most %d cards can be dealt",
			cfg.CardsPerPlayer, cfg.Seats, engine.MaxDealt)
	case cfg.MaxTurns < 0:
		return fmt.Errorf("config: max turns must not be negative, got %d", cfg.MaxTurns)
	}
	return nil
}

// AuthEnabled reports whether clients must present credentials in hello.
func (cfg Config) AuthEnabled() bool {
	return cfg.JWTSecret != "" || cfg.PassphraseHash != ""
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.getenv(key))
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) uint64(key string, dst *uint64) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}
