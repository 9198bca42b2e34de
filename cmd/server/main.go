// Command server hosts one UNO table: it waits for the configured number of
// players, plays the game and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/auth"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/config"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/conn"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/game"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/history"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/logging"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/server"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "uno-server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args, os.Stderr)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	rec, err := openRecorder(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.WithError(err).Warn("Closing history recorder")
		}
	}()

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}

	reg, err := session.NewRegistry(cfg.Seats, log)
	if err != nil {
		return err
	}
	house := game.HouseRules{
		Seed:               cfg.Seed,
		CardsPerPlayer:     cfg.CardsPerPlayer,
		StrictWildDrawFour: cfg.StrictWildDrawFour,
		MaxTurns:           cfg.MaxTurns,
	}
	if house.Seed == 0 {
		house.Seed = uint64(time.Now().UnixNano())
	}
	coord := game.NewCoordinator(game.NewUnoRules(house), reg,
		game.Config{TurnTimeout: cfg.TurnTimeout, MaxRejects: cfg.MaxRejects},
		game.WithRecorder(rec), game.WithLogger(log))

	srv := server.New(reg, coord, server.Options{
		HelloTimeout: cfg.HelloTimeout,
		Verifier:     verifier,
		RequireHello: cfg.AuthEnabled(),
		Conn: conn.Options{
			SendQueue:     cfg.SendQueue,
			WriteTimeout:  cfg.WriteTimeout,
			MaxFrameBytes: cfg.MaxFrameBytes,
		},
	}, log)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	log.WithFields(logrus.Fields{
		"session": reg.ID(),
		"seats":   cfg.Seats,
		"seed":    house.Seed,
		"auth":    cfg.AuthEnabled(),
	}).Info("Server ready")

	g, gctx := errgroup.WithContext(ctx)
	// The table serves one game; once it ends the listeners shut down too.
	tableCtx, closeTable := context.WithCancel(gctx)
	defer closeTable()

	g.Go(func() error {
		defer closeTable()
		_, err := coord.Run(tableCtx)
		return err
	})
	g.Go(func() error { return srv.Serve(tableCtx, ln) })

	if cfg.HTTPAddr != "" {
		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.Router(tableCtx),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.WithField("addr", cfg.HTTPAddr).Info("Serving WebSocket and status endpoints")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-tableCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// openRecorder connects the configured history stores behind one async queue.
func openRecorder(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (history.Recorder, error) {
	var stores history.Multi
	if cfg.RedisAddr != "" {
		r, err := history.NewRedisRecorder(ctx, history.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		stores = append(stores, r)
		log.WithField("addr", cfg.RedisAddr).Info("Publishing history to Redis")
	}
	if cfg.DatabaseURL != "" {
		p, err := history.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = stores.Close()
			return nil, err
		}
		stores = append(stores, p)
		log.Info("Writing results to PostgreSQL")
	}
	if len(stores) == 0 {
		return history.Nop{}, nil
	}
	return history.NewAsync(stores, 256, 2*time.Second, log), nil
}

func buildVerifier(cfg config.Config) (auth.Verifier, error) {
	var chain auth.Chain
	if cfg.PassphraseHash != "" {
		pv, err := auth.NewPassphraseVerifier(cfg.PassphraseHash)
		if err != nil {
			return nil, err
		}
		chain = append(chain, pv)
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer))
	}
	if len(chain) == 0 {
		return auth.AllowAll{}, nil
	}
	return chain, nil
}
