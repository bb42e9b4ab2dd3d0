package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/evalify/examclient/internal/api"
	"github.com/evalify/examclient/internal/auth"
	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/engine"
	"github.com/evalify/examclient/internal/handler"
	"github.com/evalify/examclient/internal/logger"
	"github.com/evalify/examclient/internal/router"
	"github.com/evalify/examclient/internal/store"
	"github.com/evalify/examclient/internal/timer"
	"github.com/evalify/examclient/internal/validator"
	ws "github.com/evalify/examclient/internal/websocket"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ListenPort).
		Str("server", cfg.ServerURL).
		Msg("Starting exam client")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Resolve Session Identity ──────────────────────────────────────
	token := cfg.AuthToken
	if token == "" {
		token = promptToken()
	}
	if token == "" {
		log.Fatal().Msg("No auth token provided")
	}

	claims, err := auth.ParseSessionClaims(token)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read session claims from token")
	}

	quizID, err := uuid.Parse(cfg.QuizID)
	if err != nil {
		log.Fatal().Err(err).Msg("QUIZ_ID must be a valid UUID")
	}

	// ─── Open Local Store ──────────────────────────────────────────────
	// On failure the session still runs from memory; only resume-after-
	// restart is lost.
	var st store.Store
	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Warn().Err(err).Msg("Local store unavailable, running in-memory (no crash resume)")
		st = store.NewMemoryStore()
	} else {
		defer rdb.Close()
		st = store.NewRedisStore(rdb, log)
	}

	// ─── Boot the Session Engine ───────────────────────────────────────
	client := api.NewClient(cfg.ServerURL, token, quizID, log)
	eng := engine.New(cfg, quizID, claims.StudentID, st, client, log)

	if err := eng.Start(ctx); err != nil {
		if errors.Is(err, api.ErrQuizCompleted) {
			log.Info().Msg("Quiz already completed, nothing to do")
			return
		}
		log.Fatal().Err(err).Msg("Session boot failed")
	}
	defer eng.Stop()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:    handler.NewExamHandler(eng),
		Proctor: handler.NewProctorHandler(eng),
		WS:      handler.NewWSHandler(eng, log, cfg.AllowedOrigins),
	}

	// Live pushes: countdown every second, violation counter on change.
	wireStream(eng, handlers.WS)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	srv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.ListenPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Local API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	eng.Stop()
	log.Info().Msg("Shutdown complete")
}

// promptToken reads the session token from the terminal with echo disabled,
// for kiosk setups where the token is typed rather than provisioned.
func promptToken() string {
	fmt.Fprint(os.Stderr, "Session token: ")
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// wireStream connects engine callbacks to the WebSocket broadcast.
func wireStream(eng *engine.Engine, wsh *handler.WSHandler) {
	eng.Timer.OnTick(func(t timer.Tick) {
		wsh.Broadcast(ws.EventTick, map[string]any{
			"remaining_ms": t.Remaining.Milliseconds(),
			"warning":      t.Warning,
			"status":       eng.Meta.Status(),
		})
	})
	eng.Monitor.OnChange(func(count int) {
		wsh.Broadcast(ws.EventViolations, map[string]int{"count": count})
	})
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
