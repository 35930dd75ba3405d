package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spindown/spindown-server-go/internal/catalog"
	"github.com/spindown/spindown-server-go/internal/config"
	"github.com/spindown/spindown-server-go/internal/deck"
	"github.com/spindown/spindown-server-go/internal/events"
	"github.com/spindown/spindown-server-go/internal/identity"
	"github.com/spindown/spindown-server-go/internal/match"
	"github.com/spindown/spindown-server-go/internal/repository"
	"github.com/spindown/spindown-server-go/internal/room"
	"github.com/spindown/spindown-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting spindown server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	hub := events.NewHub(logger)

	// The deck, catalog, and identity services are external; the static
	// resolvers make a single-binary deployment work out of the box.
	decks := deck.NewStaticResolver()
	cards := catalog.NewStaticResolver()
	identities := identity.NewStaticResolver()

	var store room.Store
	if cfg.Database.URL != "" {
		pool, err := repository.NewPool(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		store, err = repository.NewRoomStore(ctx, pool, logger)
		if err != nil {
			logger.Fatal("failed to initialize room store", zap.Error(err))
		}
	} else {
		logger.Warn("no database configured; rooms are not durable")
	}

	matchCfg := match.Config{
		StartingLife:    cfg.Game.StartingLife,
		OpeningHandSize: cfg.Game.OpeningHandSize,
	}

	roomMgr := room.NewManager(hub, decks, store, matchCfg, cfg.Game.InviteCodeLength, logger)
	if err := roomMgr.Restore(ctx); err != nil {
		logger.Fatal("failed to restore rooms", zap.Error(err))
	}
	logger.Info("room manager initialized")

	srv := server.NewServer(roomMgr, hub, identities, cards, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Router(cfg.Server.AllowedOrigins),
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("spindown server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
