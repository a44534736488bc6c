package app

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthanhphan/gosdk/logger"
	httpHandler "github.com/fileledger/go-file-registry/internal/registry/adapter/inbound/http"
	"github.com/fileledger/go-file-registry/internal/registry/adapter/outbound/escrow"
	"github.com/fileledger/go-file-registry/internal/registry/adapter/outbound/mirror"
	"github.com/fileledger/go-file-registry/internal/registry/adapter/outbound/wal"
	"github.com/fileledger/go-file-registry/internal/registry/config"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/service"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    *config.Config
	server *httpHandler.Server
	wal    *wal.Log
	mirror *mirror.Mirror
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	feePerByte, ok := new(big.Int).SetString(cfg.Ledger.FeePerByte, 10)
	if !ok || feePerByte.Sign() < 0 {
		return nil, fmt.Errorf("invalid fee_per_byte %q", cfg.Ledger.FeePerByte)
	}
	admin := domain.Principal(cfg.Ledger.AdminAddress)
	if admin.IsZero() {
		return nil, fmt.Errorf("admin_address is required")
	}

	// 3. Open the event log and recover recorded history
	eventLog, events, err := wal.Open(wal.Config{
		Dir:            cfg.WAL.Dir,
		MaxSegmentSize: cfg.WAL.MaxSegmentSizeBytes,
		FSync:          cfg.WAL.FSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	// 4. Optional redis metadata mirror
	var mir *mirror.Mirror
	if cfg.Mirror.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		mir = mirror.New(redisClient, cfg.Mirror.Workers, cfg.Mirror.QueueSize)
		if cfg.Mirror.RebuildOnStart {
			if err := mir.Rebuild(context.Background(), events); err != nil {
				// The mirror is a cache; a failed rebuild must not stop
				// the ledger.
				logger.Warnw("Mirror rebuild failed, continuing without it", "error", err.Error())
			}
		}
	}

	// 5. Ledger service restored from the event log
	svc := service.NewLedgerService(admin, feePerByte, newEventPipeline(eventLog, mir), escrow.NewBook())
	if err := svc.Restore(events); err != nil {
		_ = eventLog.Close()
		return nil, fmt.Errorf("failed to restore ledger: %w", err)
	}

	// 6. HTTP Server
	httpServer := httpHandler.NewServer(cfg, svc)

	return &App{
		cfg:    cfg,
		server: httpServer,
		wal:    eventLog,
		mirror: mir,
	}, nil
}

func (a *App) Run() error {
	logger.Infow("File registry starting", "addr", a.cfg.Server.Addr)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("http server failed: %w", err)
		logger.Errorw("Registry server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down registry services")
	if err := a.server.Stop(context.Background()); err != nil {
		logger.Errorw("Registry shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	if a.mirror != nil {
		a.mirror.Close()
	}
	if err := a.wal.Close(); err != nil {
		logger.Warnw("Event log close failed", "error", err.Error())
	}

	return runErr
}
