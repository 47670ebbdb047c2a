package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/config"
	"github.com/Totarae/shortlinks/internal/database"
	grpcv2 "github.com/Totarae/shortlinks/internal/grpc/v2"
	"github.com/Totarae/shortlinks/internal/handlers"
	"github.com/Totarae/shortlinks/internal/metrics"
	"github.com/Totarae/shortlinks/internal/qr"
	"github.com/Totarae/shortlinks/internal/repositories"
	"github.com/Totarae/shortlinks/internal/router"
	"github.com/Totarae/shortlinks/internal/service"
	"github.com/Totarae/shortlinks/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Инициализация конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Ошибка при запуске сервера", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// run поднимает HTTP и (если задан адрес) gRPC и ждёт отмены ctx.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	m := metrics.New()
	a := auth.New(cfg.JWTSecret)

	links := service.NewShortenerService(store, qr.New(cfg.QRSize), logger, cfg.BaseURL,
		service.WithCodeBytes(cfg.CodeBytes),
		service.WithMaxAttempts(cfg.CodeAttempts),
	)
	resolver := service.NewResolver(store, logger, m)

	handler := handlers.NewHandler(links, resolver, cfg.BaseURL, logger)
	httpServer := &http.Server{
		Addr: cfg.ServerAddress,
		Handler: router.NewRouter(handler, router.Options{
			Auth:          a,
			Metrics:       m,
			TrustedSubnet: cfg.TrustedSubnet,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("address", cfg.ServerAddress),
			zap.String("mode", cfg.Mode), zap.Bool("https", cfg.EnableHTTPS))
		var err error
		if cfg.EnableHTTPS {
			err = httpServer.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if cfg.GRPCAddress != "" {
		grpcServer := grpcv2.NewServer(grpcv2.NewGRPCServer(links, resolver, logger), a, logger)
		lis, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		g.Go(func() error {
			logger.Info("gRPC сервер запущен", zap.String("address", cfg.GRPCAddress))
			if err := grpcServer.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка сервера")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore выбирает хранилище по режиму конфигурации.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.LinkStore, func(), error) {
	switch cfg.Mode {
	case config.ModeDatabase:
		migrator, err := database.NewMigrator(cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		err = migrator.Up()
		if cerr := migrator.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}

		db, err := database.NewDB(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewLinkRepository(db.Pool), db.Close, nil

	case config.ModeSQLite:
		repo, err := repositories.NewSQLiteRepository(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil

	default:
		// file и in-memory: пустой путь отключает журнал
		return storage.NewURLStore(cfg.FileStoragePath, logger), func() {}, nil
	}
}
