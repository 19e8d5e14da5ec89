package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"chatcommerce/internal/audit"
	"chatcommerce/internal/config"
	"chatcommerce/internal/db"
	"chatcommerce/internal/engine"
	"chatcommerce/internal/gateway"
	"chatcommerce/internal/guard"
	"chatcommerce/internal/httpserver"
	orderrepo "chatcommerce/internal/repository/order"
	productrepo "chatcommerce/internal/repository/product"
	sessionrepo "chatcommerce/internal/repository/session"
	settingsrepo "chatcommerce/internal/repository/settings"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		catalog  productrepo.Repository
		orders   orderrepo.Repository
		settings settingsrepo.Repository
		sink     audit.Sink
	)

	dbpool, err := connectPostgres(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	if dbpool != nil {
		defer dbpool.Close()
		catalog = productrepo.NewPostgres(dbpool, logger)
		orders = orderrepo.NewPostgres(dbpool, logger)
		settings = settingsrepo.NewPostgres(dbpool, logger)
		sink = audit.NewPostgres(dbpool, logger)
	} else {
		logger.Printf("DB_DSN not set, using in-memory stores")
		catalog = productrepo.NewMemory()
		orders = orderrepo.NewMemory()
		settings = settingsrepo.NewMemory()
		sink = audit.NewMemory()
	}

	var sessions sessionrepo.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer rdb.Close()
		sessions = sessionrepo.NewRedis(rdb)
	} else {
		logger.Printf("REDIS_ADDR not set, sessions kept in memory")
		sessions = sessionrepo.NewMemory()
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := audit.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaSink.Close()
		sink = audit.Tee{sink, kafkaSink}
	}

	recorder := audit.NewRecorder(sink, 256, logger)
	recorder.Start(ctx)

	abuseGuard := guard.New(guard.Config{
		MessageLimit:   cfg.MessageLimit,
		MessageWindow:  cfg.MessageWindow,
		OrderLimit:     cfg.OrderLimit,
		OrderWindow:    cfg.OrderWindow,
		ErrorThreshold: cfg.ErrorThreshold,
		Cooldown:       cfg.Cooldown,
	}, recorder)

	eng := engine.New(engine.Deps{
		Sessions: sessions,
		Catalog:  catalog,
		Orders:   orders,
		Settings: settings,
		Gateway:  gateway.NewRetrying(gateway.Static{}, gateway.DefaultRetry()),
		Guard:    abuseGuard,
		Audit:    recorder,
		Admins:   engine.NewStaticAllowlist(cfg.AdminIDs),
		Logger:   logger,
	})

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, eng, cfg.CORSOrigins)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Printf("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
	recorder.WaitClosed()
	logger.Printf("server stopped")
}

func connectPostgres(ctx context.Context, dsn string, logger *log.Logger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, nil
	}
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	logger.Printf("connected to postgres")
	return pool, nil
}
