package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"emberforge/internal/effects"
	"emberforge/internal/encode"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/pkg/shutdown"
	"emberforge/internal/storage"
	"emberforge/internal/worker"
	"emberforge/internal/worker/util"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "emberforge-worker",
		AddSource:   util.Env("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting Emberforge worker",
		"version", "0.1.0",
	)

	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")
	storageRoot := util.Env("STORAGE_LOCAL_ROOT", "/data")
	queueName := util.Env("RENDER_QUEUE_NAME", "emberforge:renders")
	overlayDir := util.Env("OVERLAY_DIR", effects.DefaultDir)

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}

	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	// Verificación temprana: sin overlays no podemos aceptar jobs con
	// efectos, mejor fallar al arranque que a mitad de un render.
	library := effects.NewLibrary(overlayDir)
	if err := library.Verify(); err != nil {
		log.LogFatal("overlay sources missing", err)
	}
	log.Info("overlay library verified", "dir", overlayDir)

	settings := encode.DefaultSettings()
	if v := util.Env("ENCODE_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.LogFatal("invalid ENCODE_TIMEOUT", err)
		}
		settings.EncodeTimeout = d
	}

	runCtx, cancel := context.WithCancel(ctx)
	shutdownMgr.Register("worker-loop", func(ctx context.Context) error {
		cancel()
		return nil
	})

	deps := worker.Deps{
		Pool:        pool,
		RDB:         rdb,
		SP:          sp,
		Library:     library,
		Settings:    settings,
		StorageRoot: storageRoot,
		QueueName:   queueName,
		Log:         log,
	}

	go func() {
		if err := worker.Run(runCtx, deps); err != nil && runCtx.Err() == nil {
			log.LogFatal("worker loop failed", err)
		}
	}()

	shutdownMgr.Wait()
}
