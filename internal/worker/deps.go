package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"emberforge/internal/effects"
	"emberforge/internal/encode"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/ports"
)

type Deps struct {
	Pool        *pgxpool.Pool
	RDB         *redis.Client
	SP          ports.StorageProvider
	Library     *effects.Library
	Settings    encode.Settings
	StorageRoot string
	QueueName   string
	Log         *logger.Logger
}
