package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"emberforge/internal/pkg/logger"
	"emberforge/internal/ports"
)

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	QueueName string
	Log       *logger.Logger
}

type Handler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sp        ports.StorageProvider
	queueName string
	log       *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	queueName := d.QueueName
	if queueName == "" {
		queueName = "emberforge:renders"
	}
	return &Handler{
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		queueName: queueName,
		log:       log.WithComponent("httpapi"),
	}
}
