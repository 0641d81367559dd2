package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"emberforge/internal/httpapi/handlers"
	"emberforge/internal/httpkit"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/pkg/middleware"
	"emberforge/internal/ports"
)

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	QueueName string
	Log       *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Timeout(60 * time.Second))

	// ---- CORS (Swagger UI + Frontend futuro) ----
	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:      d.Pool,
		RDB:       d.RDB,
		SP:        d.SP,
		QueueName: d.QueueName,
		Log:       log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RENDERS ----
	r.Post("/renders", h.PostRender)
	r.Get("/renders", h.ListRenders)
	r.Get("/renders/{renderId}", h.GetRender)
	r.Get("/renders/{renderId}/artifact", h.StreamArtifact)
	r.Get("/renders/{renderId}/artifact/url", h.GetArtifactURL)
	r.Delete("/renders/{renderId}/artifact", h.DeleteArtifact)

	// ---- PRESETS ----
	r.Post("/presets", h.PostPreset)
	r.Get("/presets", h.ListPresets)
	r.Get("/presets/{presetId}", h.GetPreset)
	r.Patch("/presets/{presetId}", h.PatchPreset)
	r.Delete("/presets/{presetId}", h.DeletePreset)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
