// internal/server/server.go

// Package server assembles the HTTP surface of the circulation service.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/config"
	"libralend/internal/httpx"
	"libralend/internal/membership"
)

type Dependencies struct {
	Catalog     catalog.Service
	Members     membership.Service
	Circulation circulation.Service
	Logger      *slog.Logger
}

// NewRouter mounts the catalog, membership and circulation handlers on one chi router.
func NewRouter(d Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	catalog.NewHandler(d.Catalog).Routes(r)
	membership.NewHandler(d.Members).Routes(r)
	circulation.NewHandler(d.Circulation).Routes(r)

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// FinePolicy builds the fine policy named in cfg.
func FinePolicy(cfg *config.Config) (circulation.FinePolicy, error) {
	daily := circulation.NewDailyRatePolicy(circulation.Money(cfg.FineDailyRate))

	switch cfg.FinePolicy {
	case config.FinePolicyDaily:
		return daily, nil
	case config.FinePolicyGrace:
		return circulation.GracePeriodPolicy{Grace: cfg.FineGrace, Next: daily}, nil
	case config.FinePolicyCapped:
		return circulation.CappedPolicy{Cap: circulation.Money(cfg.FineCap), Next: daily}, nil
	default:
		return nil, fmt.Errorf("unknown fine policy %q", cfg.FinePolicy)
	}
}
