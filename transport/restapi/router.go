package restapi

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel"

	"github.com/sahyadri/presensi/assets"
	"github.com/sahyadri/presensi/internal/svc/attendsvc"
	"github.com/sahyadri/presensi/pkg/ratelimit"
	"github.com/sahyadri/presensi/pkg/tracer"
	"github.com/sahyadri/presensi/pkg/validator"
	"github.com/sahyadri/presensi/transport/restapi/handlerattend"
)

type Config struct {
	AppServiceName string              `validate:"required"`
	AppVersion     string              `validate:"required"`
	AttendService  attendsvc.Service   `validate:"required"`
	RateGovernor   *ratelimit.Governor `validate:"required"`
}

type DefaultHTTP struct {
	router *chi.Mux
}

func NewHTTPTransport(cfg Config) (*DefaultHTTP, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("http transport cfg error: %w", err)
	}

	// ** Attendance notification handler
	handlerAttendCfg := handlerattend.HandlerConfig{
		AttendService: cfg.AttendService,
	}

	handlerAttend, err := handlerattend.NewHandler(handlerAttendCfg)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	skip := func(r *http.Request) bool {
		switch strings.TrimSpace(path.Clean(r.URL.Path)) {
		case "/health",
			"/ping":
			return true
		}

		return false
	}

	router.Use(middleware.StripSlashes)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	router.Use(func(next http.Handler) http.Handler {
		return tracer.Middleware(tracer.MiddlewareConfig{
			TracerName:     "github.com/sahyadri/presensi",
			ServiceName:    assets.ServiceName,
			SkipFunc:       skip,
			TracerProvider: otel.GetTracerProvider(),    // global tracer provider
			TextPropagator: otel.GetTextMapPropagator(), // use global text map propagator
		}, next)
	})

	// add trace id and also log request response
	router.Use(func(next http.Handler) http.Handler {
		return requestLogger(skip, next)
	})

	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}

	router.Get("/health", healthHandler)
	router.Get("/ping", healthHandler)

	// Resource: attendance notifications
	router.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(rateLimiter(cfg.RateGovernor))

		r.Post("/", handlerAttend.SendNotification()) // notify one attendance event
		r.Post("/batch", handlerAttend.SendBatch())   // notify many, per-record accounting
		r.Post("/report", handlerAttend.SendReport()) // single notify with report attachment
	})

	instance := &DefaultHTTP{
		router: router,
	}

	return instance, nil
}

// Server .
func (a *DefaultHTTP) Server() http.Handler {
	return a.router
}
