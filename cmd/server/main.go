package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	_ "github.com/mmynk/splitsettle/docs"
	"github.com/mmynk/splitsettle/internal/auth"
	"github.com/mmynk/splitsettle/internal/config"
	"github.com/mmynk/splitsettle/internal/membership"
	"github.com/mmynk/splitsettle/internal/metrics"
	"github.com/mmynk/splitsettle/internal/middleware"
	"github.com/mmynk/splitsettle/internal/notify"
	"github.com/mmynk/splitsettle/internal/realtime"
	"github.com/mmynk/splitsettle/internal/reconcile"
	"github.com/mmynk/splitsettle/internal/service"
	"github.com/mmynk/splitsettle/internal/storage"
	"github.com/mmynk/splitsettle/internal/storage/postgres"
	"github.com/mmynk/splitsettle/internal/storage/sqlite"
	"github.com/mmynk/splitsettle/internal/task"
	"github.com/mmynk/splitsettle/pkg/api"
	"github.com/mmynk/splitsettle/pkg/logging"
)

// @title			splitsettle API
// @version		1.0
// @description	Split-bill settlement engine. RPCs are Connect procedures that accept JSON bodies.
// @BasePath		/
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupFormat(cfg.LogFormat, cfg.Level())

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	m := metrics.New()
	roster := membership.NewSource(store, cfg.RosterCacheTTL)
	dispatcher := notify.NewDispatcher(store, cfg.NudgeMinGap)
	hub := realtime.NewHub()
	engine := reconcile.NewService(store, roster, dispatcher, hub, m, reconcile.Config{
		MaxRetries: cfg.ReconcileMaxRetries,
		Policy:     cfg.ShareRemainderPolicy,
	})

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPAddr != "" {
		mailer = &notify.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	}
	deliverer := notify.NewDeliverer(store, mailer, m, 50)

	tasks, err := task.NewManager(
		task.NewNudgeJob(engine, cfg.NudgeInterval),
		task.NewDeliveryJob(deliverer, cfg.DeliveryInterval),
	)
	if err != nil {
		slog.Error("Failed to create task manager", "error", err)
		os.Exit(1)
	}

	interceptors := []connect.Interceptor{middleware.LoggingInterceptor()}
	if cfg.JWTSecret != "" {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)
		if cfg.AuthRequired {
			interceptors = append(interceptors, middleware.RequireAuth(jwtManager))
		} else {
			interceptors = append(interceptors, middleware.OptionalAuth(jwtManager))
		}
	} else {
		slog.Warn("JWT_SECRET not set, all callers are anonymous")
	}
	opts := connect.WithInterceptors(interceptors...)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	splitPath, splitHandler := api.NewSplitServiceHandler(service.NewSplitService(engine, hub), opts)
	r.Mount(splitPath, splitHandler)
	groupPath, groupHandler := api.NewGroupServiceHandler(service.NewGroupService(store, roster, engine), opts)
	r.Mount(groupPath, groupHandler)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect streaming)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(r, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tasks.Start()
	defer tasks.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.New(cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

// healthz reports that the server is up.
//
//	@Summary	Health check
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/healthz [get]
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
