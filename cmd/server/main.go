package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vinylstore-be/internal/cart"
	"vinylstore-be/internal/clickhistory"
	"vinylstore-be/internal/clock"
	"vinylstore-be/internal/config"
	"vinylstore-be/internal/db"
	"vinylstore-be/internal/events"
	"vinylstore-be/internal/handler"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/media"
	"vinylstore-be/internal/metrics"
	"vinylstore-be/internal/middleware"
	"vinylstore-be/internal/order"
	"vinylstore-be/internal/product"
	"vinylstore-be/internal/promotion"
	"vinylstore-be/internal/review"
	"vinylstore-be/internal/wishlist"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, "server")
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	router, closeFn, err := newServer(cfg, database)
	if err != nil {
		return err
	}
	defer closeFn()

	addr := ":" + cfg.AppPort
	logger.L().Info("http server listening", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
	return startServerFunc(addr, router)
}

// newServer wires every component against database and returns the root
// handler plus a func releasing background resources.
func newServer(cfg *config.Config, database *sql.DB) (http.Handler, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	blobs, err := media.NewDiskStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return nil, nil, err
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	clk := clock.Real()

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo, clk)

	cartSvc := cart.NewService(cart.NewRepository(database), productRepo, clk, m)

	svc := handler.Services{
		Products:   productSvc,
		Promotions: promotion.NewService(promotion.NewRepository(database), productSvc),
		Media:      media.NewService(media.NewRepository(database), blobs, productSvc),
		Carts:      cartSvc,
		Orders:     order.NewService(order.NewRepository(database), cartSvc, publisher, m),
		Wishlist:   wishlist.NewService(wishlist.NewRepository(database), productRepo, clk),
		Reviews:    review.NewService(review.NewRepository(database)),
		Clicks:     clickhistory.NewService(clickhistory.NewRepository(database)),
	}

	api := http.NewServeMux()
	handler.New(svc).Register(api)

	router := setupRouter(api, metrics.Handler(reg), http.FileServer(http.Dir(cfg.MediaDir)), cfg.MediaBaseURL)

	// RequestID → Auth → Logging → RateLimit → mux
	limiter := middleware.NewRateLimiter()
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go limiter.Run(sweepCtx)

	var root http.Handler = router
	root = limiter.Middleware(root)
	root = middleware.LoggingMiddleware(m)(root)
	root = middleware.AuthMiddleware(identity.NewVerifier(cfg.JWTSecret))(root)
	root = middleware.RequestIDMiddleware(root)

	closeFn := func() {
		stopSweep()
		if err := publisher.Close(); err != nil {
			logger.L().Error("failed to close event publisher", zap.Error(err))
		}
	}
	return root, closeFn, nil
}

// setupRouter mounts the API next to the operational endpoints.
func setupRouter(api, metricsHandler, mediaFiles http.Handler, mediaBaseURL string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metricsHandler)

	// Absolute base URLs point at an external host serving the files.
	if strings.HasPrefix(mediaBaseURL, "/") {
		prefix := strings.TrimRight(mediaBaseURL, "/") + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, mediaFiles))
	}

	mux.Handle("/", api)
	return mux
}

func startServer(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L().Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
