package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/Walk_Companion/internal/config"
	"github.com/Dias221467/Walk_Companion/internal/database"
	"github.com/Dias221467/Walk_Companion/internal/handlers"
	"github.com/Dias221467/Walk_Companion/internal/jobs"
	"github.com/Dias221467/Walk_Companion/internal/metrics"
	"github.com/Dias221467/Walk_Companion/internal/repository"
	cron "github.com/Dias221467/Walk_Companion/internal/scheduler"
	"github.com/Dias221467/Walk_Companion/internal/services"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
	"github.com/Dias221467/Walk_Companion/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")
	metrics.Register()

	srv, cleanup, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Server running on port %s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Log.Info("Server stopped")
	return nil
}

// buildServer wires storage, services, jobs and routes. The returned cleanup
// releases everything that was opened; on error it has already run.
func buildServer(cfg *config.Config) (srv *http.Server, cleanup func(), err error) {
	var closers []func()
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	// --- Storage ---
	var (
		store     services.WalkStore
		directory services.Directory
	)
	switch cfg.Store.Backend {
	case config.BackendMongo:
		db, err := database.ConnectDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection error: %w", err)
		}
		closers = append(closers, func() { db.Client().Disconnect(context.Background()) })

		walkRepo := repository.NewWalkRequestRepository(db)
		if err := walkRepo.EnsureIndexes(context.Background()); err != nil {
			logger.Log.WithError(err).Warn("Failed to ensure indexes")
		}
		store = walkRepo
		directory = repository.NewUserRepository(db)
	case config.BackendBolt:
		boltStore, err := repository.OpenBoltWalkStore(cfg.Bolt.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("bolt store error: %w", err)
		}
		closers = append(closers, func() { boltStore.Close() })
		store = boltStore
	default:
		store = repository.NewMemoryWalkStore()
	}

	if directory == nil {
		directory = repository.NewMemoryDirectory()
		if cfg.Directory.SeedFile != "" {
			seeded, err := repository.LoadMemoryDirectory(cfg.Directory.SeedFile)
			if err != nil {
				return nil, nil, fmt.Errorf("directory seed error: %w", err)
			}
			directory = seeded
		}
	}

	if cfg.Redis.Address != "" {
		rdb := repository.NewRedisClient(cfg.Redis)
		closers = append(closers, func() { rdb.Close() })
		if err := repository.PingRedis(context.Background(), rdb); err != nil {
			logger.Log.WithError(err).Warn("Redis unavailable, directory cache will fall through")
		}
		directory = repository.NewCachedDirectory(directory, rdb, cfg.Redis.TTL)
	}

	// --- Services ---
	walkService := services.NewWalkService(store)
	queryService := services.NewWalkQueryService(store, directory)
	exportService := services.NewExportService(queryService)

	// --- Jobs ---
	if cfg.Expiry.Enabled {
		sweeper := jobs.NewStaleRequestSweeper(walkService, cfg.Expiry.Grace)
		c, err := cron.StartWalkCronJobs(sweeper, cfg.Expiry.Schedule)
		if err != nil {
			return nil, nil, fmt.Errorf("scheduler error: %w", err)
		}
		closers = append(closers, func() { <-c.Stop().Done() })
	}

	// --- Handlers ---
	walkHandler := handlers.NewWalkHandler(walkService, queryService, exportService)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	protectedWalkRoutes := router.PathPrefix("/walk-requests").Subrouter()
	protectedWalkRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	walkHandler.RegisterRoutes(protectedWalkRoutes)

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, cleanup, nil
}
