package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gestioncarteras/backend/internal/api"
	"github.com/gestioncarteras/backend/internal/api/handlers"
	"github.com/gestioncarteras/backend/internal/archiver"
	"github.com/gestioncarteras/backend/internal/clients"
	"github.com/gestioncarteras/backend/internal/external/registry"
	"github.com/gestioncarteras/backend/internal/loans"
	"github.com/gestioncarteras/backend/internal/realtime"
	"github.com/gestioncarteras/backend/internal/report"
	"github.com/gestioncarteras/backend/internal/scheduler"
	"github.com/gestioncarteras/backend/internal/scheduler/jobs"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/config"
	"github.com/gestioncarteras/backend/pkg/database"
	"github.com/gestioncarteras/backend/pkg/httputil"
	"github.com/gestioncarteras/backend/pkg/logger"
	"github.com/gestioncarteras/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Iniciar servidor API",
	Long: `Inicia el servidor REST API del back-office.

Este comando:
- Inicia el servidor HTTP
- Expone el reporte crediticio y los indicadores por tarjeta
- Arranca el scheduler (archivado mensual, refresco de scores)
- Publica eventos en tiempo real por WebSocket

Endpoints:
  GET  /health                        - Health check
  GET  /api/clients/{id}/report       - Reporte crediticio del cliente
  GET  /api/cards/{code}/indicators   - Indicadores de una tarjeta
  POST /api/archive                   - Disparar archivado (?dry_run=true)
  GET  /api/scheduler/status          - Estado de los jobs
  GET  /ws                            - Eventos en tiempo real

Example:
  go run ./cmd/cartera api
  go run ./cmd/cartera api --port 8085`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "puerto del servidor API")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Cartera API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to Redis (optional: caching and rate limits degrade
	// gracefully without it)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// 5. Create repositories and the scoring engine
	cardRepo := loans.NewRepository(db.Pool)
	clientRepo := clients.NewRepository(db.Pool)
	engine := scoring.NewEngine()

	// 6. Realtime hub for dashboard events
	hub := realtime.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	// 7. Report service
	cache := redis.NewCache(rdb, "cartera")
	reportSvc := report.NewService(
		cardRepo, clientRepo, clientRepo, engine,
		cache, hub,
		cfg.Scoring.MaxConcurrent, cfg.Scoring.ReportCacheTTL,
		log,
	)

	// 8. Archiver
	arch := archiver.New(db.Pool, cardRepo, clientRepo, engine, cfg.Archiver.MinAgeMonths, log)

	// 9. External registry client (optional)
	var registryClient *registry.Client
	if cfg.Registry.Enabled {
		httpClient := httputil.New(cfg, log).
			WithRateLimiter(redis.NewRateLimiter(rdb, "cartera"), redis.RegistryRateLimit)
		registryClient = registry.NewClient(httpClient, cfg.Registry.BaseURL, cfg.Registry.RequestsPerMin, log)
	}

	// 10. Scheduler with the periodic jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewArchiveJob(arch, cfg.Archiver.Schedule, log)); err != nil {
		return fmt.Errorf("register archive job: %w", err)
	}
	if err := sched.AddJob(jobs.NewScoreRefreshJob(reportSvc, cardRepo, log)); err != nil {
		return fmt.Errorf("register score refresh job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// 11. Handlers and router
	deps := api.RouterDeps{
		Report:    handlers.NewReportHandler(reportSvc, cardRepo, registryClient, log),
		Archive:   handlers.NewArchiveHandler(arch, log),
		Scheduler: handlers.NewSchedulerHandler(sched, log),
		Health:    handlers.NewHealthHandler(db, rdb, log),
		Hub:       hub,
		Limiter:   redis.NewRateLimiter(rdb, "cartera"),
	}
	router := api.NewRouter(deps, log)

	// 12. Create server
	server := api.New(cfg, log, router)

	// 13. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Servidor corriendo en http://localhost:%s\n", cfg.Port)
	fmt.Println("\nEndpoints disponibles:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/clients/{id}/report")
	fmt.Println("  GET  /api/cards/{code}/indicators")
	fmt.Println("  POST /api/archive")
	fmt.Println("  GET  /api/scheduler/status")
	fmt.Println("  GET  /ws")
	fmt.Println("\nCtrl+C para detener")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
