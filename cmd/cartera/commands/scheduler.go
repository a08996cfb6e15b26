package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gestioncarteras/backend/internal/archiver"
	"github.com/gestioncarteras/backend/internal/clients"
	"github.com/gestioncarteras/backend/internal/loans"
	"github.com/gestioncarteras/backend/internal/report"
	"github.com/gestioncarteras/backend/internal/scheduler"
	"github.com/gestioncarteras/backend/internal/scheduler/jobs"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/config"
	"github.com/gestioncarteras/backend/pkg/database"
	"github.com/gestioncarteras/backend/pkg/logger"
	"github.com/gestioncarteras/backend/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Ejecutar el scheduler como demonio",
	Long: `Arranca el scheduler sin el servidor API.

Jobs registrados:
- card_archival: archivado mensual de tarjetas canceladas
  (cron configurable con ARCHIVER_SCHEDULE)
- score_refresh: refresco diario del score global de todos los
  clientes con tarjetas vivas (4 AM)

El scheduler se detiene con Ctrl+C.

Example:
  go run ./cmd/cartera scheduler`,
	RunE: runSchedulerDaemon,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runSchedulerDaemon(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Cartera Scheduler ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	cardRepo := loans.NewRepository(db.Pool)
	clientRepo := clients.NewRepository(db.Pool)
	engine := scoring.NewEngine()

	cache := redis.NewCache(rdb, "cartera")
	reportSvc := report.NewService(
		cardRepo, clientRepo, clientRepo, engine,
		cache, nil, cfg.Scoring.MaxConcurrent, cfg.Scoring.ReportCacheTTL, log,
	)
	arch := archiver.New(db.Pool, cardRepo, clientRepo, engine, cfg.Archiver.MinAgeMonths, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewArchiveJob(arch, cfg.Archiver.Schedule, log)); err != nil {
		return fmt.Errorf("register archive job: %w", err)
	}
	if err := sched.AddJob(jobs.NewScoreRefreshJob(reportSvc, cardRepo, log)); err != nil {
		return fmt.Errorf("register score refresh job: %w", err)
	}

	sched.Start()
	fmt.Println("\n✅ Scheduler corriendo")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("   - %s\n", name)
	}
	fmt.Println("\nCtrl+C para detener")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	fmt.Println("Scheduler detenido")
	return nil
}
