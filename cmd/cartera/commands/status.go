package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gestioncarteras/backend/pkg/config"
	"github.com/gestioncarteras/backend/pkg/database"
	"github.com/gestioncarteras/backend/pkg/redis"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Estado del sistema",
	Long: `Muestra la configuración cargada y el estado de las
dependencias (PostgreSQL, Redis).

Example:
  go run ./cmd/cartera status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Cartera Status ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ load config: %w", err)
	}

	fmt.Printf("\nConfiguración:\n")
	fmt.Printf("   Entorno:              %s\n", cfg.Env)
	fmt.Printf("   Puerto:               %s\n", cfg.Port)
	fmt.Printf("   Archivado:            >= %d meses, cron %q\n", cfg.Archiver.MinAgeMonths, cfg.Archiver.Schedule)
	fmt.Printf("   Scoring concurrente:  %d tarjetas\n", cfg.Scoring.MaxConcurrent)
	fmt.Printf("   TTL cache reporte:    %s\n", cfg.Scoring.ReportCacheTTL)
	fmt.Printf("   Registro externo:     habilitado=%v\n", cfg.Registry.Enabled)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Database
	fmt.Printf("\nPostgreSQL: ")
	db, err := database.New(cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
	} else {
		defer db.Close()
		if err := db.Ping(ctx); err != nil {
			fmt.Printf("❌ ping: %v\n", err)
		} else {
			stats := db.Stats()
			fmt.Printf("✅ conectado (%d/%d conexiones)\n", stats.AcquiredConns, stats.MaxConns)
		}
	}

	// Redis
	fmt.Printf("Redis:      ")
	rdb, err := redis.New(cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return nil
	}
	defer rdb.Close()

	if !rdb.Enabled() {
		fmt.Println("⚪ deshabilitado (cache y rate limits inactivos)")
		return nil
	}
	if err := rdb.Redis().Ping(ctx).Err(); err != nil {
		fmt.Printf("❌ ping: %v\n", err)
	} else {
		fmt.Println("✅ conectado")
	}

	return nil
}
