package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gestioncarteras/backend/internal/archiver"
	"github.com/gestioncarteras/backend/internal/clients"
	"github.com/gestioncarteras/backend/internal/loans"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/config"
	"github.com/gestioncarteras/backend/pkg/database"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archivar tarjetas canceladas antiguas",
	Long: `Compacta las tarjetas canceladas con más antigüedad que el
umbral configurado (ARCHIVER_MIN_AGE_MONTHS) en el historial
crediticio del cliente.

Este comando:
- Calcula los indicadores finales de cada tarjeta elegible
- Agrega el resumen al historial_crediticio (jsonb)
- Elimina los abonos y la tarjeta
- Una transacción por cliente: un fallo no afecta a los demás

Example:
  go run ./cmd/cartera archive
  go run ./cmd/cartera archive --dry-run`,
	RunE: runArchive,
}

var archiveDryRun bool

func init() {
	rootCmd.AddCommand(archiveCmd)

	// Flags
	archiveCmd.Flags().BoolVar(&archiveDryRun, "dry-run", false, "mostrar qué se archivaría sin tocar la base de datos")
}

func runArchive(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Cartera Archivado de Tarjetas ===")

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

	cardRepo := loans.NewRepository(db.Pool)
	clientRepo := clients.NewRepository(db.Pool)
	arch := archiver.New(db.Pool, cardRepo, clientRepo, scoring.NewEngine(), cfg.Archiver.MinAgeMonths, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := arch.Run(ctx, time.Now(), archiveDryRun)
	if err != nil {
		return fmt.Errorf("❌ archival run failed: %w", err)
	}

	if result.DryRun {
		fmt.Println("\n🔍 Dry run (sin cambios en la base de datos)")
	}
	fmt.Printf("\n✅ Resultado del archivado:\n")
	fmt.Printf("   Fecha de corte:       %s\n", result.Cutoff.Format("2006-01-02"))
	fmt.Printf("   Tarjetas candidatas:  %d\n", result.CandidateCards)
	fmt.Printf("   Tarjetas archivadas:  %d\n", result.ArchivedCards)
	fmt.Printf("   Clientes afectados:   %d\n", result.ClientsAffected)

	if len(result.Errors) > 0 {
		fmt.Printf("\n⚠️  Errores (%d):\n", len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Printf("   - %s\n", msg)
		}
	}

	return nil
}
