package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gestioncarteras/backend/internal/clients"
	"github.com/gestioncarteras/backend/internal/loans"
	"github.com/gestioncarteras/backend/internal/report"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/config"
	"github.com/gestioncarteras/backend/pkg/database"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [identificacion]",
	Short: "Calcular el score crediticio de un cliente",
	Long: `Genera el reporte crediticio completo de un cliente y muestra
el score global con el detalle por tarjeta.

El cálculo es siempre desde cero: simula día a día la cobertura de
pagos de cada tarjeta viva y la mezcla con el historial compactado.

Example:
  go run ./cmd/cartera score 1045228599`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	clientID := args[0]

	fmt.Println("=== Cartera Score Crediticio ===")

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
	reportSvc := report.NewService(
		cardRepo, clientRepo, clientRepo, scoring.NewEngine(),
		nil, nil, cfg.Scoring.MaxConcurrent, cfg.Scoring.ReportCacheTTL, log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	clientReport, err := reportSvc.BuildReport(ctx, clientID, nil)
	if err != nil {
		return fmt.Errorf("❌ build report: %w", err)
	}

	fmt.Printf("\nCliente: %s %s (%s)\n", clientReport.FirstName, clientReport.LastName, clientReport.ClientID)
	fmt.Printf("Score global:        %d\n", clientReport.GlobalScore)
	fmt.Printf("Créditos activos:    %d\n", clientReport.TotalActive)
	fmt.Printf("Créditos cerrados:   %d\n", clientReport.TotalClosed)
	fmt.Printf("Frecuencia promedio: %.1f%%\n", clientReport.AvgFrequencyPct)
	fmt.Printf("Retraso histórico:   %.1f días\n", clientReport.AvgOverdueDays)

	if len(clientReport.ActiveCards) > 0 {
		fmt.Println("\nTarjetas vivas:")
		for _, card := range clientReport.ActiveCards {
			ind := card.Indicators
			fmt.Printf("  %-12s score=%.1f  frecuencia=%.1f%%  retraso=%dd  max_cuotas=%d  atraso_cierre=%d\n",
				card.ReferenceID, ind.IndividualScore, ind.PaymentFrequencyPct,
				ind.DaysOverdueFinal, ind.MaxOverdueInstallments, ind.ClosureStressScore)
		}
	}

	fmt.Println("\n✅ Reporte generado")
	return nil
}
