package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cartera",
	Short: "Backend de gestión de carteras - scoring crediticio interno",
	Long: `Cartera CLI

Backend del sistema de gestión de carteras de microcrédito.
Scoring crediticio, reporte DataCrédito interno y archivado de
tarjetas canceladas.

Usage:
  go run ./cmd/cartera [command]

Examples:
  go run ./cmd/cartera api
  go run ./cmd/cartera score 1045228599
  go run ./cmd/cartera archive --dry-run
  go run ./cmd/cartera test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
