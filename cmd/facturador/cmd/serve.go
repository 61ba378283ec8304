package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturador/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for issuing documents.

The API provides endpoints for:
  - POST /api/v1/invoices                    - Issue an invoice
  - POST /api/v1/credit-notes                - Issue a credit note
  - GET  /api/v1/documents/:accessKey        - Fetch a stored document
  - GET  /api/v1/documents/:accessKey/status - Re-query an in-flight document
  - GET  /health                             - Health check

Examples:
  # Start with a config file
  facturador serve --config facturador.yaml

  # Configure through the environment
  FACTURADOR_DATABASE_DSN=postgres://... facturador serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	config := &server.Config{
		Address:      a.cfg.Server.Address,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		Debug:        a.cfg.Server.Debug || verbose,
	}

	srv := server.NewServer(config, a.orch, a.records)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		a.Close()
		os.Exit(0)
	}()

	a.log.Infow("starting server",
		"address", config.Address,
		"environment", a.cfg.Issuer.Environment,
	)
	return srv.Run()
}
