package cmd

import (
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "facturador",
	Short: "Issue and authorize electronic invoices and credit notes",
	Long: `Facturador issues electronic invoices and credit notes through the
tax authority's offline reception and authorization services.

Documents are signed with the issuer's certificate, submitted for
reception and polled until the authority reaches a determination.
Every document is persisted across its whole lifecycle, so an
interrupted issuance can be resumed with the status command.

Examples:
  # Start the HTTP API
  facturador serve --config facturador.yaml

  # Issue an invoice from a JSON file
  facturador issue invoice.json

  # Re-query a document stuck without determination
  facturador status 3008202601...

  # Generate an access key without touching the network
  facturador keygen --sequence 123`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (env: FACTURADOR_*)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
