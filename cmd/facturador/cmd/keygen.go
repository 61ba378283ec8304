package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturador/internal/accesskey"
	"github.com/rezonia/facturador/internal/config"
	"github.com/rezonia/facturador/internal/model"
)

var (
	keygenKind     string
	keygenSequence int64
	keygenDate     string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an access key locally",
	Long: `Generate a 49-digit access key from the configured issuer without
touching the network. Each run produces a different key for the same
sequence because the numeric salt is random.

Examples:
  facturador keygen --sequence 123
  facturador keygen --sequence 123 --kind credit-note --date 2026-08-30`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenKind, "kind", "invoice", "Document kind (invoice, credit-note)")
	keygenCmd.Flags().Int64Var(&keygenSequence, "sequence", 1, "Sequence number")
	keygenCmd.Flags().StringVar(&keygenDate, "date", "", "Emission date (YYYY-MM-DD, default today)")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	kind := model.KindInvoice
	if keygenKind == "credit-note" {
		kind = model.KindCreditNote
	}

	date := time.Now().In(cfg.Location())
	if keygenDate != "" {
		date, err = time.ParseInLocation("2006-01-02", keygenDate, cfg.Location())
		if err != nil {
			return fmt.Errorf("parsing date: %w", err)
		}
	}

	issuer := cfg.ModelIssuer()
	key, err := accesskey.Generate(accesskey.Input{
		EmissionDate:  date,
		Kind:          kind,
		RUC:           issuer.RUC,
		Environment:   issuer.Environment,
		Establishment: issuer.Establishment,
		EmissionPoint: issuer.EmissionPoint,
		Sequence:      model.FormatSequence(keygenSequence),
	})
	if err != nil {
		return err
	}

	fmt.Println(key)
	return nil
}
