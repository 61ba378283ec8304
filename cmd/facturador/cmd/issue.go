package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturador/internal/model"
)

var issueKind string

var issueCmd = &cobra.Command{
	Use:   "issue <document.json>",
	Short: "Issue a document from a JSON file",
	Long: `Issue an invoice or credit note described by a JSON file and wait
for the authority's determination.

The file carries the buyer, the lines and the tax rate; sequence,
access key and totals are assigned during issuance. Credit notes
additionally carry modifiedAccessKey and reason.

Examples:
  # Issue an invoice
  facturador issue invoice.json

  # Issue a credit note
  facturador issue note.json --kind credit-note`,
	Args: cobra.ExactArgs(1),
	RunE: runIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)

	issueCmd.Flags().StringVar(&issueKind, "kind", "invoice", "Document kind (invoice, credit-note)")
}

func runIssue(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	switch issueKind {
	case "invoice":
		doc.Kind = model.KindInvoice
	case "credit-note":
		doc.Kind = model.KindCreditNote
	default:
		return fmt.Errorf("unknown kind %q", issueKind)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.Issue(cmd.Context(), &doc)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if res.Status == model.StatusRejected {
		return model.NewBusinessRejection(res.AccessKey, res.Messages)
	}
	return nil
}
