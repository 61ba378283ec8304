package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <access-key>",
	Short: "Re-query a document's authorization status",
	Long: `Query the stored record for an access key and, when the document has
no terminal status yet, ask the authority again.

Useful for documents left RETRY_PENDING or TIMEOUT by an interrupted
issuance.

Examples:
  facturador status 3008202601179001234500110010020000000010123456781`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.CheckStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
