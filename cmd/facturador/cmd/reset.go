package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset-sequences",
	Short: "Delete all documents and restart sequence numbering",
	Long: `Delete every stored document and reset the sequence counters to zero.

Meant for the test environment only: re-running a demo or an
integration suite against a clean slate. Running this against
production data destroys the issuance history.

Examples:
  facturador reset-sequences --yes`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		fmt.Print("This deletes every stored document and counter. Type 'yes' to continue: ")
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil || answer != "yes" {
			return fmt.Errorf("aborted")
		}
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.records.DeleteAll(ctx); err != nil {
		return err
	}
	if err := a.alloc.ResetAll(ctx); err != nil {
		return err
	}

	a.log.Infow("documents and sequence counters reset")
	fmt.Println("All documents deleted, sequence counters reset.")
	return nil
}
