package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/ports"
)

var checkCmd = &cobra.Command{
	Use:   "check <phone|account|name>",
	Short: "Look up a phone number, bank account or name",
	Long: "Resolves the query against the trust records and prints a result card.\n" +
		"Runs through the daemon when it is up, otherwise against the bundled seed data.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return ports.ErrEmptyQuery
	}

	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.Check(query)
	if err != nil {
		return explainCheckError(err)
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatCard(res.Card, useColor()))
	return nil
}

// explainCheckError adds a hint for the errors a user can act on.
func explainCheckError(err error) error {
	if errors.Is(err, ports.ErrSuperseded) {
		return fmt.Errorf("%w; another check started meanwhile, retry", err)
	}
	return err
}
