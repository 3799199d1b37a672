package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [note...]",
	Short: "Score a free-text note",
	Long:  "Scores a note against the keyword lexicon. Reads stdin when no note is given and stdin is piped.",
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	note := strings.Join(args, " ")
	if len(args) == 0 {
		if !isStdinPipe() {
			return fmt.Errorf("no note given; pass it as arguments or pipe it on stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		note = string(data)
	}

	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.Analyze(note)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatAssessment(res, useColor()))
	return nil
}
