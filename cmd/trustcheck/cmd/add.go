package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/ports"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a trust record to the running daemon",
	Long: "Adds one record to the live store. A missing --id is generated.\n" +
		"Without --score and --level the record is neutral; with only --score the level follows the score.\n" +
		"--score-from-note scores the record from its note the same way `analyze` does.",
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var addFlags struct {
	id, phone, account, bank, name, note string
	category, location, level, warning   string
	score                                int
	aliases, tags                        []string
	verified, scoreFromNote              bool
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addFlags.id, "id", "", "record ID (default: generated)")
	f.StringVar(&addFlags.phone, "phone", "", "primary phone number")
	f.StringVar(&addFlags.account, "account", "", "primary bank account number")
	f.StringVar(&addFlags.bank, "bank", "", "bank name")
	f.StringVar(&addFlags.name, "name", "", "display name")
	f.StringVar(&addFlags.note, "note", "", "free-text note")
	f.StringVar(&addFlags.category, "category", "", "category")
	f.StringVar(&addFlags.location, "location", "", "location")
	f.StringVar(&addFlags.level, "level", "", "level: safe, warn, danger or neutral")
	f.StringVar(&addFlags.warning, "warning", "", "flag the record with this warning message")
	f.IntVar(&addFlags.score, "score", 0, "trust score 0-100")
	f.StringSliceVar(&addFlags.aliases, "alias", nil, "alternate name (repeatable)")
	f.StringSliceVar(&addFlags.tags, "tag", nil, "tag (repeatable)")
	f.BoolVar(&addFlags.verified, "verified", false, "mark the record as verified")
	f.BoolVar(&addFlags.scoreFromNote, "score-from-note", false, "derive score and level from --note")
	addCmd.MarkFlagsMutuallyExclusive("score", "score-from-note")
}

func runAdd(cmd *cobra.Command, args []string) error {
	rec := ports.TrustRecord{
		ID:       strings.TrimSpace(addFlags.id),
		Phone:    strings.TrimSpace(addFlags.phone),
		Account:  strings.TrimSpace(addFlags.account),
		Bank:     addFlags.bank,
		Name:     addFlags.name,
		Note:     addFlags.note,
		Category: addFlags.category,
		Location: addFlags.location,
		Level:    ports.Level(strings.ToLower(addFlags.level)),
		Score:    addFlags.score,
		Aliases:  addFlags.aliases,
		Tags:     addFlags.tags,
		Verified: addFlags.verified,
	}
	if addFlags.warning != "" {
		rec.Warning = true
		rec.WarningMessage = addFlags.warning
	}
	if rec.Phone == "" && rec.Account == "" && rec.Name == "" {
		return fmt.Errorf("a record needs at least one of --phone, --account or --name")
	}
	if addFlags.scoreFromNote && strings.TrimSpace(rec.Note) == "" {
		return fmt.Errorf("--score-from-note needs --note")
	}

	b, closeFn, err := openBackend(accessDaemon)
	if err != nil {
		return err
	}
	defer closeFn()

	if addFlags.scoreFromNote {
		a, err := b.Analyze(rec.Note)
		if err != nil {
			return err
		}
		rec.Score = a.Score
		if rec.Level == "" {
			rec.Level = a.Level
		}
	}

	id, err := b.Add(rec)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", id)
	return nil
}
