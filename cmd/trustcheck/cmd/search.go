package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/adapters/socket"
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "List every record matching text",
	Long:  "Case-insensitive substring search over name, phones, accounts, banks and aliases.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one record by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, optionally filtered",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	listLevel string
	listPhone string
	listBank  string
)

func init() {
	listCmd.Flags().StringVar(&listLevel, "level", "", "only records at this level (safe, warn, danger)")
	listCmd.Flags().StringVar(&listPhone, "phone", "", "only records carrying this phone")
	listCmd.Flags().StringVar(&listBank, "bank", "", "only records at this bank")
	listCmd.MarkFlagsMutuallyExclusive("level", "phone", "bank")
}

func runSearch(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.Search(strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printRecords(cmd, res)
}

func runShow(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := b.Get(args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatRecord(rec, useColor()))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.List(socket.ListParams{Level: listLevel, Phone: listPhone, Bank: listBank})
	if err != nil {
		return err
	}
	return printRecords(cmd, res)
}

func printRecords(cmd *cobra.Command, res *socket.RecordsResult) error {
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatRecords(res, useColor()))
	return nil
}
