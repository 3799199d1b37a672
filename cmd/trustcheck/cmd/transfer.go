package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every record as a JSON snapshot",
	Long:  "Writes {stats, records, exportedAt} to stdout, or to --out. The output can be fed back to `import`.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Replace the daemon's records with a JSON snapshot",
	Long: "Reads a snapshot produced by `export` from a file, or from stdin when the argument is - or missing.\n" +
		"The daemon recomputes stats from the imported records. A malformed snapshot leaves the store untouched.",
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to this file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	snap, err := b.Export()
	if err != nil {
		return err
	}

	if exportOut == "" {
		return printJSON(cmd.OutOrStdout(), snap)
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return err
	}
	if err := printJSON(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", len(snap.Records), exportOut)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	payload, err := readImportPayload(args)
	if err != nil {
		return err
	}

	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.Import(payload)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records", res.Imported)
	if res.Warnings > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d validation warnings, see daemon log)", res.Warnings)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func readImportPayload(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		if len(args) == 0 && !isStdinPipe() {
			return nil, fmt.Errorf("no snapshot given; pass a file or pipe it on stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	return data, nil
}
