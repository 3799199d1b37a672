package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Save, restore and manage named snapshots",
}

var backupSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Archive the daemon's current records",
	Long:  "Saves the live store under name (default: a timestamp). An existing backup with the same name is replaced.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupSave,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the daemon's records with a saved backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

func init() {
	backupCmd.AddCommand(backupSaveCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupDeleteCmd)
}

func runBackupSave(cmd *cobra.Command, args []string) error {
	name := time.Now().Format("20060102-150405")
	if len(args) == 1 {
		name = args[0]
	}

	b, closeFn, err := openBackend(accessDaemon)
	if err != nil {
		return err
	}
	defer closeFn()

	info, err := b.Backup(name)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), info)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d records)\n", info.Name, info.TotalRecords)
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessDaemon)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.Restore(args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%d records)\n", args[0], res.Imported)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := b.Backups()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatBackups(res, useColor()))
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	b, closeFn, err := openBackend(accessLocal)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := b.DeleteBackup(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
