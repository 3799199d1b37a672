package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/adapters/socket"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := socket.NewClient(socket.SocketPath(cfg.DataDir))

	if !client.Ping() {
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), socket.HealthResult{Status: "not running"})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "trustcheck daemon is not running")
		return nil
	}

	health, err := client.Health()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), health)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatHealth(health, useColor()))
	return nil
}
