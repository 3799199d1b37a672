package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/app"
	"github.com/corey/trustcheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: "Shows the effective configuration, data paths and daemon status. No daemon required.\n" +
		"Settings come from defaults, then $" + config.EnvFile + ", then TRUSTCHECK_* env vars, then flags.",
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), cfg)
	}

	p := painter(useColor())
	paths := app.NewPaths(cfg.DataDir)
	sockPath := socket.SocketPath(cfg.DataDir)

	daemonRunning := socket.NewClient(sockPath).Ping()
	daemonStatus := p.paint(colorYellow, "✗ not running")
	if daemonRunning {
		daemonStatus = p.paint(colorGreen, "✓ running")
	}

	lexicon := cfg.Lexicon.Path
	if lexicon == "" {
		lexicon = "embedded"
	} else if cfg.Lexicon.Watch {
		lexicon += " (watched)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, p.paint(colorBold, "trustcheck config"))
	fmt.Fprintf(out, "  Data dir:   %s\n", cfg.DataDir)
	fmt.Fprintf(out, "  Archive:    %s\n", cfg.ArchivePath())
	fmt.Fprintf(out, "  Log:        %s\n", paths.DaemonLog)
	fmt.Fprintf(out, "  Socket:     %s\n", sockPath)
	fmt.Fprintf(out, "  Daemon:     %s\n", daemonStatus)
	fmt.Fprintf(out, "  Skin:       %s\n", cfg.Lookup.Skin)
	fmt.Fprintf(out, "  Delay:      %s\n", cfg.Lookup.Delay)
	fmt.Fprintf(out, "  Lexicon:    %s\n", lexicon)

	if daemonRunning {
		if portData, err := os.ReadFile(paths.PortFile); err == nil {
			fmt.Fprintf(out, "  Lookup:     http://localhost:%s\n", strings.TrimSpace(string(portData)))
		}
	} else if !cfg.HTTP.Enabled {
		fmt.Fprintf(out, "  Lookup:     %s\n", p.paint(colorGray, "disabled"))
	}
	return nil
}
