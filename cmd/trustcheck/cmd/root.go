package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "trustcheck",
	Short:         "Phone, account and name trust lookups",
	Long:          "Check phone numbers, bank accounts and names against known trust records, and score free-text notes.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Persistent flags. Empty/zero values leave the loaded config alone.
var (
	flagJSON     bool
	flagColor    string
	flagNoColor  bool
	flagDataDir  string
	flagSkin     string
	flagLexicon  string
	flagHTTPPort int
)

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "print raw JSON instead of formatted output")
	pf.StringVar(&flagColor, "color", "auto", "color output: auto, always, never")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable color output")
	pf.StringVar(&flagDataDir, "data-dir", "", "data directory (default $TRUSTCHECK_DATA_DIR or ~/.trustcheck)")
	pf.StringVar(&flagSkin, "skin", "", "card skin: classic or detailed")
	pf.StringVar(&flagLexicon, "lexicon", "", "keyword lexicon YAML file (default: embedded)")
	pf.IntVar(&flagHTTPPort, "http-port", 0, "HTTP API port for the daemon (default: derived from data dir)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads file/env config and applies CLI flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagSkin != "" {
		cfg.Lookup.Skin = flagSkin
	}
	if flagLexicon != "" {
		cfg.Lexicon.Path = flagLexicon
	}
	if flagHTTPPort != 0 {
		cfg.HTTP.Port = flagHTTPPort
	}
	return cfg, cfg.Validate()
}

// useColor reports whether formatted output should carry ANSI codes.
func useColor() bool {
	return resolveColor(flagColor, flagNoColor)
}
