package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/app"
	"github.com/corey/trustcheck/internal/logging"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the trustcheck daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long:  "Serves the socket protocol and, unless disabled, the HTTP lookup page until SIGINT/SIGTERM or `daemon stop`.",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sockPath := socket.SocketPath(cfg.DataDir)

	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Println("daemon already running")
		return nil
	}

	paths := app.NewPaths(cfg.DataDir)
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logFile, err := os.OpenFile(paths.DaemonLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()
	log := logging.New(cfg.Logging, io.MultiWriter(os.Stderr, logFile))

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Close()
		return err
	}
	if err := os.WriteFile(paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		log.Warn("could not write pid file", "path", paths.PIDFile, "error", err)
	}

	fmt.Printf("trustcheck daemon started at %s\n", sockPath)
	if url := a.HTTPURL(); url != "" {
		fmt.Printf("lookup page at %s\n", url)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Println("\nshutting down...")
	case <-a.ShutdownCh():
		log.Info("shutdown requested over socket")
	}
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := socket.NewClient(socket.SocketPath(cfg.DataDir))

	if !client.Ping() {
		fmt.Println("daemon is not running")
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println("daemon stopped")
	return nil
}
