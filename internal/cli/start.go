package cli

import (
	"fmt"

	"github.com/europython/sponsorbot/internal/config"
	"github.com/europython/sponsorbot/internal/daemon"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sponsorbot daemon",
	Long: `Start the sponsorbot daemon in the foreground.
The daemon answers sponsor commands on Telegram until it receives SIGINT
or SIGTERM, and reloads the sponsors settings when the config file changes.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pidFile := daemon.PIDFilePath(cfg.DataDir)
	if isRunning(pidFile) {
		return fmt.Errorf("daemon is already running (PID file: %s)", pidFile)
	}

	log, err := newLogger(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	configPath, err := config.NewLoader(cfgFile).GetConfigPath()
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, log,
		daemon.WithConfigPath(configPath),
		daemon.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	d.Wait()
	return nil
}

func isRunning(pidFile string) bool {
	pid, err := daemon.ReadPID(pidFile)
	if err != nil {
		return false
	}
	return processAlive(pid)
}
