package main

import (
	"fmt"
	"os"
	"time"

	"horus-go/internal/app"
	"horus-go/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and overlays .env and HORUS_* variables.
func loadConfig() (*config.Config, map[string]string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}

	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates a HorusApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "SetStatus", "AddClip").
func newApp(operation string) (*app.HorusApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewHorusApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "horus",
	Short:        "Review statuses, comments and playlists of a VFX project",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(app.DefaultUser(), defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User:     %s\n", cfg.User)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User:      %s\n", cfg.User)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Log Level: %s\n", cfg.LogLevel)
		fmt.Printf("Journal:   %s %s\n", cfg.Journal.Type, cfg.Journal.DataDir)
		for i, p := range cfg.Providers {
			fmt.Printf("Provider %d: %s %s%s\n", i+1, p.Type, p.Host, p.Root)
		}
		return nil
	},
}

// mode command
var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show which provider serves the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Mode")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.Mode())
		return nil
	},
}

// refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop cached statuses and media listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Refresh")
		if err != nil {
			return err
		}
		defer a.Close()

		a.Refresh()
		fmt.Println("Cache cleared.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-18s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
