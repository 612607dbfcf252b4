// Command xd is the maintenance CLI for xdash: exports, reports, connectivity
// checks and legacy imports against the local state database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xdash/internal/app"
	"github.com/ibeckermayer/xdash/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "xd",
	Short:         "xdash maintenance CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is the platform config dir)")
	rootCmd.AddCommand(exportCmd, reportCmd, probeCmd, copyCmd, openCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.LoadOrCreate(), nil
}

// withApp opens the state database for the duration of fn.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown(cmd.Context())

	if account, _ := cmd.Flags().GetString("account"); account != "" {
		if err := a.State().SwitchAccount(account); err != nil {
			return err
		}
	}
	return fn(a)
}
