// Package commands is the CLI entry point: the HTTP server plus admin provisioning.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pithakchhorn/portfolio-api/config"
	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/utils"
)

// RootCmd is the top level command; it runs the server when called without a subcommand.
var RootCmd = &cobra.Command{
	Use:           "portfolio-api",
	Short:         "Portfolio admin backend",
	Long:          "REST backend for a personal portfolio: posts, certificates, skills and their uploads.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd, adminCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, the logger and the database shared by every command.
func bootstrap() (config.AppConfig, *gorm.DB, error) {
	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := config.OpenDatabase(cfg, models.All()...)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}
