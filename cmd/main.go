package main

import (
	"os"

	"forexrates/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// @title        forexrates API
// @version      1.0
// @description  Currency exchange rates backed by a local store with Alpha Vantage fallback.
// @BasePath     /api/v1
func main() {
	var cfgPath string

	serve := func(_ *cobra.Command, _ []string) error {
		return app.Run(cfgPath)
	}

	rootCmd := &cobra.Command{
		Use:           "forexrates",
		Short:         "Exchange rates service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API and the stats scheduler",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply Postgres migrations and exit",
			RunE: func(_ *cobra.Command, _ []string) error {
				return app.Migrate(cfgPath)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("forexrates exited with error")
		os.Exit(1)
	}
}
