package main

import (
	"fmt"
	"os"

	"cashloan-backend/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "cashloan",
		Short:        "Cash loan repayment and M-Pesa reconciliation service",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd(), userCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
