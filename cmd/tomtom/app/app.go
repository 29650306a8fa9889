// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package app implements the tomtom command line interface.
package app

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/macq/tomtom-api/pkg/config"
	"github.com/macq/tomtom-api/pkg/queue"
	"github.com/macq/tomtom-api/pkg/traffic"
	"github.com/macq/tomtom-api/pkg/util/log"
)

var (
	// TomtomCmd is the root command.
	TomtomCmd = &cobra.Command{
		Use:   "tomtom [command]",
		Short: "Queue and monitor TomTom Traffic Stats jobs",
		Long: `
tomtom maintains a local priority queue of traffic analysis jobs and a
daemon that feeds them to the TomTom Traffic Stats API, respecting the
concurrency cap of the remote service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}

	cfg *config.Config

	flagNoColor  bool
	flagLogLevel string
)

func init() {
	TomtomCmd.PersistentFlags().BoolVarP(&flagNoColor, "no-color", "n", false, "disable color output")
	TomtomCmd.PersistentFlags().StringVarP(&flagLogLevel, "log-level", "l", "", "override the configured log level")
}

// setup resolves the configuration and installs the console logger. Called
// for every subcommand.
func setup() error {
	if flagNoColor {
		color.NoColor = true
	}

	var err error
	cfg, err = config.New()
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger, err := log.BuildLogger(cfg.LogLevel, "")
	if err != nil {
		return fmt.Errorf("setting up the logger: %w", err)
	}
	log.SetupLogger(logger, cfg.LogLevel)
	return nil
}

// openStore opens the queue table under the configured home folder.
func openStore(ctx context.Context) (*queue.Store, error) {
	fs := afero.NewOsFs()
	payloads := queue.NewPayloadStore(fs, cfg.PayloadFolder())
	return queue.NewStore(ctx, fs, cfg.DatabaseFile(), payloads)
}

// newClient builds the remote client, or a dummy one for dry runs.
func newClient(dryRun bool) (traffic.Client, error) {
	if dryRun {
		log.Info("Dry run: using the dummy client, nothing is sent to the remote service")
		return traffic.NewDummyClient(), nil
	}
	return traffic.NewClient(cfg)
}
