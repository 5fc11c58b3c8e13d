// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"github.com/ManuGH/segplay/internal/config"
	"github.com/ManuGH/segplay/internal/log"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "segplay",
		Short:        "Playback core diagnostics",
		Long:         "Inspect track selection and delivery strategy for media server items.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log.Configure(log.Config{
				Level:   opts.logLevel,
				Output:  cmd.ErrOrStderr(),
				Service: "segplay",
				Version: version,
			})
			if opts.logLevel != "" {
				log.SetLevel(opts.logLevel)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newInspectCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the effective configuration: environment over file over
// defaults. A --log-level flag wins over both.
func (o *rootOptions) load() (config.AppConfig, error) {
	cfg, err := config.NewLoader(o.configPath, version).Load()
	if err != nil {
		return cfg, err
	}
	if o.logLevel == "" {
		log.SetLevel(cfg.LogLevel)
	}
	return cfg, nil
}
