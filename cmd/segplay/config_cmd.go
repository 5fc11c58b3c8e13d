// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"errors"
	"fmt"

	"github.com/ManuGH/segplay/internal/config"
	"github.com/ManuGH/segplay/internal/validate"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "segplay.yaml"

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(root), newConfigValidateCmd(root))
	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the built-in defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = defaultConfigPath
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the effective configuration and report every problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := root.load()
			if err == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
				return err
			}
			var verr validate.ValidationError
			if errors.As(err, &verr) {
				for _, e := range verr.Errors() {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", e.Field, e.Message)
				}
			}
			return err
		},
	}
}
