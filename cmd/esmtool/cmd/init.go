/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with a generated API key",
		Long: `Create the configuration file with defaults and a freshly generated
API key for the REST server.

Examples:
  esmtool init
  esmtool init --config ./esmkit.yaml --data-dir ./data --print-key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if config.ConfigExists(a.configPath) && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", a.configPath)
			}

			cfg, err := config.BootstrapConfig(a.configPath, a.cfg.DataDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration created at %s\n", a.configPath)
			if printKey, _ := cmd.Flags().GetBool("print-key"); printKey {
				fmt.Fprintf(cmd.OutOrStdout(), "API key: %s\n", cfg.Server.APIKey)
			}
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
	return initCmd
}
