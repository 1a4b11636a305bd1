/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/config"
	"github.com/ssargent/esmkit/pkg/di"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/logging"
	"github.com/ssargent/esmkit/pkg/strtable"
)

var container *di.Container

// SetContainer sets the dependency injection container
func SetContainer(c *di.Container) {
	container = c
}

func getContainer() *di.Container {
	if container == nil {
		container = di.NewContainer()
	}
	return container
}

type appKey struct{}

// app is the resolved configuration shared by all subcommands
type app struct {
	configPath string
	cfg        *config.Config
	variant    codec.Variant
	log        *logging.Logger
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return a, nil
}

// walkerOptions applies the configured limits and, for localized files,
// the string tables found next to path.
func (a *app) walkerOptions(path string) []esm.Option {
	opts := []esm.Option{
		esm.WithMaxRecordSize(a.cfg.Codec.MaxRecordSize),
		esm.WithLogger(a.log.DebugLogger()),
	}
	if a.variant != codec.VariantUnknown {
		opts = append(opts, esm.WithVariant(a.variant))
	}
	if path != "" {
		tbl, err := strtable.LoadForPlugin(path, a.cfg.Codec.Language)
		switch {
		case err != nil:
			a.log.Warnf("ignoring string tables of %s: %v", path, err)
		case tbl.Len() > 0:
			a.log.Debugf("loaded %d localized strings for %s", tbl.Len(), path)
			opts = append(opts, esm.WithStringTable(tbl))
		}
	}
	return opts
}

func (a *app) catalogDir() string {
	return filepath.Join(a.cfg.DataDir, "catalog")
}

func loadApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit && cmd.Name() != "init" {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("variant") {
		cfg.Codec.Variant, _ = flags.GetString("variant")
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	v, err := codec.ParseVariant(cfg.Codec.Variant)
	if err != nil {
		return nil, err
	}
	return &app{
		configPath: configPath,
		cfg:        cfg,
		variant:    v,
		log:        logging.New(cmd.ErrOrStderr(), level),
	}, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "esmtool",
		Short: "esmtool - inspect and rewrite TES data files",
		Long: `esmtool reads and writes the record-based data files (.esm/.esp/.esl)
of the TES3 and TES4 engine families.

It can inspect headers and records, resolve load orders, rewrite files
losslessly, strip records, catalogue records for lookup and serve the
catalogue over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (default ~/.config/esmkit/config.yaml)")
	flags.StringP("data-dir", "d", "./data", "Data directory for the catalog")
	flags.String("variant", "auto", "File variant: auto, tes3 or tes4")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newInitCmd(),
		newInfoCmd(),
		newListCmd(),
		newResolveCmd(),
		newCopyCmd(),
		newCleanCmd(),
		newIndexCmd(),
		newFindCmd(),
		newServeCmd(),
		newShellCmd(),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
