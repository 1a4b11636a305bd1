/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/api"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Serve the record catalog and load order resolution over HTTP.

Requests under /api/v1 must carry the configured key in X-API-Key unless no
key is configured. Prometheus metrics are exposed on /metrics.

Examples:
  esmtool serve
  esmtool serve --port 9000 --api-key mysecretkey`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				a.cfg.Server.Port, _ = flags.GetInt("port")
			}
			if flags.Changed("bind") {
				a.cfg.Server.Bind, _ = flags.GetString("bind")
			}
			if flags.Changed("api-key") {
				a.cfg.Server.APIKey, _ = flags.GetString("api-key")
			}
			if a.cfg.Server.APIKey == "" {
				a.log.Warnf("no API key configured, /api/v1 is unauthenticated")
			}

			cat, err := openCatalog(a)
			if err != nil {
				return err
			}
			defer cat.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			starter := getContainer().GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, cat, api.ServerConfig{
				Bind:   a.cfg.Server.Bind,
				Port:   a.cfg.Server.Port,
				APIKey: a.cfg.Server.APIKey,
			})
		},
	}
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key required in X-API-Key")
	return serveCmd
}
