// Package serve runs the HTTP API.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/cfdi-sentinel/cmd/root"
	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/spf13/cobra"
)

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation API over HTTP",
	Long: `Serve the validation engine over HTTP until interrupted.

Endpoints:
  POST /v1/validate?file=<name>&giro=<activity>   body: CFDI XML
  GET  /v1/history?limit=<n>                      recent batch runs
  GET  /healthz
  GET  /metrics                                   Prometheus metrics

Example:
  cfdi-sentinel serve --addr :8080`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
}

func serveFunc(cmd *cobra.Command, _ []string) error {
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	listen := addr
	if listen == "" {
		listen = c.GetConfig().Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.GetLogger().Info("Starting API server",
		logging.Field{Key: "addr", Value: listen},
		logging.Field{Key: "backends", Value: c.Describe()})
	return c.NewAPIServer().ListenAndServe(ctx, listen)
}
