package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/qcbank/internal/logging"
	"github.com/abhisek/qcbank/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			d.cfg.Server.Addr = addr
		}

		if d.cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		httpLog := logging.Component(d.log, "http")
		router := server.NewRouter(d.svc, server.Options{
			Log:            httpLog,
			Observer:       d.metrics,
			MetricsHandler: d.metrics.Handler(),
			RequestTimeout: d.cfg.Server.RequestTimeout,
			Version:        version,
		})
		srv := server.New(d.cfg.Server.Addr, router,
			d.cfg.Server.ReadTimeout, d.cfg.Server.WriteTimeout, d.cfg.Server.ShutdownTimeout, httpLog)

		d.log.Info().Str("analyzers", d.analyzer).Str("version", version).Msg("starting qcbank")
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config and QCBANK_ADDR)")
}
