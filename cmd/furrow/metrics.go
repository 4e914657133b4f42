package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/furrow-ag/furrow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Expose ledger gauges on a Prometheus /metrics endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = cfg.Metrics.ListenAddress
		}

		ledger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer ledger.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			observability.NewLedgerCollector(ledger.Stats, 0, logger),
		)

		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler(reg))
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Serving metrics", "addr", addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("metrics server: %w", err)

		case <-cmd.Context().Done():
			logger.Info("Shutting down metrics server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
			}
			return nil
		}
	},
}

func init() {
	serveMetricsCmd.Flags().String("listen", "", "Listen address (default from metrics.listenAddress)")
	rootCmd.AddCommand(serveMetricsCmd)
}
