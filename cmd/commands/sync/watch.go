package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nathanbeddoewebdev/promptsync/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func WatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing in the foreground",
		Long: `Pull and push on a fixed interval until interrupted.

With --metrics-addr, Prometheus metrics are served on /metrics.

Examples:
  promptsync sync watch
  promptsync sync watch --interval 5m --metrics-addr :9464`,
		Args:         cobra.NoArgs,
		RunE:         runWatch,
		SilenceUsage: true,
	}

	cmd.Flags().Duration("interval", time.Minute, "Time between sync attempts")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be greater than 0")
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := openContainer(cmd, app.Options{Registerer: reg})
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching every %s. Press Ctrl+C to stop.\n", interval)

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			res := c.Syncer.Pull(ctx)
			c.Log.Info("pull finished", zap.Stringer("result", res))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		return c.Syncer.Run(ctx, interval)
	})

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			c.Log.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
