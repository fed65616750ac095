package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/homiodev/homio-hquery/internal/catalog"
	"github.com/homiodev/homio-hquery/internal/engine"
	"github.com/homiodev/homio-hquery/internal/logging"
	"github.com/homiodev/homio-hquery/internal/metrics"
	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/slogger"
)

const shutdownTimeout = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <query> [args...]",
	Short: "Run a query repeatedly",
	Long: `Run a query on an interval and print each result.

Catalog files are watched while running: edits are picked up without a
restart. With --metrics-addr, Prometheus metrics for every call are served
on /metrics at that address.`,
	Example: `  # Print CPU temperature every 5 seconds
  hquery watch cpu-temp --interval 5s

  # Keep a record of every reading
  hquery watch uptime --interval 1m --record ~/uptime.log

  # Scan ten times and expose metrics
  hquery watch wifi-scan --count 10 --metrics-addr :9464`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatchCmd,
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return fmt.Errorf("get interval flag: %w", err)
	}
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return fmt.Errorf("get count flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("get json flag: %w", err)
	}
	addr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return fmt.Errorf("get metrics-addr flag: %w", err)
	}
	extra, err := cmd.Flags().GetStringSlice("catalog")
	if err != nil {
		return fmt.Errorf("get catalog flag: %w", err)
	}
	record, err := cmd.Flags().GetString("record")
	if err != nil {
		return fmt.Errorf("get record flag: %w", err)
	}

	reg, err := requireRegistry(cmd.Context())
	if err != nil {
		return err
	}
	cfg := ConfigFromContext(cmd.Context())
	if addr == "" && cfg != nil && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}

	name := args[0]
	if _, ok := reg.Get(name); !ok {
		return fmt.Errorf("%w: %s", query.ErrUnknownQuery, name)
	}
	callArgs := parseArgs(args[1:])

	out := cmd.OutOrStdout()
	if record != "" {
		tw, err := logging.NewTeeWriter(out, record)
		if err != nil {
			return err
		}
		defer tw.Close()
		out = tw
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := slogger.L(ctx)

	g, gctx := errgroup.WithContext(ctx)

	if addr != "" {
		m := MetricsFromContext(ctx)
		g.Go(func() error { return serveMetrics(gctx, addr, m) })
	}

	if cfg != nil {
		paths := catalogPaths(cfg, extra)
		if watched := watchablePaths(paths); len(watched) > 0 {
			g.Go(func() error {
				return catalog.Watch(gctx, watched, func() {
					if err := loadCatalogs(gctx, reg, cfg.Catalog.Builtin, paths); err != nil {
						logger.Error("catalog reload failed", "error", err)
						return
					}
					logger.Info("catalogs reloaded", "queries", reg.Len())
				})
			})
		}
	}

	g.Go(func() error {
		defer stop()
		return poll(gctx, out, reg, name, callArgs, interval, count, asJSON)
	})

	return g.Wait()
}

// poll calls the query every interval until ctx is done or count calls were
// made. Failed calls are logged and polling continues.
func poll(ctx context.Context, w io.Writer, reg *engine.Registry, name string, args []query.Arg, interval time.Duration, count int, asJSON bool) error {
	logger := slogger.L(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; count <= 0 || n < count; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}

		v, err := reg.CallWith(ctx, name, args)
		switch {
		case errors.Is(err, query.ErrUnknownQuery):
			return err
		case err != nil:
			logger.Error("query failed", "query", name, "error", err)
		default:
			if err := writeValue(w, v, asJSON); err != nil {
				return err
			}
		}
	}
	return nil
}

// serveMetrics exposes m on /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) error {
	if m == nil {
		return errors.New("metrics not initialized")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slogger.L(ctx).Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 10*time.Second, "time between calls")
	watchCmd.Flags().Int("count", 0, "stop after this many calls (0 runs until interrupted)")
	watchCmd.Flags().Bool("json", false, "print results as JSON")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.Flags().String("record", "", "also append results to this file")
}
