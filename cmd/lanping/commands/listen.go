package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edgecli/lanping"
	"github.com/edgecli/lanping/internal/registry"
	"github.com/edgecli/lanping/internal/ui"
)

const shutdownTimeout = 5 * time.Second

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Answer discovery requests and print peers as they appear",
	Long: `Run a node that answers pings and discovery broadcasts until interrupted.
Peers that announce themselves or answer our announcements are printed the
first time they are seen. Custom events named with --on are printed as they
arrive.`,
	Example: `  lanping listen --role printer --name office
  lanping listen --announce 30s --on chat --on job
  lanping listen --metrics-addr :9324`,
	RunE: func(cmd *cobra.Command, args []string) error {
		announce, _ := cmd.Flags().GetDuration("announce")
		events, _ := cmd.Flags().GetStringArray("on")

		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}

		logger := newLogger(os.Stderr, cfg.Verbose)
		var extra []lanping.Option
		var gatherer prometheus.Gatherer
		if cfg.MetricsAddr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			extra = append(extra, lanping.WithMetrics(reg))
			gatherer = reg
		}

		node, err := newNode(cfg, logger, extra...)
		if err != nil {
			return err
		}
		defer node.Close()

		peers, err := registry.NewRegistry(registry.DefaultSize, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		self := nodeOptions(cfg)
		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderDim(fmt.Sprintf("listening on port %d (Ctrl+C to stop)", targetPort(cfg))))

		return runListen(ctx, node, self, listenConfig{
			announce:    announce,
			events:      events,
			metricsAddr: cfg.MetricsAddr,
			gatherer:    gatherer,
			clock:       clock.New(),
		}, peers, cmd.OutOrStdout())
	},
}

func init() {
	listenCmd.Flags().Duration("announce", 0, "Broadcast a discovery request at this interval (0 disables)")
	listenCmd.Flags().StringArray("on", nil, "Print custom events of this type (repeatable)")
	listenCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
}

type listenConfig struct {
	announce    time.Duration
	events      []string
	metricsAddr string
	gatherer    prometheus.Gatherer
	clock       clock.Clock
}

// runListen configures node and blocks until ctx is cancelled or a
// background task fails.
func runListen(ctx context.Context, node *lanping.Node, opts lanping.Options, lc listenConfig, peers *registry.Registry, out io.Writer) error {
	var mu sync.Mutex
	emit := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, line)
	}

	node.OnNode(func(msg *lanping.Message, from lanping.Addr) {
		entry, isNew := peers.Upsert(*msg.Node, from)
		if isNew {
			emit(ui.RenderPeerEvent(entry, true))
		}
	})
	for _, eventType := range lc.events {
		err := node.On(eventType, func(msg *lanping.Message, from lanping.Addr) {
			emit(ui.RenderEvent(msg.Type, from.String(), string(msg.Data)))
		})
		if err != nil {
			return fmt.Errorf("cannot subscribe to %q: %w", eventType, err)
		}
	}

	if err := node.Configure(opts); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if lc.announce > 0 {
		g.Go(func() error {
			return announce(ctx, node, lc.clock, lc.announce)
		})
	}
	if lc.metricsAddr != "" && lc.gatherer != nil {
		g.Go(func() error {
			return serveMetrics(ctx, lc.metricsAddr, lc.gatherer)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// announce broadcasts immediately and then on every tick.
func announce(ctx context.Context, node *lanping.Node, clk clock.Clock, every time.Duration) error {
	ticker := clk.Ticker(every)
	defer ticker.Stop()

	for {
		if err := node.Broadcast(lanping.BroadcastOptions{}); err != nil {
			return fmt.Errorf("announce failed: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
