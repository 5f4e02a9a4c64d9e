package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/config"
	"github.com/crewclock/kiosk/internal/connectivity"
	"github.com/crewclock/kiosk/internal/gateway"
	"github.com/crewclock/kiosk/internal/keepalive"
	"github.com/crewclock/kiosk/internal/kiosk"
	"github.com/crewclock/kiosk/internal/queue"
	"github.com/crewclock/kiosk/internal/session"
	"github.com/crewclock/kiosk/internal/statusapi"
	"github.com/crewclock/kiosk/internal/syncer"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the kiosk terminal services",
		Long: `Start the kiosk terminal services: the durable-queue sync engine,
connectivity prober, credential keepalive, presence heartbeat, inactivity
watcher, and (when configured) the read-only status endpoint.

Example:
  kiosk run --config /etc/crewclock/kiosk.yaml
  kiosk run -c ./kiosk.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKiosk(rootOpts, cmd)
		},
	}

	return cmd
}

func runKiosk(opts *RootOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading config", "path", opts.Config)
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Info("opening queue database", "path", cfg.Database.Path)
	store, err := queue.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open queue database", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing queue database", "error", closeErr)
		}
	}()

	clock := action.SystemClock{}

	// Credential keepalive feeds every gateway call.
	refresher := keepalive.NewRefresher(
		&keepalive.FileAuthenticator{Path: cfg.Auth.TokenFile},
		clock,
	)

	gw := gateway.NewClient(cfg.Gateway.URL, refresher)

	// Connectivity: the monitor starts pessimistic; the prober corrects
	// it immediately on startup.
	monitor := connectivity.NewMonitor(false)
	prober := connectivity.NewProber(monitor, cfg.Connectivity.ProbeURL, cfg.Connectivity.ProbeInterval.Std())

	sess := session.New(clock)
	terminal := kiosk.New(sess, store, gw, monitor, clock, action.UUIDv7Generator{}, cfg.Gateway.EventID)
	engine := syncer.New(store, gw, refresher, monitor, cfg.Sync.Interval.Std())

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && err != context.Canceled {
				slog.Error("service stopped with error", "service", name, "error", err)
			}
		}()
	}

	start("keepalive", func(ctx context.Context) error {
		return refresher.Run(ctx, cfg.Keepalive.Interval.Std())
	})
	start("prober", prober.Run)
	start("syncer", engine.Run)
	start("inactivity", func(ctx context.Context) error {
		return sess.WatchInactivity(ctx, cfg.Session.InactivityTimeout.Std())
	})
	start("heartbeat", func(ctx context.Context) error {
		return terminal.RunHeartbeat(ctx, cfg.Heartbeat.Interval.Std())
	})
	if cfg.Status.ListenAddr != "" {
		statusSrv := statusapi.NewServer(monitor, store, sess)
		start("statusapi", func(ctx context.Context) error {
			return statusSrv.ListenAndServe(ctx, cfg.Status.ListenAddr)
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Kiosk services started. Press Ctrl-C to stop.")

	<-ctx.Done()
	wg.Wait()

	slog.Info("kiosk stopped gracefully")
	return nil
}
