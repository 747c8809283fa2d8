package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/alertvoice/internal/adapter"
	"github.com/example/alertvoice/internal/config"
	"github.com/example/alertvoice/internal/dedup"
	"github.com/example/alertvoice/internal/dispatcher"
	"github.com/example/alertvoice/internal/event"
	"github.com/example/alertvoice/internal/ingest"
	"github.com/example/alertvoice/internal/processor"
	"github.com/example/alertvoice/internal/protocol"
	"github.com/example/alertvoice/internal/queue"
	"github.com/example/alertvoice/internal/ratelimit"
	"github.com/example/alertvoice/internal/tokenstore"
	"github.com/example/alertvoice/internal/transport"
	"github.com/example/alertvoice/internal/ttscache"
	"github.com/example/alertvoice/internal/ttsclient"
)

func newServeCmd() *cobra.Command {
	var fixtureDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the alert-to-speech server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			return runServe(cfg, fixtureDir)
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixture-dir", "fixtures", "Directory polled for inbound JSON event fixtures")
	return cmd
}

// runServe wires every component together and runs them under one
// cancellation context, following the teacher corpus's
// signal.NotifyContext + errgroup.Group shutdown pattern (SPEC_FULL.md
// §5): the HTTP/WS server, the cache maintenance loop, and the fixture
// poller all exit when ctx is canceled.
func runServe(cfg config.Config, fixtureDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, err := tokenstore.Open(cfg.TokenStore.DBPath)
	if err != nil {
		return err
	}
	defer tokens.Close()

	backend := ttsclient.NewDialingClient(cfg.Backend.Addr)
	cache, err := ttscache.New(cfg.Cache.Dir, cfg.Cache.MaxSizeMB, time.Duration(cfg.Cache.TTLHours)*time.Hour, cfg.TTS.MaxLength, backend)
	if err != nil {
		return err
	}

	hub := transport.NewHub()
	q := queue.New(cfg.Queue.Bound)
	disp := dispatcher.New(q, hub)

	limiter := ratelimit.New(time.Duration(cfg.RateLimit.WindowSeconds) * time.Second)
	detector := dedup.New(time.Duration(cfg.Dedup.WindowSeconds) * time.Second)
	disp.SetRateLimitsProvider(func() *protocol.RateLimitState {
		return &protocol.RateLimitState{
			Twitch:  limiter.Remaining(string(event.Twitch)),
			YouTube: limiter.Remaining(string(event.YouTube)),
		}
	})

	proc := processor.New(cfg, limiter, detector, cache, disp)
	server := transport.New(hub, disp, cfg.Cache.Dir)

	poller := &ingest.Poller{
		Dir:      fixtureDir,
		Interval: time.Second,
		Adapter:  adapter.FakeAdapter{},
		Proc:     proc,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		cache.RunMaintenanceLoop(gctx, time.Duration(cfg.Cache.MaintenanceIntervalSec)*time.Second)
		return nil
	})
	g.Go(func() error {
		return poller.Run(gctx)
	})

	slog.Info("alertvoice: serving", "addr", cfg.ListenAddr, "fixture_dir", fixtureDir)
	return g.Wait()
}
