// Package ingest provides a cooperative, interval-polling inbound
// adapter loop over internal/adapter.FakeAdapter, replacing the
// reference source's sleep-in-a-background-thread YouTube poller with a
// context-cancellation-aware scheduler (spec.md §9 design note).
package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/alertvoice/internal/adapter"
	"github.com/example/alertvoice/internal/event"
)

// Processor accepts one normalized event and reports whether it was
// queued. Implemented by internal/processor.Processor.
type Processor interface {
	Process(ctx context.Context, ev event.StreamEvent) bool
}

// Poller watches dir for JSON fixture files, decodes each with a
// FakeAdapter, and feeds the result to a Processor. Processed files are
// renamed with a ".done" suffix so a restart never reprocesses them.
//
// This stands in for a real Twitch/YouTube push or long-poll client per
// spec.md §1's Non-goals — it exists to give the §4.8 adapter contract
// and the processor pipeline a runnable, testable inbound path.
type Poller struct {
	Dir      string
	Interval time.Duration
	Adapter  adapter.FakeAdapter
	Proc     Processor
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		p.Interval = time.Second
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("ingest: list fixture dir", "dir", p.Dir, "err", err)
		}
		return
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(p.Dir, e.Name())
		p.consume(ctx, path)
	}
}

func (p *Poller) consume(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Error("ingest: read fixture", "path", path, "err", err)
		return
	}

	ev, ok, err := p.Adapter.Decode(raw)
	if err != nil {
		slog.Error("ingest: decode fixture", "path", path, "err", err)
	} else if ok {
		queued := p.Proc.Process(ctx, ev)
		slog.Debug("ingest: processed fixture", "path", path, "kind", ev.Kind, "queued", queued)
	} else {
		slog.Debug("ingest: discarded handshake/ping fixture", "path", path)
	}

	if err := os.Rename(path, path+".done"); err != nil {
		slog.Error("ingest: mark fixture processed", "path", path, "err", err)
	}
}
