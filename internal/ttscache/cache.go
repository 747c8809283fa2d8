// Package ttscache implements the TTS Synthesizer and content-addressed
// disk cache from spec.md §4.2 (C3): single-flight coalesced calls to a
// Backend, atomic writes, and TTL/size-bound maintenance.
package ttscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyText is returned for whitespace-only text (spec.md §4.2,
// caller error — not surfaced as a TransportError).
var ErrEmptyText = errors.New("ttscache: text is empty")

// Backend produces raw audio bytes (already WAV-wrapped if needed) for
// text spoken in voice at speed. Implemented by
// internal/ttsclient.DialingClient in production.
type Backend interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

// Cache is the content-addressed on-disk audio cache described in
// spec.md §3/§4.2. The zero value is not usable; construct with New.
type Cache struct {
	dir       string
	maxBytes  int64
	ttl       time.Duration
	maxLength int
	backend   Backend

	group singleflight.Group // per-key single-flight coalescing (spec.md §4.2, §9)
	dirMu sync.Mutex         // directory-wide lock held briefly during eviction (spec.md §5)
}

// New constructs a Cache rooted at dir. maxSizeMB and ttl bound
// maintenance; maxLength is the text truncation limit from spec.md §4.2.
func New(dir string, maxSizeMB int, ttl time.Duration, maxLength int, backend Backend) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ttscache: create cache dir: %w", err)
	}
	return &Cache{
		dir:       dir,
		maxBytes:  int64(maxSizeMB) * 1024 * 1024,
		ttl:       ttl,
		maxLength: maxLength,
		backend:   backend,
	}, nil
}

// Key computes the content-addressed cache key for (text, voice, speed):
// sha256(text + "|" + voice + "|" + speed) truncated to 16 hex characters
// (spec.md §3). speed is formatted with fixed precision so the key is
// stable across equal float values produced by different call sites.
func Key(text, voice string, speed float64) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte("|"))
	h.Write([]byte(voice))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatFloat(speed, 'f', 3, 64)))
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:16]
}

func truncate(text string, maxLength int) string {
	if maxLength <= 0 || len(text) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return text[:maxLength]
	}
	return text[:maxLength-3] + "..."
}

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, key+".wav")
}

// Synthesize returns the on-disk path of the WAV artifact for
// (text, voice, speed), synthesizing and caching it first if needed.
// Concurrent calls for the same key coalesce into a single Backend call
// (spec.md §4.2, §8 invariant 3).
func (c *Cache) Synthesize(ctx context.Context, text, voice string, speed float64) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	text = truncate(text, c.maxLength)
	key := Key(text, voice, speed)
	path := c.pathFor(key)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		audioBytes, err := c.backend.Synthesize(ctx, text, voice, speed)
		if err != nil {
			return nil, fmt.Errorf("ttscache: backend synthesize: %w", err)
		}
		if err := writeAtomic(path, audioBytes); err != nil {
			return nil, fmt.Errorf("ttscache: write artifact: %w", err)
		}
		slog.Info("tts artifact cached", "key", key, "bytes", len(audioBytes))
		c.runMaintenance()
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// writeAtomic writes data to a temp sibling of path and renames it into
// place, so a concurrent reader never observes a partial file (spec.md
// §4.2).
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tts-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// RunMaintenanceLoop periodically runs cache maintenance until ctx is
// canceled — the background worker named in spec.md §5.
func (c *Cache) RunMaintenanceLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runMaintenance()
		}
	}
}

// runMaintenance deletes TTL-expired artifacts, then trims by ascending
// mtime until the directory is within the size bound (spec.md §4.2).
func (c *Cache) runMaintenance() {
	c.dirMu.Lock()
	defer c.dirMu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		slog.Error("ttscache: list cache dir", "err", err)
		return
	}

	type file struct {
		path  string
		size  int64
		mtime time.Time
	}
	var files []file
	now := time.Now()

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		if c.ttl > 0 && now.Sub(info.ModTime()) > c.ttl {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("ttscache: evict expired artifact", "path", path, "err", err)
			} else {
				slog.Debug("ttscache: evicted expired artifact", "path", path)
			}
			continue
		}
		files = append(files, file{path: path, size: info.Size(), mtime: info.ModTime()})
	}

	var total int64
	for _, f := range files {
		total += f.size
	}
	if c.maxBytes <= 0 || total <= c.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })
	for _, f := range files {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("ttscache: evict oversize artifact", "path", f.path, "err", err)
			continue
		}
		total -= f.size
		slog.Debug("ttscache: evicted oversize artifact", "path", f.path, "freed", f.size)
	}
}
