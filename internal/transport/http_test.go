package transport

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/alertvoice/internal/protocol"
)

type fakeDispatch struct {
	snapshot           *protocol.Message
	playCompleteCalled string
	clientErrorCalled  string
	skipCalled         bool
	clearCalled        bool
}

func (f *fakeDispatch) PlayComplete(id string) { f.playCompleteCalled = id }
func (f *fakeDispatch) ClientError(id string)  { f.clientErrorCalled = id }
func (f *fakeDispatch) Skip()                  { f.skipCalled = true }
func (f *fakeDispatch) Clear()                 { f.clearCalled = true }
func (f *fakeDispatch) Snapshot() *protocol.Message {
	if f.snapshot != nil {
		return f.snapshot
	}
	return &protocol.Message{Type: protocol.TypeQueueUpdate}
}

func TestHandleHealth(t *testing.T) {
	hub := NewHub()
	s := New(hub, &fakeDispatch{}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleQueue(t *testing.T) {
	hub := NewHub()
	disp := &fakeDispatch{snapshot: &protocol.Message{Type: protocol.TypeQueueUpdate, Size: 3, MaxSize: 10}}
	s := New(hub, disp, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleQueueSkip(t *testing.T) {
	hub := NewHub()
	disp := &fakeDispatch{}
	s := New(hub, disp, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/queue/skip", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !disp.skipCalled {
		t.Fatalf("expected dispatcher.Skip to be called")
	}
}

func TestHandleQueueClear(t *testing.T) {
	hub := NewHub()
	disp := &fakeDispatch{}
	s := New(hub, disp, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/queue/clear", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !disp.clearCalled {
		t.Fatalf("expected dispatcher.Clear to be called")
	}
}

func TestHandleAudioServesArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "abc123.wav"), []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := New(NewHub(), &fakeDispatch{}, dir)

	req := httptest.NewRequest(http.MethodGet, "/audio/abc123", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "RIFF....WAVE" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandleAudioMissingReturns404(t *testing.T) {
	s := New(NewHub(), &fakeDispatch{}, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/audio/missing", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// TestHandleAudioRejectsPathTraversal is boundary scenario S8: an
// audio_id attempting to escape the cache directory must 404 without
// ever touching the filesystem outside cacheDir.
func TestHandleAudioRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(filepath.Dir(dir), "secret.wav")
	if err := os.WriteFile(secret, []byte("top secret"), 0o644); err != nil {
		t.Fatalf("write fixture outside cache dir: %v", err)
	}
	defer os.Remove(secret)

	s := New(NewHub(), &fakeDispatch{}, dir)

	for _, id := range []string{"../secret", "a/b"} {
		req := httptest.NewRequest(http.MethodGet, "/audio/"+id, nil)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("audio_id %q: status = %d, want 404", id, rec.Code)
		}
		if rec.Body.String() == "top secret" {
			t.Fatalf("audio_id %q leaked file contents outside cache dir", id)
		}
	}
}

func TestValidAudioID(t *testing.T) {
	valid := []string{"abc123", "some-key_1"}
	invalid := []string{"", "..", "../x", "a/b", `a\b`, "a/../b"}

	for _, id := range valid {
		if !validAudioID(id) {
			t.Fatalf("validAudioID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if validAudioID(id) {
			t.Fatalf("validAudioID(%q) = true, want false", id)
		}
	}
}
