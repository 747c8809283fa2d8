package tokenstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	want := Tokens{
		Platform:     "twitch",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "twitch")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Fatalf("got %+v, want access/refresh matching %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expires_at = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.Get(context.Background(), "youtube")
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutUpsertsExistingPlatform(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.Put(ctx, Tokens{Platform: "twitch", AccessToken: "old", RefreshToken: "old-r", ExpiresAt: time.Now().UTC()})
	s.Put(ctx, Tokens{Platform: "twitch", AccessToken: "new", RefreshToken: "new-r", ExpiresAt: time.Now().UTC()})

	got, err := s.Get(ctx, "twitch")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessToken != "new" {
		t.Fatalf("access token = %q, want new", got.AccessToken)
	}
}

func TestAllOrdersByPlatform(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	s.Put(ctx, Tokens{Platform: "youtube", AccessToken: "y", RefreshToken: "y", ExpiresAt: time.Now().UTC()})
	s.Put(ctx, Tokens{Platform: "twitch", AccessToken: "t", RefreshToken: "t", ExpiresAt: time.Now().UTC()})

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all[0].Platform != "twitch" || all[1].Platform != "youtube" {
		t.Fatalf("unexpected order: %+v", all)
	}
}
