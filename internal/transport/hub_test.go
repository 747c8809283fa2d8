package transport

import (
	"testing"
	"time"

	"github.com/example/alertvoice/internal/protocol"
)

func TestRegisterUnregisterTracksCount(t *testing.T) {
	h := NewHub()
	id, _ := h.Register()
	if h.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", h.ClientCount())
	}
	h.Unregister(id)
	if h.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", h.ClientCount())
	}
}

func TestBroadcastDeliversToAllClients(t *testing.T) {
	h := NewHub()
	id1, send1 := h.Register()
	id2, send2 := h.Register()
	defer h.Unregister(id1)
	defer h.Unregister(id2)

	h.Broadcast(&protocol.Message{Type: protocol.TypeSkip})

	for _, ch := range []<-chan *protocol.Message{send1, send2} {
		select {
		case msg := <-ch:
			if msg.Type != protocol.TypeSkip {
				t.Fatalf("got type %q, want skip", msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("did not receive broadcast message")
		}
	}
}

func TestBroadcastDropsOnFullBuffer(t *testing.T) {
	h := NewHub()
	id, _ := h.Register()
	defer h.Unregister(id)

	for i := 0; i < clientBuf+5; i++ {
		h.Broadcast(&protocol.Message{Type: protocol.TypeSkip})
	}
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	h := NewHub()
	h.Unregister("does-not-exist")
}
