// Package ttsclient implements the length-prefixed JSON/binary TTS
// Backend wire protocol described in spec.md §4.3/§6: a decimal byte
// count and a newline precede each JSON-framed event; an audio-chunk
// event's JSON header in turn declares how many raw PCM bytes follow it
// in the stream.
package ttsclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/example/alertvoice/internal/audio"
)

// Timeout is the end-to-end deadline for a single synthesize call
// (spec.md §4.3).
const Timeout = 30 * time.Second

// Sentinel errors surfaced to the TTS Synthesizer (spec.md §7,
// TransportError).
var (
	ErrBackendTimeout = errors.New("ttsclient: backend timed out")
	ErrProtocol       = errors.New("ttsclient: protocol violation")
)

// BackendError wraps an `error` event reported by the backend itself.
type BackendError struct {
	Text string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("ttsclient: backend error: %s", e.Text)
}

// Voice selects a backend voice by name.
type Voice struct {
	Name string `json:"name"`
}

type synthesizeRequest struct {
	Type string `json:"type"`
	Data struct {
		Text  string `json:"text"`
		Voice Voice  `json:"voice"`
	} `json:"data"`
}

// eventHeader is the JSON shape of every framed response event. Fields
// are a superset across event types; unused ones are left zero.
type eventHeader struct {
	Type          string `json:"type"`
	PayloadLength int    `json:"payload_length"`
	Format        string `json:"format,omitempty"`
	Text          string `json:"text,omitempty"`
}

const (
	eventAudioChunk = "audio-chunk"
	eventAudioStop  = "audio-stop"
	eventError      = "error"
)

// Client speaks the TTS backend protocol over a single TCP connection.
// It is not safe for concurrent use by multiple goroutines — callers
// needing concurrency should dial one Client per in-flight request, or
// rely on the Synthesizer's single-flight coalescing (spec.md §4.2) to
// avoid that need in the first place.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial opens a TCP connection to the TTS backend at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ttsclient: dial %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Synthesize sends one synthesize request and collects the resulting
// audio. The returned bytes are a WAV container (spec.md §4.3's raw→WAV
// wrap) unless the backend declared format:"wav" on any audio-chunk
// event or the joined bytes already start with a RIFF/WAVE header, in
// which case the raw bytes are assumed to already be a complete WAV file.
//
// speed is accepted for symmetry with the Synthesizer's cache key but is
// not part of the wire request — the protocol in spec.md §4.3 carries
// only text and voice name.
func (c *Client) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	deadline := time.Now().Add(Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("ttsclient: set deadline: %w", err)
	}
	defer c.conn.SetDeadline(time.Time{})

	if err := c.sendRequest(text, voice); err != nil {
		return nil, mapTimeout(err)
	}

	var chunks [][]byte
	alreadyWAV := false
	for {
		hdr, err := readFrame(c.r)
		if err != nil {
			return nil, mapTimeout(err)
		}
		var ev eventHeader
		if err := json.Unmarshal(hdr, &ev); err != nil {
			return nil, fmt.Errorf("%w: decode event header: %v", ErrProtocol, err)
		}

		switch ev.Type {
		case eventAudioChunk:
			if ev.PayloadLength < 0 {
				return nil, fmt.Errorf("%w: negative payload_length", ErrProtocol)
			}
			payload := make([]byte, ev.PayloadLength)
			if _, err := io.ReadFull(c.r, payload); err != nil {
				return nil, mapTimeout(err)
			}
			if ev.Format == "wav" {
				alreadyWAV = true
			}
			chunks = append(chunks, payload)

		case eventAudioStop:
			pcm := joinChunks(chunks)
			if alreadyWAV || audio.IsWAV(pcm) {
				return pcm, nil
			}
			return audio.WrapPCM(pcm), nil

		case eventError:
			return nil, &BackendError{Text: ev.Text}

		default:
			return nil, fmt.Errorf("%w: unknown event type %q", ErrProtocol, ev.Type)
		}
	}
}

func (c *Client) sendRequest(text, voice string) error {
	var req synthesizeRequest
	req.Type = "synthesize"
	req.Data.Text = text
	req.Data.Voice = Voice{Name: voice}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("ttsclient: encode request: %w", err)
	}
	frame := strconv.Itoa(len(body)) + "\n"
	if _, err := io.WriteString(c.conn, frame); err != nil {
		return fmt.Errorf("ttsclient: write frame header: %w", err)
	}
	if _, err := c.conn.Write(body); err != nil {
		return fmt.Errorf("ttsclient: write request body: %w", err)
	}
	return nil
}

// readFrame reads one "<decimal length>\n<payload>" frame.
func readFrame(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("%w: bad frame length %q", ErrProtocol, line)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func joinChunks(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func mapTimeout(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	return err
}

// DialingClient dials a fresh connection per Synthesize call, so unlike
// Client it is safe for concurrent use — the shape needed to satisfy
// internal/ttscache.Cache's Backend interface, which is called from
// inside a singleflight.Group and so sees genuinely concurrent callers.
type DialingClient struct {
	Addr string
}

// NewDialingClient constructs a DialingClient targeting addr.
func NewDialingClient(addr string) *DialingClient {
	return &DialingClient{Addr: addr}
}

// Synthesize dials, performs one request, and closes the connection.
func (d *DialingClient) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	c, err := Dial(ctx, d.Addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Synthesize(ctx, text, voice, speed)
}
