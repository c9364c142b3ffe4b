package nostr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrRelayClosed is returned by operations on a relay whose connection has
// gone away.
var ErrRelayClosed = errors.New("relay connection closed")

const defaultQueryTimeout = 10 * time.Second

// Relay is a single websocket connection to a Nostr relay. A background
// reader dispatches EVENT/EOSE frames to the subscription that requested
// them and OK frames to the pending publish.
type Relay struct {
	URL string

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*subscription
	oks  map[string]chan okResult

	closed    chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	events chan *Event
	eose   chan struct{}
}

type okResult struct {
	accepted bool
	reason   string
}

// DialRelay opens a websocket connection and starts the read loop.
func DialRelay(ctx context.Context, url string) (*Relay, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	r := &Relay{
		URL:    url,
		conn:   conn,
		subs:   make(map[string]*subscription),
		oks:    make(map[string]chan okResult),
		closed: make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// Close tears down the connection. Pending queries and publishes fail with
// ErrRelayClosed.
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		err = r.conn.Close()
	})
	return err
}

// Closed reports whether the connection has been torn down.
func (r *Relay) Closed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

func (r *Relay) readLoop() {
	defer r.Close()
	for {
		_, raw, err := r.conn.ReadMessage()
		if err != nil {
			if !r.Closed() {
				slog.Debug("relay read loop ended", "relay", r.URL, "error", err)
			}
			return
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(raw, &frame); err != nil || len(frame) == 0 {
			continue
		}
		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil {
			continue
		}

		switch label {
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var subID string
			if err := json.Unmarshal(frame[1], &subID); err != nil {
				continue
			}
			var ev Event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				continue
			}
			r.mu.Lock()
			sub := r.subs[subID]
			r.mu.Unlock()
			if sub != nil {
				select {
				case sub.events <- &ev:
				case <-r.closed:
					return
				}
			}
		case "EOSE":
			if len(frame) < 2 {
				continue
			}
			var subID string
			if err := json.Unmarshal(frame[1], &subID); err != nil {
				continue
			}
			r.mu.Lock()
			sub := r.subs[subID]
			r.mu.Unlock()
			if sub != nil {
				select {
				case sub.eose <- struct{}{}:
				default:
				}
			}
		case "OK":
			if len(frame) < 3 {
				continue
			}
			var eventID string
			var accepted bool
			if err := json.Unmarshal(frame[1], &eventID); err != nil {
				continue
			}
			if err := json.Unmarshal(frame[2], &accepted); err != nil {
				continue
			}
			var reason string
			if len(frame) >= 4 {
				_ = json.Unmarshal(frame[3], &reason)
			}
			r.mu.Lock()
			ch := r.oks[eventID]
			r.mu.Unlock()
			if ch != nil {
				select {
				case ch <- okResult{accepted: accepted, reason: reason}:
				default:
				}
			}
		case "NOTICE":
			if len(frame) >= 2 {
				var msg string
				_ = json.Unmarshal(frame[1], &msg)
				slog.Debug("relay notice", "relay", r.URL, "message", msg)
			}
		}
	}
}

func (r *Relay) writeJSON(frame []any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(frame); err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.Closed() {
		return ErrRelayClosed
	}
	return r.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(buf.Bytes(), "\n"))
}

// Query sends a REQ with the given filters and collects events until the
// relay signals EOSE, the timeout elapses, or the context is cancelled.
// Hitting the timeout is not an error; what arrived so far is returned.
func (r *Relay) Query(ctx context.Context, filters []Filter, timeout time.Duration) ([]*Event, error) {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	subID := uuid.NewString()
	sub := &subscription{
		events: make(chan *Event, 256),
		eose:   make(chan struct{}, 1),
	}
	r.mu.Lock()
	r.subs[subID] = sub
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.subs, subID)
		r.mu.Unlock()
		_ = r.writeJSON([]any{"CLOSE", subID})
	}()

	frame := make([]any, 0, 2+len(filters))
	frame = append(frame, "REQ", subID)
	for _, f := range filters {
		frame = append(frame, f)
	}
	if err := r.writeJSON(frame); err != nil {
		return nil, fmt.Errorf("send REQ to %s: %w", r.URL, err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var out []*Event
	for {
		select {
		case ev := <-sub.events:
			out = append(out, ev)
		case <-sub.eose:
			for {
				select {
				case ev := <-sub.events:
					out = append(out, ev)
				default:
					return out, nil
				}
			}
		case <-deadline.C:
			slog.Debug("query timed out before EOSE", "relay", r.URL, "events", len(out))
			return out, nil
		case <-ctx.Done():
			return out, ctx.Err()
		case <-r.closed:
			return out, ErrRelayClosed
		}
	}
}

// Publish sends the event and waits for the relay's OK response.
func (r *Relay) Publish(ctx context.Context, ev *Event, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	ch := make(chan okResult, 1)
	r.mu.Lock()
	r.oks[ev.ID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.oks, ev.ID)
		r.mu.Unlock()
	}()

	if err := r.writeJSON([]any{"EVENT", ev}); err != nil {
		return fmt.Errorf("send EVENT to %s: %w", r.URL, err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case res := <-ch:
		if !res.accepted {
			return fmt.Errorf("relay %s rejected event: %s", r.URL, res.reason)
		}
		return nil
	case <-deadline.C:
		return fmt.Errorf("relay %s: no OK within %s", r.URL, timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closed:
		return ErrRelayClosed
	}
}
