package nostr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pool fans queries and publishes out over a fixed set of relays,
// reconnecting lazily when a connection drops. Queries are best-effort:
// as long as one relay answers, partial relay failures are only logged.
type Pool struct {
	urls []string

	mu     sync.Mutex
	relays map[string]*Relay
}

// NewPool builds a pool over the given relay URLs. Connections are opened
// on first use.
func NewPool(urls ...string) *Pool {
	return &Pool{
		urls:   urls,
		relays: make(map[string]*Relay),
	}
}

// URLs returns the relay set the pool was built with.
func (p *Pool) URLs() []string { return p.urls }

func (p *Pool) relay(ctx context.Context, url string) (*Relay, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.relays[url]; ok && !r.Closed() {
		return r, nil
	}
	r, err := DialRelay(ctx, url)
	if err != nil {
		return nil, err
	}
	p.relays[url] = r
	return r, nil
}

// Query runs the filters against every relay concurrently and merges the
// results, deduplicating by event ID. It fails only when every relay fails.
func (p *Pool) Query(ctx context.Context, filters []Filter, timeout time.Duration) ([]*Event, error) {
	if len(p.urls) == 0 {
		return nil, errors.New("pool has no relays")
	}

	type relayResult struct {
		url    string
		events []*Event
		err    error
	}
	results := make(chan relayResult, len(p.urls))

	var wg sync.WaitGroup
	for _, url := range p.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			r, err := p.relay(ctx, url)
			if err != nil {
				results <- relayResult{url: url, err: err}
				return
			}
			events, err := r.Query(ctx, filters, timeout)
			results <- relayResult{url: url, events: events, err: err}
		}(url)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	var merged []*Event
	var errs []error
	succeeded := 0
	for res := range results {
		if res.err != nil {
			slog.Debug("relay query failed", "relay", res.url, "error", res.err)
			errs = append(errs, fmt.Errorf("%s: %w", res.url, res.err))
			continue
		}
		succeeded++
		for _, ev := range res.events {
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			merged = append(merged, ev)
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("all relays failed: %w", errors.Join(errs...))
	}
	return merged, nil
}

// Publish sends the event to every relay and succeeds when at least one
// accepts it.
func (p *Pool) Publish(ctx context.Context, ev *Event, timeout time.Duration) error {
	if len(p.urls) == 0 {
		return errors.New("pool has no relays")
	}

	errsCh := make(chan error, len(p.urls))
	var wg sync.WaitGroup
	for _, url := range p.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			r, err := p.relay(ctx, url)
			if err != nil {
				errsCh <- fmt.Errorf("%s: %w", url, err)
				return
			}
			if err := r.Publish(ctx, ev, timeout); err != nil {
				errsCh <- fmt.Errorf("%s: %w", url, err)
				return
			}
			errsCh <- nil
		}(url)
	}
	wg.Wait()
	close(errsCh)

	accepted := 0
	var errs []error
	for err := range errsCh {
		if err != nil {
			slog.Debug("relay publish failed", "event", ev.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("no relay accepted event %s: %w", ev.ID, errors.Join(errs...))
	}
	return nil
}

// Close shuts down every open connection.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.relays {
		_ = r.Close()
	}
	p.relays = make(map[string]*Relay)
}
