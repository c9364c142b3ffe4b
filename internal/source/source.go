// Package source fetches contact lists and profiles from a relay pool and
// shapes them for the search layer.
package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
	"github.com/sanonone/nostrgraph/pkg/core/search"
	"github.com/sanonone/nostrgraph/pkg/metrics"
	"github.com/sanonone/nostrgraph/pkg/nostr"
)

// Relay is the slice of the pool API this package needs.
type Relay struct {
	pool *nostr.Pool
}

// New wraps a relay pool as a graph data source.
func New(pool *nostr.Pool) *Relay {
	return &Relay{pool: pool}
}

var _ search.Source = (*Relay)(nil)

// FetchContactLists queries the pool for the kind 3 events of the given
// identities. Relays may hold several contact list events per author; the
// newest wins. Identities with no event on any relay are simply absent from
// the result.
func (r *Relay) FetchContactLists(ctx context.Context, ids []identity.PublicKey, timeout time.Duration) (map[identity.PublicKey]search.ContactList, error) {
	if len(ids) == 0 {
		return map[identity.PublicKey]search.ContactList{}, nil
	}

	start := time.Now()
	events, err := r.pool.Query(ctx, []nostr.Filter{{
		Authors: hexKeys(ids),
		Kinds:   []int{nostr.KindContactList},
	}}, timeout)
	metrics.RelayFetchDuration.WithLabelValues("contacts").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RelayFetchesTotal.WithLabelValues("contacts", "error").Inc()
		return nil, err
	}
	metrics.RelayFetchesTotal.WithLabelValues("contacts", "ok").Inc()
	metrics.EventsReceivedTotal.WithLabelValues("3").Add(float64(len(events)))

	requested := keySet(ids)
	newest := make(map[identity.PublicKey]*nostr.Event)
	for _, ev := range events {
		author, err := ev.Author()
		if err != nil {
			slog.Debug("skipping contact list with bad author", "event", ev.ID, "error", err)
			continue
		}
		if _, ok := requested[author]; !ok {
			continue
		}
		if cur, ok := newest[author]; !ok || ev.CreatedAt > cur.CreatedAt {
			newest[author] = ev
		}
	}

	out := make(map[identity.PublicKey]search.ContactList, len(newest))
	for author, ev := range newest {
		out[author] = search.ContactList{
			Contacts:   ev.PTags(),
			RecordedAt: ev.CreatedAt.Time(),
		}
	}
	slog.Debug("fetched contact lists",
		"requested", len(ids), "found", len(out), "events", len(events))
	return out, nil
}

// FetchProfiles queries the pool for kind 0 profile events. Every requested
// identity appears in the result; a nil record marks one that was checked
// and has no profile anywhere.
func (r *Relay) FetchProfiles(ctx context.Context, ids []identity.PublicKey, timeout time.Duration) (map[identity.PublicKey]*graph.ProfileRecord, error) {
	if len(ids) == 0 {
		return map[identity.PublicKey]*graph.ProfileRecord{}, nil
	}

	start := time.Now()
	events, err := r.pool.Query(ctx, []nostr.Filter{{
		Authors: hexKeys(ids),
		Kinds:   []int{nostr.KindProfile},
	}}, timeout)
	metrics.RelayFetchDuration.WithLabelValues("profiles").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RelayFetchesTotal.WithLabelValues("profiles", "error").Inc()
		return nil, err
	}
	metrics.RelayFetchesTotal.WithLabelValues("profiles", "ok").Inc()
	metrics.EventsReceivedTotal.WithLabelValues("0").Add(float64(len(events)))

	requested := keySet(ids)
	newest := make(map[identity.PublicKey]*nostr.Event)
	for _, ev := range events {
		author, err := ev.Author()
		if err != nil {
			continue
		}
		if _, ok := requested[author]; !ok {
			continue
		}
		if cur, ok := newest[author]; !ok || ev.CreatedAt > cur.CreatedAt {
			newest[author] = ev
		}
	}

	out := make(map[identity.PublicKey]*graph.ProfileRecord, len(ids))
	for _, id := range ids {
		ev, ok := newest[id]
		if !ok {
			out[id] = nil
			continue
		}
		var p graph.Profile
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			slog.Debug("unparseable profile content", "event", ev.ID, "error", err)
			out[id] = nil
			continue
		}
		out[id] = &graph.ProfileRecord{Profile: p, UpdatedAt: ev.CreatedAt.Time()}
	}
	return out, nil
}

func hexKeys(ids []identity.PublicKey) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

func keySet(ids []identity.PublicKey) map[identity.PublicKey]struct{} {
	set := make(map[identity.PublicKey]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
