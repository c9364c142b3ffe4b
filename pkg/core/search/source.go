// Package search implements the two queries answered over the social graph:
// degrees of separation between two identities (bidirectional synchronized
// frontier search with staleness verification) and ego-centric follow
// recommendations (level expansion plus mutual-connection ranking).
//
// Both algorithms mutate a shared *graph.Graph and pull remote data through
// the Source interface in bounded batches. The graph lock is internal to the
// graph and never held across a fetch, so unrelated searches can fetch
// concurrently.
package search

import (
	"context"
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// ContactList is one identity's published follow list together with the
// timestamp of the freshest record it was read from.
type ContactList struct {
	Contacts   []identity.PublicKey
	RecordedAt time.Time
}

// Source supplies follow lists and profiles from the network.
//
// FetchContactLists returns one entry per identity for which a record could
// be discovered; identities with no record are simply absent, never an error
// entry. When several records exist for one identity the newest wins.
//
// FetchProfiles returns an entry for every requested identity: a record when
// a profile exists, an explicit nil when the identity was checked and none
// was found.
//
// A zero timeout means no deadline beyond ctx.
type Source interface {
	FetchContactLists(ctx context.Context, ids []identity.PublicKey, timeout time.Duration) (map[identity.PublicKey]ContactList, error)
	FetchProfiles(ctx context.Context, ids []identity.PublicKey, timeout time.Duration) (map[identity.PublicKey]*graph.ProfileRecord, error)
}
