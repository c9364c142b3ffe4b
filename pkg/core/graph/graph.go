// Package graph implements the in-memory social graph: identities as nodes,
// directed "following" edges, a profile cache, and per-identity freshness
// timestamps for follow lists.
//
// Nodes live in a gonum directed graph addressed by integer IDs; maps
// translate between public keys and internal IDs in both directions, which
// sidesteps the ownership cycles a pointer-based graph would have with
// mutual follows. A single mutex guards the structure; every exported method
// is one discrete locked operation and the package performs no I/O, so the
// lock is never held across a network fetch.
package graph

import (
	"iter"
	"sync"
	"time"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// node is the arena entry stored in the gonum graph.
type node struct {
	id  int64
	key identity.PublicKey
}

func (n node) ID() int64 { return n.id }

// Graph tracks association between identities (follows, profiles).
// The zero value is not usable; call New.
type Graph struct {
	mu sync.Mutex

	dg    *simple.DirectedGraph
	index map[identity.PublicKey]int64
	keys  map[int64]identity.PublicKey

	profiles      map[identity.PublicKey]*ProfileRecord
	followUpdated map[identity.PublicKey]time.Time
}

// New returns an empty social graph.
func New() *Graph {
	return &Graph{
		dg:            simple.NewDirectedGraph(),
		index:         make(map[identity.PublicKey]int64),
		keys:          make(map[int64]identity.PublicKey),
		profiles:      make(map[identity.PublicKey]*ProfileRecord),
		followUpdated: make(map[identity.PublicKey]time.Time),
	}
}

// Add inserts an identity if absent. It returns the internal node ID and
// whether the identity was new.
func (g *Graph) Add(pk identity.PublicKey) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, added := g.addLocked(pk)
	return id, added
}

func (g *Graph) addLocked(pk identity.PublicKey) (int64, bool) {
	if id, ok := g.index[pk]; ok {
		return id, false
	}
	id := g.dg.NewNode().ID()
	g.dg.AddNode(node{id: id, key: pk})
	g.index[pk] = id
	g.keys[id] = pk
	return id, true
}

// Contains reports whether the identity is present.
func (g *Graph) Contains(pk identity.PublicKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.index[pk]
	return ok
}

// NodeCount returns the number of identities in the graph.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.index)
}

// AddFollow records that u follows v, inserting both identities if needed.
// Adding an existing edge is a no-op that returns the existing edge. The
// follow-update timestamp of u is refreshed only when the edge is new.
// Self-follows are ignored and return nil.
func (g *Graph) AddFollow(u, v identity.PublicKey) gonumgraph.Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addFollowLocked(u, v, time.Now())
}

func (g *Graph) addFollowLocked(u, v identity.PublicKey, now time.Time) gonumgraph.Edge {
	if u == v {
		return nil
	}
	uid, _ := g.addLocked(u)
	vid, _ := g.addLocked(v)
	if e := g.dg.Edge(uid, vid); e != nil {
		return e
	}
	e := g.dg.NewEdge(g.dg.Node(uid), g.dg.Node(vid))
	g.dg.SetEdge(e)
	g.followUpdated[u] = now
	return e
}

// UpdateContactList atomically replaces the outgoing follow edges of u with
// edges to each member of contacts, and records recordedAt as u's
// last-follow-update timestamp. Removal is a no-op when u had no follows.
func (g *Graph) UpdateContactList(u identity.PublicKey, contacts []identity.PublicKey, recordedAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	uid, added := g.addLocked(u)
	if !added {
		g.removeContactListLocked(uid)
	}
	for _, c := range contacts {
		g.addFollowLocked(u, c, recordedAt)
	}
	g.followUpdated[u] = recordedAt
}

// RemoveContactList drops every outgoing follow edge of u.
func (g *Graph) RemoveContactList(u identity.PublicKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if uid, ok := g.index[u]; ok {
		g.removeContactListLocked(uid)
	}
}

func (g *Graph) removeContactListLocked(uid int64) {
	it := g.dg.From(uid)
	targets := make([]int64, 0, it.Len())
	for it.Next() {
		targets = append(targets, it.Node().ID())
	}
	for _, tid := range targets {
		g.dg.RemoveEdge(uid, tid)
	}
}

// AreMutual reports whether u follows v and v follows u. It is symmetric in
// its arguments and false whenever either identity is unknown.
func (g *Graph) AreMutual(u, v identity.PublicKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	uid, ok := g.index[u]
	if !ok {
		return false
	}
	vid, ok := g.index[v]
	if !ok {
		return false
	}
	return g.dg.HasEdgeFromTo(uid, vid) && g.dg.HasEdgeFromTo(vid, uid)
}

// Contacts returns a restartable sequence over the identities u follows.
// Each iteration starts from a snapshot taken under the lock, so the caller
// may mutate the graph while ranging. Unknown identities yield nothing.
func (g *Graph) Contacts(u identity.PublicKey) iter.Seq[identity.PublicKey] {
	return func(yield func(identity.PublicKey) bool) {
		for _, c := range g.contactsSnapshot(u) {
			if !yield(c) {
				return
			}
		}
	}
}

func (g *Graph) contactsSnapshot(u identity.PublicKey) []identity.PublicKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	uid, ok := g.index[u]
	if !ok {
		return nil
	}
	it := g.dg.From(uid)
	out := make([]identity.PublicKey, 0, it.Len())
	for it.Next() {
		out = append(out, g.keys[it.Node().ID()])
	}
	return out
}

// Mutuals returns the identities that u follows and that follow u back.
func (g *Graph) Mutuals(u identity.PublicKey) []identity.PublicKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	uid, ok := g.index[u]
	if !ok {
		return nil
	}

	outgoing := make(map[int64]struct{})
	it := g.dg.From(uid)
	for it.Next() {
		outgoing[it.Node().ID()] = struct{}{}
	}

	var mutuals []identity.PublicKey
	it = g.dg.To(uid)
	for it.Next() {
		id := it.Node().ID()
		if _, ok := outgoing[id]; ok {
			mutuals = append(mutuals, g.keys[id])
		}
	}
	return mutuals
}

// LastFollowUpdate returns when u's outgoing edge set was last established,
// if it ever was.
func (g *Graph) LastFollowUpdate(u identity.PublicKey) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.followUpdated[u]
	return t, ok
}

// HasFollowList reports whether a contact list was ever recorded for u.
func (g *Graph) HasFollowList(u identity.PublicKey) bool {
	_, ok := g.LastFollowUpdate(u)
	return ok
}
