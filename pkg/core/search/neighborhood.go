package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

const (
	// DefaultLevelBatchSize bounds fetches during level expansion, which
	// touches far more identities per round than the separation search.
	DefaultLevelBatchSize = 2000

	defaultLevelTimeout = 20 * time.Second

	// mutualWeight is the score contributed by each shared level-1 mutual.
	mutualWeight = 10
)

// Neighborhood builds the ego-centric follow network of one root identity,
// one level at a time, and ranks level-2 identities (friends of friends) by
// how many level-1 mutual connections they share with the root.
//
// Levels are one-directional: unlike the separation search, expansion
// follows every followee, not only mutuals. An identity belongs to the level
// where it was first discovered and to no other.
type Neighborhood struct {
	BatchSize int
	// Timeout is handed to every Source fetch.
	Timeout time.Duration

	graph     *graph.Graph
	source    Source
	root      identity.PublicKey
	levels    []map[identity.PublicKey]struct{}
	distances map[identity.PublicKey]int
}

// Rank is one ranked recommendation candidate. MutualConnections names the
// level-1 mutuals that produced the score.
type Rank struct {
	Identity          identity.PublicKey
	Score             int
	MutualConnections []identity.PublicKey
}

// NewNeighborhood starts a builder rooted at the given identity, which is
// inserted into the graph and becomes level 0.
func NewNeighborhood(g *graph.Graph, src Source, root identity.PublicKey) *Neighborhood {
	g.Add(root)
	return &Neighborhood{
		graph:     g,
		source:    src,
		root:      root,
		levels:    []map[identity.PublicKey]struct{}{{root: {}}},
		distances: map[identity.PublicKey]int{root: 0},
	}
}

// Root returns the level-0 identity.
func (n *Neighborhood) Root() identity.PublicKey { return n.root }

// LevelCount returns how many levels have been built, level 0 included.
func (n *Neighborhood) LevelCount() int { return len(n.levels) }

// Level returns the identities at the given level index.
func (n *Neighborhood) Level(i int) ([]identity.PublicKey, bool) {
	if i < 0 || i >= len(n.levels) {
		return nil, false
	}
	out := make([]identity.PublicKey, 0, len(n.levels[i]))
	for pk := range n.levels[i] {
		out = append(out, pk)
	}
	return out, true
}

// Distance returns the level index an identity was first discovered at.
func (n *Neighborhood) Distance(pk identity.PublicKey) (int, bool) {
	d, ok := n.distances[pk]
	return d, ok
}

func (n *Neighborhood) batchSize() int {
	if n.BatchSize > 0 {
		return n.BatchSize
	}
	return DefaultLevelBatchSize
}

func (n *Neighborhood) timeout() time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return defaultLevelTimeout
}

// AddLevel fetches the follow lists of the entire current top level in
// bounded batches, merges them into the graph, and pushes the set of
// newly discovered followees as the next level.
func (n *Neighborhood) AddLevel(ctx context.Context) error {
	top := n.levels[len(n.levels)-1]
	currentLevel := len(n.levels)

	ids := make([]identity.PublicKey, 0, len(top))
	for pk := range top {
		ids = append(ids, pk)
	}

	bs := n.batchSize()
	total := (len(ids) + bs - 1) / bs
	slog.Info("expanding neighborhood level", "level", currentLevel, "frontier", len(ids), "batches", total)

	following := make(map[identity.PublicKey]ContactList)
	for i := 0; i < len(ids); i += bs {
		chunk := ids[i:min(i+bs, len(ids))]
		res, err := n.source.FetchContactLists(ctx, chunk, n.timeout())
		if err != nil {
			return fmt.Errorf("fetch contact lists: %w", err)
		}
		for u, cl := range res {
			following[u] = cl
		}
		slog.Debug("level batch done", "batch", i/bs+1, "total", total)
	}

	next := make(map[identity.PublicKey]struct{})
	for u, cl := range following {
		n.graph.UpdateContactList(u, cl.Contacts, cl.RecordedAt)
		for _, f := range cl.Contacts {
			if n.seen(f) {
				continue
			}
			next[f] = struct{}{}
			n.distances[f] = currentLevel
		}
	}
	n.levels = append(n.levels, next)

	slog.Info("neighborhood level built", "level", currentLevel, "size", len(next))
	return nil
}

func (n *Neighborhood) seen(pk identity.PublicKey) bool {
	for _, lvl := range n.levels {
		if _, ok := lvl[pk]; ok {
			return true
		}
	}
	return false
}

// AddMetadata fetches profile records, in bounded batches, for exactly the
// identities at the given level and merges them into the profile cache.
func (n *Neighborhood) AddMetadata(ctx context.Context, level int) error {
	ids, ok := n.Level(level)
	if !ok {
		return &LevelNotPresentError{Level: level}
	}

	bs := n.batchSize()
	total := (len(ids) + bs - 1) / bs
	slog.Info("fetching level metadata", "level", level, "identities", len(ids), "batches", total)

	for i := 0; i < len(ids); i += bs {
		chunk := ids[i:min(i+bs, len(ids))]
		res, err := n.source.FetchProfiles(ctx, chunk, n.timeout())
		if err != nil {
			return fmt.Errorf("fetch profiles: %w", err)
		}
		n.graph.MergeProfiles(res)
		slog.Debug("metadata batch done", "batch", i/bs+1, "total", total)
	}
	return nil
}

// Ranks scores every level-2 identity by its shared level-1 mutual
// connections and returns the list sorted ascending by score (callers
// wanting best-first reverse it). At least levels 0, 1 and 2 must be built.
func (n *Neighborhood) Ranks() ([]Rank, error) {
	if len(n.levels) <= 2 {
		return nil, ErrNotEnoughLevels
	}

	levelOne := n.levels[1]
	ranks := make([]Rank, 0, len(n.levels[2]))
	for candidate := range n.levels[2] {
		var reasons []identity.PublicKey
		for _, m := range n.graph.Mutuals(candidate) {
			if _, ok := levelOne[m]; ok {
				reasons = append(reasons, m)
			}
		}
		ranks = append(ranks, Rank{
			Identity:          candidate,
			Score:             mutualWeight * len(reasons),
			MutualConnections: reasons,
		})
	}

	slices.SortFunc(ranks, func(a, b Rank) int {
		if a.Score != b.Score {
			return a.Score - b.Score
		}
		return strings.Compare(a.Identity.Hex(), b.Identity.Hex())
	})
	return ranks, nil
}
