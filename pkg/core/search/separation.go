package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
	"github.com/sanonone/nostrgraph/pkg/core/intersect"
)

const (
	// DefaultBatchSize bounds how many contact lists one fetch may request.
	DefaultBatchSize = 300
	// DefaultMaxRounds caps the number of frontier expansions before the
	// search gives up with ErrNotFound.
	DefaultMaxRounds = 7
	// DefaultVerifyAttempts bounds the find/verify retry loop.
	DefaultVerifyAttempts = 3

	defaultVerifyBackoff = 2 * time.Second
)

// levelMap holds one search depth of one side: every identity discovered at
// that depth mapped to its backpointer one depth closer to the side's root.
type levelMap = map[identity.PublicKey]identity.PublicKey

// Separation runs bidirectional synchronized frontier searches over a shared
// graph. Zero-valued tuning fields fall back to the package defaults; Graph
// and Source must be set.
type Separation struct {
	Graph  *graph.Graph
	Source Source

	BatchSize int
	MaxRounds int
	// Timeout is handed to every Source fetch; zero means no deadline
	// beyond ctx.
	Timeout time.Duration

	VerifyAttempts int
	VerifyBackoff  time.Duration
}

// Result is a complete answer: the separation degree and the connecting
// path, targets included at both ends.
type Result struct {
	Degree int
	Path   []identity.PublicKey
}

// side is the per-target search state: the stack of level maps and the
// border still awaiting expansion.
type side struct {
	root   identity.PublicKey
	levels []levelMap
	border []identity.PublicKey
}

func newSide(root identity.PublicKey) *side {
	return &side{root: root, levels: []levelMap{{root: root}}}
}

func (sd *side) last() levelMap { return sd.levels[len(sd.levels)-1] }

func (sd *side) inAnyLevel(pk identity.PublicKey) bool {
	for _, lvl := range sd.levels {
		if _, ok := lvl[pk]; ok {
			return true
		}
	}
	return false
}

// backtrack walks the level maps from the given backpointer down to the
// side's root, collecting the chain (root excluded).
func (sd *side) backtrack(from identity.PublicKey) []identity.PublicKey {
	var chain []identity.PublicKey
	cur := from
	for idx := len(sd.levels) - 2; cur != sd.root; idx-- {
		chain = append(chain, cur)
		cur = sd.levels[idx][cur]
	}
	return chain
}

func (s *Separation) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return DefaultBatchSize
}

func (s *Separation) maxRounds() int {
	if s.MaxRounds > 0 {
		return s.MaxRounds
	}
	return DefaultMaxRounds
}

// Find computes the degree of separation and a connecting mutual-follow path
// between t1 and t2. The result is provisional: underlying data may have
// changed between discovery and use, so callers needing certainty must pass
// it through VerifyPath (or use FindVerified).
func (s *Separation) Find(ctx context.Context, t1, t2 identity.PublicKey) (Result, error) {
	s.Graph.Add(t1)
	s.Graph.Add(t2)

	follows, err := s.Source.FetchContactLists(ctx, []identity.PublicKey{t1, t2}, s.Timeout)
	if err != nil {
		return Result{}, fmt.Errorf("fetch target contact lists: %w", err)
	}
	for _, t := range []identity.PublicKey{t1, t2} {
		cl, ok := follows[t]
		if !ok {
			return Result{}, &MissingContactListError{Identity: t}
		}
		s.Graph.UpdateContactList(t, cl.Contacts, cl.RecordedAt)
	}

	sides := [2]*side{newSide(t1), newSide(t2)}
	for _, sd := range sides {
		sd.border = slices.Collect(s.Graph.Contacts(sd.root))
	}

	rounds := 0
	for i := 0; ; i = 1 - i {
		if res, ok := s.collide(sides[0], sides[1], rounds); ok {
			return res, nil
		}
		if rounds >= s.maxRounds() {
			return Result{}, ErrNotFound
		}
		if err := s.expand(ctx, sides[i]); err != nil {
			return Result{}, err
		}
		rounds++
	}
}

// collide checks the two most recent level maps for a meeting identity and,
// if one exists, reconstructs the full path.
func (s *Separation) collide(a, b *side, rounds int) (Result, bool) {
	for p := range intersect.Maps(a.last(), b.last()) {
		meeting, back1, back2 := p.Key, p.First, p.Second
		switch rounds {
		case 0:
			// Both roots map to themselves, so a depth-0 meeting
			// means the targets coincide.
			return Result{Degree: 0, Path: []identity.PublicKey{a.root}}, true
		case 1:
			return Result{Degree: 1, Path: []identity.PublicKey{a.root, b.root}}, true
		case 2:
			return Result{Degree: 2, Path: []identity.PublicKey{a.root, meeting, b.root}}, true
		default:
			chain1 := a.backtrack(back1)
			slices.Reverse(chain1)
			path := make([]identity.PublicKey, 0, rounds+1)
			path = append(path, a.root)
			path = append(path, chain1...)
			path = append(path, meeting)
			path = append(path, b.backtrack(back2)...)
			path = append(path, b.root)
			return Result{Degree: rounds, Path: path}, true
		}
	}
	return Result{}, false
}

// expand advances one side by a single level: fetch the follow lists the
// border is missing, then promote border identities with a confirmed mutual
// edge into the previous level, seeding the next border from their
// still-unseen contacts.
func (s *Separation) expand(ctx context.Context, own *side) error {
	if err := s.fetchBorder(ctx, own); err != nil {
		return err
	}

	last := own.last()
	next := levelMap{}
	var pending []identity.PublicKey

	for _, u := range own.border {
		advanced := false
		var seeds []identity.PublicKey
		for c := range s.Graph.Contacts(u) {
			if _, inLast := last[c]; inLast {
				// Only mutuals advance: one-directional fan-out
				// (everyone follows the celebrity, the celebrity
				// follows no one back) must not steer the search.
				if s.Graph.AreMutual(u, c) {
					advanced = true
					next[u] = c
				}
				continue
			}
			if !own.inAnyLevel(c) {
				seeds = append(seeds, c)
			}
		}
		if advanced {
			pending = append(pending, seeds...)
		}
	}

	// Seeds are filtered after the whole border has been walked: a border
	// identity can advance into next after another member already seeded
	// it, and an identity holding a level slot never re-enters the border.
	seen := make(map[identity.PublicKey]struct{})
	var newBorder []identity.PublicKey
	for _, c := range pending {
		if _, inNext := next[c]; inNext {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		newBorder = append(newBorder, c)
	}

	own.levels = append(own.levels, next)
	own.border = newBorder
	return nil
}

// fetchBorder pulls contact lists for every border identity that has none
// recorded yet, in batches, merging each result into the graph.
func (s *Separation) fetchBorder(ctx context.Context, own *side) error {
	var need []identity.PublicKey
	for _, u := range own.border {
		if !s.Graph.HasFollowList(u) {
			need = append(need, u)
		}
	}
	bs := s.batchSize()
	total := (len(need) + bs - 1) / bs
	for i := 0; i < len(need); i += bs {
		chunk := need[i:min(i+bs, len(need))]
		slog.Debug("fetching border contact lists",
			"side", own.root, "batch", i/bs+1, "total", total, "size", len(chunk))
		res, err := s.Source.FetchContactLists(ctx, chunk, s.Timeout)
		if err != nil {
			return fmt.Errorf("fetch contact lists: %w", err)
		}
		for _, u := range chunk {
			cl, ok := res[u]
			if !ok {
				slog.Debug("no contact list found", "identity", u)
				continue
			}
			s.Graph.UpdateContactList(u, cl.Contacts, cl.RecordedAt)
		}
	}
	return nil
}

// VerifyPath re-fetches the current contact list of every hop, merges the
// results, and checks that every consecutive pair is still mutual. A false
// result is not an error: it signals the caller to discard the path and
// search again.
func (s *Separation) VerifyPath(ctx context.Context, path []identity.PublicKey) (bool, error) {
	if len(path) == 0 {
		return false, nil
	}
	slog.Debug("verifying path", "hops", len(path))
	res, err := s.Source.FetchContactLists(ctx, path, s.Timeout)
	if err != nil {
		return false, fmt.Errorf("fetch contact lists: %w", err)
	}
	for u, cl := range res {
		s.Graph.UpdateContactList(u, cl.Contacts, cl.RecordedAt)
	}
	for i := 0; i+1 < len(path); i++ {
		if !s.Graph.AreMutual(path[i], path[i+1]) {
			return false, nil
		}
	}
	return true, nil
}

// FindVerified runs Find and VerifyPath in a bounded retry loop with
// exponential backoff between attempts. Once the attempt budget is spent it
// fails with *VerifyExhaustedError rather than looping forever on data that
// keeps shifting underneath the search.
func (s *Separation) FindVerified(ctx context.Context, t1, t2 identity.PublicKey) (Result, error) {
	attempts := s.VerifyAttempts
	if attempts <= 0 {
		attempts = DefaultVerifyAttempts
	}
	backoff := s.VerifyBackoff
	if backoff <= 0 {
		backoff = defaultVerifyBackoff
	}

	for attempt := 1; ; attempt++ {
		res, err := s.Find(ctx, t1, t2)
		if err != nil {
			return Result{}, err
		}
		ok, err := s.VerifyPath(ctx, res.Path)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return res, nil
		}
		if attempt >= attempts {
			return Result{}, &VerifyExhaustedError{Attempts: attempts}
		}
		slog.Info("path failed verification, retrying",
			"attempt", attempt, "backoff", backoff)
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
