package graph

import (
	"testing"
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

func key(b byte) identity.PublicKey {
	var pk identity.PublicKey
	pk[0] = b
	return pk
}

func contacts(g *Graph, u identity.PublicKey) map[identity.PublicKey]bool {
	out := map[identity.PublicKey]bool{}
	for c := range g.Contacts(u) {
		out[c] = true
	}
	return out
}

func TestAddIdempotent(t *testing.T) {
	g := New()
	u := key(1)

	id1, new1 := g.Add(u)
	id2, new2 := g.Add(u)

	if !new1 {
		t.Error("first Add reported existing identity")
	}
	if new2 {
		t.Error("second Add reported new identity")
	}
	if id1 != id2 {
		t.Errorf("Add returned different handles: %d, %d", id1, id2)
	}
	if !g.Contains(u) {
		t.Error("Contains is false after Add")
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}
}

func TestAddFollowIdempotent(t *testing.T) {
	g := New()
	u, v := key(1), key(2)

	e1 := g.AddFollow(u, v)
	e2 := g.AddFollow(u, v)
	if e1 == nil || e2 == nil {
		t.Fatal("AddFollow returned nil edge")
	}
	if e1.From().ID() != e2.From().ID() || e1.To().ID() != e2.To().ID() {
		t.Error("re-adding a follow produced a different edge")
	}
	if got := contacts(g, u); len(got) != 1 || !got[v] {
		t.Errorf("contacts of u = %v, want {v}", got)
	}
}

func TestAddFollowSelfIsNoop(t *testing.T) {
	g := New()
	u := key(1)
	if e := g.AddFollow(u, u); e != nil {
		t.Error("self-follow produced an edge")
	}
	if len(contacts(g, u)) != 0 {
		t.Error("self-follow is visible in contacts")
	}
}

func TestUpdateContactListRoundTrip(t *testing.T) {
	g := New()
	u := key(1)
	old := []identity.PublicKey{key(2), key(3)}
	ts1 := time.Unix(1000, 0)
	g.UpdateContactList(u, old, ts1)

	next := []identity.PublicKey{key(3), key(4), key(5)}
	ts2 := time.Unix(2000, 0)
	g.UpdateContactList(u, next, ts2)

	got := contacts(g, u)
	if len(got) != len(next) {
		t.Fatalf("contacts after update = %v, want exactly %v", got, next)
	}
	for _, c := range next {
		if !got[c] {
			t.Errorf("missing contact %v", c)
		}
	}
	if got[key(2)] {
		t.Error("stale edge from prior contact list survived")
	}
	if ts, ok := g.LastFollowUpdate(u); !ok || !ts.Equal(ts2) {
		t.Errorf("LastFollowUpdate = %v, %v; want %v, true", ts, ok, ts2)
	}
}

func TestUpdateContactListOnUnknown(t *testing.T) {
	g := New()
	u := key(9)
	g.UpdateContactList(u, nil, time.Unix(5, 0))
	if !g.Contains(u) {
		t.Error("identity not added by UpdateContactList")
	}
	if !g.HasFollowList(u) {
		t.Error("empty contact list should still mark the follow list as recorded")
	}
}

func TestAreMutualSymmetry(t *testing.T) {
	g := New()
	u, v, w := key(1), key(2), key(3)
	g.AddFollow(u, v)
	g.AddFollow(v, u)
	g.AddFollow(u, w) // one-directional

	pairs := [][2]identity.PublicKey{{u, v}, {u, w}, {v, w}, {u, key(50)}}
	for _, p := range pairs {
		if g.AreMutual(p[0], p[1]) != g.AreMutual(p[1], p[0]) {
			t.Errorf("AreMutual not symmetric for %v", p)
		}
	}
	if !g.AreMutual(u, v) {
		t.Error("u and v should be mutuals")
	}
	if g.AreMutual(u, w) {
		t.Error("one-directional follow reported as mutual")
	}
}

func TestMutuals(t *testing.T) {
	g := New()
	u := key(1)
	g.AddFollow(u, key(2))
	g.AddFollow(key(2), u)
	g.AddFollow(u, key(3)) // not reciprocated
	g.AddFollow(key(4), u) // follower only

	m := g.Mutuals(u)
	if len(m) != 1 || m[0] != key(2) {
		t.Errorf("Mutuals = %v, want [key(2)]", m)
	}
	if g.Mutuals(key(99)) != nil {
		t.Error("Mutuals of unknown identity should be empty")
	}
}

func TestContactsUnknownAndRestartable(t *testing.T) {
	g := New()
	if len(contacts(g, key(7))) != 0 {
		t.Error("unknown identity has contacts")
	}

	u := key(1)
	g.UpdateContactList(u, []identity.PublicKey{key(2), key(3)}, time.Now())
	seq := g.Contacts(u)
	if n1, n2 := len(collect(seq)), len(collect(seq)); n1 != 2 || n2 != 2 {
		t.Errorf("Contacts sequence not restartable: %d then %d", n1, n2)
	}
}

func collect(seq func(func(identity.PublicKey) bool)) []identity.PublicKey {
	var out []identity.PublicKey
	seq(func(pk identity.PublicKey) bool {
		out = append(out, pk)
		return true
	})
	return out
}

func TestProfileStates(t *testing.T) {
	g := New()
	u, v, w := key(1), key(2), key(3)

	if _, queried := g.Profile(u); queried {
		t.Error("never-queried identity reported as queried")
	}

	g.SetProfile(v, Profile{Name: "alice"}, time.Unix(100, 0))
	rec, queried := g.Profile(v)
	if !queried || rec == nil || rec.Profile.Name != "alice" {
		t.Errorf("Profile(v) = %+v, %v", rec, queried)
	}

	g.MarkNoProfile(w)
	rec, queried = g.Profile(w)
	if !queried || rec != nil {
		t.Errorf("Profile(w) = %+v, %v; want nil, true", rec, queried)
	}
}

func TestMergeProfiles(t *testing.T) {
	g := New()
	u, v := key(1), key(2)
	g.MergeProfiles(map[identity.PublicKey]*ProfileRecord{
		u: {Profile: Profile{DisplayName: "Bob"}, UpdatedAt: time.Unix(10, 0)},
		v: nil,
	})
	rec, ok := g.Profile(u)
	if !ok || rec == nil || rec.Profile.BestName() != "Bob" {
		t.Errorf("merged profile wrong: %+v, %v", rec, ok)
	}
	if rec, ok := g.Profile(v); !ok || rec != nil {
		t.Errorf("merged none-entry wrong: %+v, %v", rec, ok)
	}
}
