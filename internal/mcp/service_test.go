package mcp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
	"github.com/sanonone/nostrgraph/pkg/core/search"
)

func key(b byte) identity.PublicKey {
	var raw [identity.Size]byte
	raw[identity.Size-1] = b
	pk, err := identity.FromBytes(raw[:])
	if err != nil {
		panic(err)
	}
	return pk
}

type fakeSource struct {
	mu       sync.Mutex
	lists    map[identity.PublicKey][]identity.PublicKey
	profiles map[identity.PublicKey]*graph.ProfileRecord
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lists:    make(map[identity.PublicKey][]identity.PublicKey),
		profiles: make(map[identity.PublicKey]*graph.ProfileRecord),
	}
}

func (f *fakeSource) mutual(a, b identity.PublicKey) {
	f.lists[a] = append(f.lists[a], b)
	f.lists[b] = append(f.lists[b], a)
}

func (f *fakeSource) FetchContactLists(ctx context.Context, ids []identity.PublicKey, timeout time.Duration) (map[identity.PublicKey]search.ContactList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[identity.PublicKey]search.ContactList)
	for _, id := range ids {
		if contacts, ok := f.lists[id]; ok {
			out[id] = search.ContactList{Contacts: contacts, RecordedAt: time.Now()}
		}
	}
	return out, nil
}

func (f *fakeSource) FetchProfiles(ctx context.Context, ids []identity.PublicKey, timeout time.Duration) (map[identity.PublicKey]*graph.ProfileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[identity.PublicKey]*graph.ProfileRecord)
	for _, id := range ids {
		out[id] = f.profiles[id]
	}
	return out, nil
}

func TestFindSeparationTool(t *testing.T) {
	x, y, z := key(1), key(2), key(3)
	src := newFakeSource()
	src.mutual(x, y)
	src.mutual(y, z)
	src.profiles[y] = &graph.ProfileRecord{
		Profile:   graph.Profile{Name: "middleman"},
		UpdatedAt: time.Now(),
	}

	service := NewService(graph.New(), src)
	_, res, err := service.FindSeparation(context.Background(), nil, FindSeparationArgs{
		From: x.Hex(),
		To:   z.Npub(), // npub input must work too
	})
	if err != nil {
		t.Fatalf("FindSeparation: %v", err)
	}
	if res.Degree != 2 {
		t.Fatalf("Degree = %d, want 2", res.Degree)
	}
	if len(res.Path) != 3 {
		t.Fatalf("Path has %d steps, want 3", len(res.Path))
	}
	if res.Path[0].Hex != x.Hex() || res.Path[2].Hex != z.Hex() {
		t.Error("path endpoints wrong")
	}
	if res.Path[1].Name != "middleman" {
		t.Errorf("middle step name = %q, want middleman", res.Path[1].Name)
	}
}

func TestFindSeparationToolBadInput(t *testing.T) {
	service := NewService(graph.New(), newFakeSource())
	_, _, err := service.FindSeparation(context.Background(), nil, FindSeparationArgs{
		From: "garbage",
		To:   key(1).Hex(),
	})
	if err == nil {
		t.Fatal("expected error for malformed identity")
	}
}

func TestRecommendFollowsTool(t *testing.T) {
	root, f1, f2, cand := key(1), key(2), key(3), key(4)
	src := newFakeSource()
	src.mutual(root, f1)
	src.mutual(root, f2)
	src.mutual(f1, cand)
	src.mutual(f2, cand)
	src.profiles[cand] = &graph.ProfileRecord{
		Profile:   graph.Profile{Name: "candidate"},
		UpdatedAt: time.Now(),
	}

	service := NewService(graph.New(), src)
	_, res, err := service.RecommendFollows(context.Background(), nil, RecommendFollowsArgs{
		Identity: root.Hex(),
		Profiles: true,
	})
	if err != nil {
		t.Fatalf("RecommendFollows: %v", err)
	}
	if len(res.Recommendations) == 0 {
		t.Fatal("no recommendations returned")
	}
	best := res.Recommendations[0]
	if best.Npub != cand.Npub() {
		t.Errorf("top recommendation = %s, want %s", best.Npub, cand.Npub())
	}
	if best.Score != 20 {
		t.Errorf("score = %d, want 20", best.Score)
	}
	if len(best.Mutuals) != 2 {
		t.Errorf("mutuals = %v, want two vouching follows", best.Mutuals)
	}
	if best.Name != "candidate" {
		t.Errorf("name = %q, want candidate", best.Name)
	}
}

func TestLookupProfileTool(t *testing.T) {
	alice, ghost := key(1), key(2)
	src := newFakeSource()
	src.profiles[alice] = &graph.ProfileRecord{
		Profile:   graph.Profile{Name: "alice", About: "hi"},
		UpdatedAt: time.Now(),
	}

	service := NewService(graph.New(), src)

	_, res, err := service.LookupProfile(context.Background(), nil, LookupProfileArgs{Identity: alice.Hex()})
	if err != nil {
		t.Fatalf("LookupProfile: %v", err)
	}
	if !res.Found || res.Name != "alice" || res.About != "hi" {
		t.Errorf("unexpected result: %+v", res)
	}

	_, res, err = service.LookupProfile(context.Background(), nil, LookupProfileArgs{Identity: ghost.Npub()})
	if err != nil {
		t.Fatalf("LookupProfile(ghost): %v", err)
	}
	if res.Found {
		t.Error("ghost identity reported as found")
	}
}
