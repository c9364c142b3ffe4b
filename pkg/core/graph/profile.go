package graph

import (
	"time"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// Profile is the descriptive metadata published for an identity.
type Profile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
}

// BestName returns the most presentable non-empty name field.
func (p Profile) BestName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.DisplayName
}

// ProfileRecord is a profile together with its freshness timestamp. A nil
// *ProfileRecord stored in the cache means "queried, none found", which is
// distinct from never having been queried at all.
type ProfileRecord struct {
	Profile   Profile
	UpdatedAt time.Time
}

// SetProfile caches the profile of u with its record timestamp.
func (g *Graph) SetProfile(u identity.PublicKey, p Profile, updatedAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[u] = &ProfileRecord{Profile: p, UpdatedAt: updatedAt}
}

// MarkNoProfile records that u was queried and no profile was found.
func (g *Graph) MarkNoProfile(u identity.PublicKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[u] = nil
}

// Profile returns the cached record for u. The bool reports whether u was
// ever queried; a true result with a nil record means no profile exists.
func (g *Graph) Profile(u identity.PublicKey) (*ProfileRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.profiles[u]
	return rec, ok
}

// MergeProfiles bulk-inserts fetched profile records, nil entries included.
func (g *Graph) MergeProfiles(records map[identity.PublicKey]*ProfileRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for u, rec := range records {
		g.profiles[u] = rec
	}
}
