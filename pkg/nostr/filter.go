package nostr

import "slices"

// Filter is a NIP-01 subscription filter. Zero fields are omitted from the
// wire form.
type Filter struct {
	IDs     []string   `json:"ids,omitempty"`
	Authors []string   `json:"authors,omitempty"`
	Kinds   []int      `json:"kinds,omitempty"`
	PTags   []string   `json:"#p,omitempty"`
	Since   *Timestamp `json:"since,omitempty"`
	Until   *Timestamp `json:"until,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}

// Matches reports whether the event satisfies every constraint the filter
// sets. Limit is a relay-side hint and is not checked here.
func (f Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if len(f.PTags) > 0 {
		found := false
		for _, tag := range e.Tags {
			if len(tag) >= 2 && tag[0] == "p" && slices.Contains(f.PTags, tag[1]) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	return true
}
