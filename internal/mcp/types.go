package mcp

// --- Tool Arguments ---

type FindSeparationArgs struct {
	From      string `json:"from" jsonschema:"First identity as hex pubkey or npub,required"`
	To        string `json:"to" jsonschema:"Second identity as hex pubkey or npub,required"`
	MaxRounds int    `json:"max_rounds,omitempty" jsonschema:"Give up after this many expansion rounds (default 7)"`
	Verify    bool   `json:"verify,omitempty" jsonschema:"description=If true, re-check the found path against fresh relay data and retry while it is stale."`
}

type PathStep struct {
	Npub string `json:"npub"`
	Hex  string `json:"hex"`
	Name string `json:"name,omitempty"`
}

type FindSeparationResult struct {
	Degree int        `json:"degree"`
	Path   []PathStep `json:"path"` // from -> ... -> to, one mutual-follow hop per step
}

type RecommendFollowsArgs struct {
	Identity string `json:"identity" jsonschema:"The identity to recommend follows for, as hex pubkey or npub,required"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Max number of recommendations (default 10)"`
	Profiles bool   `json:"profiles,omitempty" jsonschema:"description=If true, resolve display names for the recommended identities."`
}

type Recommendation struct {
	Npub    string   `json:"npub"`
	Name    string   `json:"name,omitempty"`
	Score   int      `json:"score"`
	Mutuals []string `json:"mutuals"` // direct follows vouching for this candidate
}

type RecommendFollowsResult struct {
	Recommendations []Recommendation `json:"recommendations"` // strongest first
}

type LookupProfileArgs struct {
	Identity string `json:"identity" jsonschema:"The identity to look up, as hex pubkey or npub,required"`
}

type LookupProfileResult struct {
	Npub        string `json:"npub"`
	Found       bool   `json:"found"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
}
