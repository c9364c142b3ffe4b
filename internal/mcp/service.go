package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
	"github.com/sanonone/nostrgraph/pkg/core/search"
	"github.com/sanonone/nostrgraph/pkg/metrics"
)

const toolTimeout = 15 * time.Second

type Service struct {
	graph *graph.Graph
	src   search.Source
}

func NewService(g *graph.Graph, src search.Source) *Service {
	return &Service{
		graph: g,
		src:   src,
	}
}

// --- Tool Handlers ---

func (s *Service) FindSeparation(ctx context.Context, req *mcp.CallToolRequest, args FindSeparationArgs) (*mcp.CallToolResult, FindSeparationResult, error) {
	from, err := identity.Parse(args.From)
	if err != nil {
		return nil, FindSeparationResult{}, fmt.Errorf("bad 'from' identity: %w", err)
	}
	to, err := identity.Parse(args.To)
	if err != nil {
		return nil, FindSeparationResult{}, fmt.Errorf("bad 'to' identity: %w", err)
	}

	sep := &search.Separation{
		Graph:     s.graph,
		Source:    s.src,
		MaxRounds: args.MaxRounds,
		Timeout:   toolTimeout,
	}
	var res search.Result
	if args.Verify {
		res, err = sep.FindVerified(ctx, from, to)
	} else {
		res, err = sep.Find(ctx, from, to)
	}
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("separation", "error").Inc()
		return nil, FindSeparationResult{}, err
	}
	metrics.SearchesTotal.WithLabelValues("separation", "found").Inc()

	names := s.resolveNames(ctx, res.Path)
	out := FindSeparationResult{Degree: res.Degree}
	for _, pk := range res.Path {
		out.Path = append(out.Path, PathStep{
			Npub: pk.Npub(),
			Hex:  pk.Hex(),
			Name: names[pk],
		})
	}
	return nil, out, nil
}

func (s *Service) RecommendFollows(ctx context.Context, req *mcp.CallToolRequest, args RecommendFollowsArgs) (*mcp.CallToolResult, RecommendFollowsResult, error) {
	root, err := identity.Parse(args.Identity)
	if err != nil {
		return nil, RecommendFollowsResult{}, fmt.Errorf("bad identity: %w", err)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	// Three expansions: direct follows, the candidate ring, and the
	// candidates' own lists so their mutual connections are known.
	nb := search.NewNeighborhood(s.graph, s.src, root)
	for range 3 {
		if err := nb.AddLevel(ctx); err != nil {
			metrics.SearchesTotal.WithLabelValues("recommend", "error").Inc()
			return nil, RecommendFollowsResult{}, err
		}
	}
	ranks, err := nb.Ranks()
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("recommend", "error").Inc()
		return nil, RecommendFollowsResult{}, err
	}
	metrics.SearchesTotal.WithLabelValues("recommend", "ok").Inc()

	// Ranks come back weakest first; the client wants the strongest.
	if len(ranks) > limit {
		ranks = ranks[len(ranks)-limit:]
	}
	top := make([]search.Rank, 0, len(ranks))
	for i := len(ranks) - 1; i >= 0; i-- {
		top = append(top, ranks[i])
	}

	var names map[identity.PublicKey]string
	if args.Profiles {
		ids := make([]identity.PublicKey, len(top))
		for i, r := range top {
			ids[i] = r.Identity
		}
		names = s.resolveNames(ctx, ids)
	}

	out := RecommendFollowsResult{Recommendations: make([]Recommendation, 0, len(top))}
	for _, r := range top {
		rec := Recommendation{
			Npub:    r.Identity.Npub(),
			Name:    names[r.Identity],
			Score:   r.Score,
			Mutuals: make([]string, 0, len(r.MutualConnections)),
		}
		for _, m := range r.MutualConnections {
			rec.Mutuals = append(rec.Mutuals, m.Npub())
		}
		out.Recommendations = append(out.Recommendations, rec)
	}
	return nil, out, nil
}

func (s *Service) LookupProfile(ctx context.Context, req *mcp.CallToolRequest, args LookupProfileArgs) (*mcp.CallToolResult, LookupProfileResult, error) {
	pk, err := identity.Parse(args.Identity)
	if err != nil {
		return nil, LookupProfileResult{}, fmt.Errorf("bad identity: %w", err)
	}

	out := LookupProfileResult{Npub: pk.Npub()}

	rec, queried := s.graph.Profile(pk)
	if !queried {
		records, err := s.src.FetchProfiles(ctx, []identity.PublicKey{pk}, toolTimeout)
		if err != nil {
			return nil, LookupProfileResult{}, err
		}
		s.graph.MergeProfiles(records)
		rec = records[pk]
	}
	if rec == nil {
		return nil, out, nil
	}

	out.Found = true
	out.Name = rec.Profile.Name
	out.DisplayName = rec.Profile.DisplayName
	out.About = rec.Profile.About
	out.Nip05 = rec.Profile.Nip05
	return nil, out, nil
}

// resolveNames best-effort fetches display names; failures just leave names
// blank.
func (s *Service) resolveNames(ctx context.Context, ids []identity.PublicKey) map[identity.PublicKey]string {
	names := make(map[identity.PublicKey]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	records, err := s.src.FetchProfiles(ctx, ids, toolTimeout)
	if err != nil {
		return names
	}
	s.graph.MergeProfiles(records)
	for pk, rec := range records {
		if rec != nil {
			names[pk] = rec.Profile.BestName()
		}
	}
	return names
}
