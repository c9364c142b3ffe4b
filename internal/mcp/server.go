package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/search"
)

func NewMCPServer(g *graph.Graph, src search.Source) *mcp.Server {
	service := NewService(g, src)

	// Create Server instance
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "NostrGraph",
		Version: "0.3.0",
	}, nil) // Options can be nil for default

	// Register Tools using the Generic AddTool which inspects structs!

	mcp.AddTool(s, &mcp.Tool{
		Name:        "find_separation",
		Description: "Compute the degrees of separation between two identities over mutual follows, returning the connecting path.",
	}, service.FindSeparation)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "recommend_follows",
		Description: "Recommend new accounts for an identity to follow, ranked by how many of its mutual follows already follow them.",
	}, service.RecommendFollows)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "lookup_profile",
		Description: "Fetch the published profile (name, about, nip05) of an identity.",
	}, service.LookupProfile)

	return s
}
