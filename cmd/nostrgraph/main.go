package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/nostrgraph/internal/listener"
	"github.com/sanonone/nostrgraph/internal/mcp"
	"github.com/sanonone/nostrgraph/internal/source"
	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
	"github.com/sanonone/nostrgraph/pkg/core/search"
	"github.com/sanonone/nostrgraph/pkg/nostr"
)

const defaultRelays = "wss://relay.damus.io,wss://nos.lol,wss://relay.nostr.band"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Ctrl+C cancels the in-flight searches cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "sep":
		err = runSep(ctx, os.Args[2:])
	case "rank":
		err = runRank(ctx, os.Args[2:])
	case "listen":
		err = runListen(ctx, os.Args[2:])
	case "mcp":
		err = runMCP(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: nostrgraph <command> [flags]

commands:
  sep <id1> <id2>   degrees of separation between two identities
  rank <id>         follow recommendations for an identity
  listen            run the mention bot
  mcp               serve the graph tools over MCP stdio`)
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
}

func splitRelays(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func runSep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sep", flag.ExitOnError)
	relays := fs.String("relays", defaultRelays, "Comma-separated relay URLs")
	maxRounds := fs.Int("max-rounds", search.DefaultMaxRounds, "Give up after this many expansion rounds")
	batch := fs.Int("batch", search.DefaultBatchSize, "Max contact lists per relay fetch")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-fetch relay timeout")
	verify := fs.Bool("verify", false, "Re-check the found path against fresh relay data")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Parse(args)
	setupLogging(*logLevel)

	if fs.NArg() != 2 {
		return errors.New("sep needs exactly two identities (hex or npub)")
	}
	from, err := identity.Parse(fs.Arg(0))
	if err != nil {
		return err
	}
	to, err := identity.Parse(fs.Arg(1))
	if err != nil {
		return err
	}

	pool := nostr.NewPool(splitRelays(*relays)...)
	defer pool.Close()

	sep := &search.Separation{
		Graph:     graph.New(),
		Source:    source.New(pool),
		BatchSize: *batch,
		MaxRounds: *maxRounds,
		Timeout:   *timeout,
	}
	var res search.Result
	if *verify {
		res, err = sep.FindVerified(ctx, from, to)
	} else {
		res, err = sep.Find(ctx, from, to)
	}
	if errors.Is(err, search.ErrNotFound) {
		fmt.Printf("no path found within %d rounds\n", *maxRounds)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%d degrees of separation\n", res.Degree)
	for i, pk := range res.Path {
		fmt.Printf("%2d. %s\n", i, pk.Npub())
	}
	return nil
}

func runRank(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	relays := fs.String("relays", defaultRelays, "Comma-separated relay URLs")
	limit := fs.Int("limit", 10, "Number of recommendations to print")
	profiles := fs.Bool("profiles", true, "Resolve display names for the recommendations")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Parse(args)
	setupLogging(*logLevel)

	if fs.NArg() != 1 {
		return errors.New("rank needs exactly one identity (hex or npub)")
	}
	root, err := identity.Parse(fs.Arg(0))
	if err != nil {
		return err
	}

	pool := nostr.NewPool(splitRelays(*relays)...)
	defer pool.Close()
	g := graph.New()
	src := source.New(pool)

	nb := search.NewNeighborhood(g, src, root)
	for range 3 {
		if err := nb.AddLevel(ctx); err != nil {
			return err
		}
	}
	ranks, err := nb.Ranks()
	if err != nil {
		return err
	}

	if len(ranks) > *limit {
		ranks = ranks[len(ranks)-*limit:]
	}

	names := map[identity.PublicKey]string{}
	if *profiles {
		ids := make([]identity.PublicKey, len(ranks))
		for i, r := range ranks {
			ids[i] = r.Identity
		}
		records, err := src.FetchProfiles(ctx, ids, 10*time.Second)
		if err == nil {
			for pk, rec := range records {
				if rec != nil {
					names[pk] = rec.Profile.BestName()
				}
			}
		}
	}

	// Strongest last in ranks; print strongest first.
	for i := len(ranks) - 1; i >= 0; i-- {
		r := ranks[i]
		name := names[r.Identity]
		if name == "" {
			name = r.Identity.Npub()
		}
		fmt.Printf("%4d  %s (%d mutual connections)\n", r.Score, name, len(r.MutualConnections))
	}
	return nil
}

func runListen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	configPath := fs.String("config", "nostrgraph.yaml", "Path to the listener YAML config")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Parse(args)
	setupLogging(*logLevel)

	cfg, err := listener.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	l, err := listener.New(cfg)
	if err != nil {
		return err
	}
	return l.Run(ctx)
}

func runMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	relays := fs.String("relays", defaultRelays, "Comma-separated relay URLs")
	logLevel := fs.String("log-level", "warn", "Log level; stdio transport wants a quiet stderr")
	fs.Parse(args)
	setupLogging(*logLevel)

	pool := nostr.NewPool(splitRelays(*relays)...)
	defer pool.Close()

	server := mcp.NewMCPServer(graph.New(), source.New(pool))
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}
