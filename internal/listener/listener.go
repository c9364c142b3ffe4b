// Package listener runs the mention bot: it polls relays for notes that tag
// the bot's key, reads two identities out of each note, runs a verified
// separation search and publishes the answer as a threaded reply.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/nostrgraph/internal/source"
	"github.com/sanonone/nostrgraph/pkg/core/graph"
	"github.com/sanonone/nostrgraph/pkg/core/identity"
	"github.com/sanonone/nostrgraph/pkg/core/search"
	"github.com/sanonone/nostrgraph/pkg/metrics"
	"github.com/sanonone/nostrgraph/pkg/nostr"
)

// Mention arity errors: a note must name exactly two identities besides the
// bot itself.
var (
	ErrTooFewArguments  = errors.New("mention names fewer than two identities")
	ErrTooManyArguments = errors.New("mention names more than two identities")
)

// Listener is the long-running bot process.
type Listener struct {
	cfg   Config
	sk    nostr.SecretKey
	self  identity.PublicKey
	pool  *nostr.Pool
	graph *graph.Graph
	src   *source.Relay
	state *State
}

// New builds a listener from its configuration.
func New(cfg Config) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sk, err := nostr.ParseSecretKey(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("listener secret key: %w", err)
	}
	state, err := LoadState(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	pool := nostr.NewPool(cfg.Relays...)
	return &Listener{
		cfg:   cfg,
		sk:    sk,
		self:  sk.PublicKey(),
		pool:  pool,
		graph: graph.New(),
		src:   source.New(pool),
		state: state,
	}, nil
}

// Run polls until the context is cancelled, saving state between polls.
func (l *Listener) Run(ctx context.Context) error {
	slog.Info("listener starting",
		"pubkey", l.self.Npub(),
		"relays", len(l.cfg.Relays),
		"poll_interval", l.cfg.PollInterval)

	if l.cfg.MetricsAddr != "" {
		go l.serveMetrics(ctx)
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	defer l.pool.Close()

	for {
		if err := l.poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("poll failed", "error", err)
		}
		if err := l.state.Save(); err != nil {
			slog.Error("state save failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			slog.Info("listener stopping")
			return nil
		}
	}
}

func (l *Listener) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: l.cfg.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint up", "addr", l.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "error", err)
	}
}

func (l *Listener) poll(ctx context.Context) error {
	since := l.state.LastPoll()
	if since.IsZero() {
		since = time.Now().Add(-l.cfg.Lookback)
	}
	pollStart := time.Now()

	sinceTS := nostr.Timestamp(since.Unix())
	events, err := l.pool.Query(ctx, []nostr.Filter{{
		Kinds: []int{nostr.KindTextNote},
		PTags: []string{l.self.Hex()},
		Since: &sinceTS,
	}}, l.cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("poll mentions: %w", err)
	}

	var fresh []*nostr.Event
	for _, ev := range events {
		if ev.PubKey == l.self.Hex() {
			continue
		}
		if l.state.Responded(ev.ID) {
			continue
		}
		fresh = append(fresh, ev)
	}
	slog.Debug("poll complete", "events", len(events), "fresh", len(fresh))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.MaxConcurrent)
	for _, ev := range fresh {
		g.Go(func() error {
			l.handle(gctx, ev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	metrics.GraphNodes.Set(float64(l.graph.NodeCount()))
	l.state.SetLastPoll(pollStart)
	return nil
}

// handle answers one mention. The event is marked responded whatever the
// outcome so a broken note is never retried forever.
func (l *Listener) handle(ctx context.Context, ev *nostr.Event) {
	// Persist right away: if the process dies mid-poll, a restart within the
	// lookback window would otherwise answer the same mention again.
	defer func() {
		l.state.MarkResponded(ev.ID)
		if err := l.state.Save(); err != nil {
			slog.Error("state save failed", "event", ev.ID, "error", err)
		}
	}()

	targets, err := l.extractTargets(ev.Content)
	if err != nil {
		slog.Info("mention with bad arity", "event", ev.ID, "error", err)
		metrics.MentionsHandledTotal.WithLabelValues("bad_request").Inc()
		l.reply(ctx, ev, usageMessage(err))
		return
	}

	sep := &search.Separation{
		Graph:          l.graph,
		Source:         l.src,
		MaxRounds:      l.cfg.MaxRounds,
		Timeout:        l.cfg.QueryTimeout,
		VerifyAttempts: l.cfg.VerifyAttempts,
	}
	res, err := sep.FindVerified(ctx, targets[0], targets[1])
	switch {
	case err == nil:
		metrics.SearchesTotal.WithLabelValues("separation", "found").Inc()
		metrics.MentionsHandledTotal.WithLabelValues("answered").Inc()
		l.reply(ctx, ev, l.formatResult(ctx, targets, res))
	case errors.Is(err, search.ErrNotFound):
		metrics.SearchesTotal.WithLabelValues("separation", "not_found").Inc()
		metrics.MentionsHandledTotal.WithLabelValues("answered").Inc()
		l.reply(ctx, ev, fmt.Sprintf(
			"I could not connect those two within %d hops. They may live in different corners of the network.",
			l.cfg.MaxRounds))
	default:
		var missing *search.MissingContactListError
		if errors.As(err, &missing) {
			metrics.SearchesTotal.WithLabelValues("separation", "missing_contacts").Inc()
			metrics.MentionsHandledTotal.WithLabelValues("answered").Inc()
			l.reply(ctx, ev, fmt.Sprintf(
				"%s has no follow list published on my relays, so I cannot trace a path.",
				missing.Identity.Npub()))
			return
		}
		slog.Error("separation search failed", "event", ev.ID, "error", err)
		metrics.SearchesTotal.WithLabelValues("separation", "error").Inc()
		metrics.MentionsHandledTotal.WithLabelValues("error").Inc()
	}
}

// extractTargets pulls the two identities the search runs between out of
// the note content. The bot's own key is just the summons and is ignored.
func (l *Listener) extractTargets(content string) ([2]identity.PublicKey, error) {
	var targets [2]identity.PublicKey
	n := 0
	for _, pk := range nostr.FindPubKeys(content) {
		if pk == l.self {
			continue
		}
		if n == 2 {
			return targets, ErrTooManyArguments
		}
		targets[n] = pk
		n++
	}
	if n < 2 {
		return targets, ErrTooFewArguments
	}
	return targets, nil
}

func usageMessage(err error) string {
	return fmt.Sprintf(
		"%s. Mention me with exactly two identities, e.g. \"how far is nostr:npub1... from nostr:npub1...?\"",
		err)
}

// formatResult renders the found path with display names where profiles
// exist.
func (l *Listener) formatResult(ctx context.Context, targets [2]identity.PublicKey, res search.Result) string {
	if res.Degree == 0 {
		return "That is the same identity twice: zero degrees of separation."
	}

	names := make(map[identity.PublicKey]string, len(res.Path))
	profiles, err := l.src.FetchProfiles(ctx, res.Path, l.cfg.QueryTimeout)
	if err != nil {
		slog.Debug("profile lookup for reply failed", "error", err)
		profiles = nil
	}
	for _, pk := range res.Path {
		names[pk] = shortNpub(pk)
		if rec := profiles[pk]; rec != nil {
			if name := rec.Profile.BestName(); name != "" {
				names[pk] = name
			}
		}
	}

	hops := make([]string, len(res.Path))
	for i, pk := range res.Path {
		hops[i] = names[pk]
	}
	return fmt.Sprintf("%s and %s are %d degrees of separation apart.\nPath: %s",
		names[targets[0]], names[targets[1]], res.Degree, strings.Join(hops, " -> "))
}

func shortNpub(pk identity.PublicKey) string {
	npub := pk.Npub()
	return npub[:12] + "..."
}

func (l *Listener) reply(ctx context.Context, parent *nostr.Event, content string) {
	reply := &nostr.Event{
		Kind:    nostr.KindTextNote,
		Tags:    nostr.ReplyTags(parent),
		Content: content,
	}
	if err := reply.Sign(l.sk); err != nil {
		slog.Error("reply signing failed", "parent", parent.ID, "error", err)
		return
	}
	if err := l.pool.Publish(ctx, reply, l.cfg.QueryTimeout); err != nil {
		slog.Error("reply publish failed", "parent", parent.ID, "error", err)
		return
	}
	slog.Info("replied to mention", "parent", parent.ID, "reply", reply.ID)
}
