// Package restore wires the profile card pipeline together: resolve the
// account, install the stylesheet, fetch the records and mount the card.
package restore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"profilecard/internal/api"
	"profilecard/internal/prefs"
	"profilecard/internal/render"
	"profilecard/internal/resolve"
	"profilecard/internal/style"
)

// DefaultCollectiblesWait bounds how long a render waits for the inventory
// once the profile is in.
const DefaultCollectiblesWait = 2 * time.Second

// Outcome classifies one pipeline run.
type Outcome int

const (
	// OutcomeInactive: the page is not a profile page.
	OutcomeInactive Outcome = iota
	// OutcomeUnresolved: no identifier was found; only a warning is logged.
	OutcomeUnresolved
	// OutcomeSkipped: the profile loaded but the account is not banned.
	OutcomeSkipped
	OutcomeRendered
	// OutcomeFailed: the profile fetch failed and the error card is shown.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInactive:
		return "inactive"
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRendered:
		return "rendered"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is what a run did.
type Result struct {
	Outcome  Outcome
	ID       resolve.Identifier
	Strategy string
	Err      error
}

// ProfileSource is the data side of the pipeline. *api.Client satisfies it.
type ProfileSource interface {
	Profile(ctx context.Context, id string) (*api.Profile, error)
	Collectibles(ctx context.Context, id string) (*api.Collectibles, bool)
}

// Pipeline holds the long-lived collaborators. It is safe for concurrent
// use; every Run works on its own document.
type Pipeline struct {
	source ProfileSource
	prefs  *prefs.Store
	log    *zap.Logger
	wait   time.Duration
	opts   render.Options
	chain  []resolve.Strategy
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithCollectiblesWait overrides DefaultCollectiblesWait.
func WithCollectiblesWait(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.wait = d
		}
	}
}

// WithRenderOptions sets locale, location and links used by the card. The
// Prefs field is ignored; the store's current record is used per run.
func WithRenderOptions(o render.Options) Option {
	return func(p *Pipeline) { p.opts = o }
}

// WithChain replaces resolve.Chain, e.g. to skip the path strategy for pages
// reached through a rewritten URL.
func WithChain(chain []resolve.Strategy) Option {
	return func(p *Pipeline) { p.chain = chain }
}

func New(source ProfileSource, store *prefs.Store, log *zap.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		source: source,
		prefs:  store,
		log:    log.Named("restore"),
		wait:   DefaultCollectiblesWait,
		chain:  resolve.Chain,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run rewrites doc, the parsed page found at path, in place.
func (p *Pipeline) Run(ctx context.Context, path string, doc *html.Node) Result {
	if !resolve.Active(path) {
		return Result{Outcome: OutcomeInactive}
	}
	id, strategy, ok := resolve.ResolveWith(p.chain, resolve.Page{Path: path, Doc: doc})
	if !ok {
		p.log.Warn("Could not auto-detect userId", zap.String("path", path))
		return Result{Outcome: OutcomeUnresolved}
	}
	res := Result{ID: id, Strategy: strategy}
	log := p.log.With(zap.String("id", id.String()), zap.String("strategy", strategy))

	cur := p.prefs.Current()
	style.Apply(doc, style.Generate(cur))

	// Collectibles are an enrichment: started first, waited for briefly.
	var inventory chan *api.Collectibles
	if cur.ShowCollectibles {
		inventory = make(chan *api.Collectibles, 1)
		go func() {
			c, _ := p.source.Collectibles(ctx, id.String())
			inventory <- c
		}()
	}

	target := render.DocumentTarget{Doc: doc}
	profile, err := p.source.Profile(ctx, id.String())
	if err != nil {
		log.Info("Profile fetch failed", zap.Error(err))
		render.RenderError(target, err)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	var items *api.Collectibles
	if inventory != nil {
		timer := time.NewTimer(p.wait)
		select {
		case items = <-inventory:
		case <-timer.C:
			log.Debug("Collectibles timed out", zap.Duration("wait", p.wait))
		case <-ctx.Done():
		}
		timer.Stop()
	}

	o := p.opts
	o.Prefs = cur
	if !render.Render(target, profile, items, o) {
		log.Debug("Account not banned, page left as is")
		res.Outcome = OutcomeSkipped
		return res
	}
	res.Outcome = OutcomeRendered
	return res
}
