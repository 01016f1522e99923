// Package match joins vector search hits against a product catalog.
//
// A Matcher runs a similarity search on a matcha store, resolves each
// hit's JoinKey through a catalog.Resolver, and returns the resolved
// products in hit order. Hits that cannot be resolved (no join key, or
// no catalog entry) are dropped silently: the caller gets fewer matches,
// never an error. Only infrastructure failures fail the request.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchadb/matcha"
	"github.com/matchadb/matcha/catalog"
	"github.com/matchadb/matcha/embed"
)

// Searcher is the slice of the store the matcher needs. *matcha.Store
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, space string, query []float32, topK int) ([]matcha.SearchHit, error)
}

// ProductMatch is one resolved search hit.
type ProductMatch struct {
	ID       string
	Name     string
	Category string
	ImageRef string
	Score    float32
}

// Result is the outcome of a match request. Matches holds at most topK
// entries in non-increasing score order; dropped hits are not counted
// anywhere in the result.
type Result struct {
	Matches []ProductMatch
	Took    time.Duration
}

// Matcher resolves search hits into products. Safe for concurrent use.
type Matcher struct {
	searcher  Searcher
	resolver  catalog.Resolver
	embedders map[string]embed.Embedder
	logger    *matcha.Logger
	metrics   matcha.MetricsCollector
}

// Option configures New.
type Option func(*Matcher)

// WithLogger sets the logger. Defaults to a silent one.
func WithLogger(l *matcha.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op one.
func WithMetrics(mc matcha.MetricsCollector) Option {
	return func(m *Matcher) {
		if mc != nil {
			m.metrics = mc
		}
	}
}

// WithEmbedder registers the embedder MatchText uses for a space.
func WithEmbedder(space string, e embed.Embedder) Option {
	return func(m *Matcher) {
		if e != nil {
			m.embedders[space] = e
		}
	}
}

// New creates a Matcher over a store and a catalog resolver. Both are
// required; New panics when either is nil.
func New(searcher Searcher, resolver catalog.Resolver, optFns ...Option) *Matcher {
	if searcher == nil {
		panic("match: searcher is nil")
	}
	if resolver == nil {
		panic("match: resolver is nil")
	}

	m := &Matcher{
		searcher:  searcher,
		resolver:  resolver,
		embedders: make(map[string]embed.Embedder),
		logger:    matcha.NoopLogger(),
		metrics:   matcha.NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(m)
	}
	return m
}

// Match searches a space and resolves the hits against the catalog.
// Search errors pass through unchanged. Unresolvable hits are skipped;
// resolver failures other than catalog.ErrNotFound abort the request as
// an ErrUnavailable-category error.
func (m *Matcher) Match(ctx context.Context, space string, query []float32, topK int) (*Result, error) {
	start := time.Now()

	res, hits, err := func() (*Result, int, error) {
		hits, err := m.searcher.Search(ctx, space, query, topK)
		if err != nil {
			return nil, 0, err
		}

		matches := make([]ProductMatch, 0, len(hits))
		for _, hit := range hits {
			key := hit.Payload.JoinKey
			if key == "" {
				m.logger.LogResolveMiss(ctx, space, uint64(hit.ID), key, "no join key")
				m.metrics.RecordResolutionMiss()
				continue
			}

			p, err := m.resolver.Resolve(ctx, key)
			if errors.Is(err, catalog.ErrNotFound) {
				m.logger.LogResolveMiss(ctx, space, uint64(hit.ID), key, "not in catalog")
				m.metrics.RecordResolutionMiss()
				continue
			}
			if err != nil {
				return nil, len(hits), &matcha.UnavailableError{Op: "resolve " + key, Err: err}
			}

			matches = append(matches, ProductMatch{
				ID:       p.ID,
				Name:     p.Name,
				Category: p.Category,
				ImageRef: p.ImageRef,
				Score:    hit.Score,
			})
		}
		return &Result{Matches: matches}, len(hits), nil
	}()
	duration := time.Since(start)

	matched := 0
	if res != nil {
		res.Took = duration
		matched = len(res.Matches)
	}
	m.metrics.RecordMatch(matched, duration, err)
	m.logger.LogMatch(ctx, space, topK, hits, matched, duration, err)
	return res, err
}

// MatchText embeds a text query with the embedder registered for the
// space, then delegates to Match. Requesting a space without a
// registered embedder is a contract violation; an embedding failure is
// an ErrUnavailable-category error.
func (m *Matcher) MatchText(ctx context.Context, space, text string, topK int) (*Result, error) {
	e, ok := m.embedders[space]
	if !ok {
		return nil, fmt.Errorf("no embedder registered for space %q: %w", space, matcha.ErrContractViolation)
	}

	query, err := e.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embed.ErrEmptyInput) {
			return nil, fmt.Errorf("embed query: %w: %w", err, matcha.ErrContractViolation)
		}
		return nil, &matcha.UnavailableError{Op: "embed query", Err: err}
	}

	return m.Match(ctx, space, query, topK)
}
