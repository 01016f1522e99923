// Package ingest bulk-loads product records into a matcha store.
//
// An Ingestor streams records from a Source, embeds their text fields,
// writes their products to a catalog, and upserts the resulting vector
// items in chunks. Failures are per record: a bad record lands in the
// report, the run continues. Chunks run concurrently under a bounded
// worker pool, optionally paced by a rate limiter.
package ingest

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/matchadb/matcha"
	"github.com/matchadb/matcha/catalog"
	"github.com/matchadb/matcha/embed"
)

// Record is one unit of ingestion. Vectors pass through as-is; Texts
// are embedded into spaces the record does not already carry a vector
// for. A record whose JoinKey is empty inherits its Product.ID.
type Record struct {
	JoinKey string
	Product catalog.Product
	Texts   map[string]string
	Vectors map[string][]float32
}

// Source streams records. A yielded non-nil error marks that single
// record as failed; iteration continues.
type Source interface {
	Records(ctx context.Context) iter.Seq2[Record, error]
}

// Outcome is the per-record result of a run.
type Outcome struct {
	JoinKey string
	ID      matcha.ItemID
	Err     error
}

// Report aggregates a run. Outcomes align with the source's record
// order.
type Report struct {
	Stored   int
	Failed   int
	Outcomes []Outcome
	Took     time.Duration
}

// Upserter is the slice of the store the ingestor needs. *matcha.Store
// satisfies it.
type Upserter interface {
	UpsertBatch(ctx context.Context, items []matcha.UpsertItem) (*matcha.UpsertResult, error)
}

// Ingestor drives batched ingestion runs. Safe for concurrent use; each
// Run is independent.
type Ingestor struct {
	store       Upserter
	cat         catalog.Writer
	embedders   map[string]embed.Embedder
	chunkSize   int
	concurrency int
	limiter     *rate.Limiter
	limit       int
	logger      *matcha.Logger
}

// Option configures New.
type Option func(*Ingestor)

// WithCatalog also writes each record's product to the catalog before
// upserting its vectors. Without it, products are ignored.
func WithCatalog(w catalog.Writer) Option {
	return func(in *Ingestor) { in.cat = w }
}

// WithEmbedder registers the embedder used for one space's text fields.
func WithEmbedder(space string, e embed.Embedder) Option {
	return func(in *Ingestor) {
		if e != nil {
			in.embedders[space] = e
		}
	}
}

// WithChunkSize sets how many records are embedded and upserted per
// chunk. Defaults to 32.
func WithChunkSize(n int) Option {
	return func(in *Ingestor) {
		if n > 0 {
			in.chunkSize = n
		}
	}
}

// WithConcurrency bounds how many chunks are processed in parallel.
// Defaults to 4.
func WithConcurrency(n int) Option {
	return func(in *Ingestor) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithRateLimit paces upserts at limit records per second with the
// given burst. Burst must be at least the chunk size or chunks will
// never clear the limiter.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(in *Ingestor) { in.limiter = rate.NewLimiter(limit, burst) }
}

// WithLimit stops a run after n records.
func WithLimit(n int) Option {
	return func(in *Ingestor) { in.limit = n }
}

// WithLogger sets the logger. Defaults to a silent one.
func WithLogger(l *matcha.Logger) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an Ingestor writing into store. Panics when store is nil.
func New(store Upserter, optFns ...Option) *Ingestor {
	if store == nil {
		panic("ingest: store is nil")
	}

	in := &Ingestor{
		store:       store,
		embedders:   make(map[string]embed.Embedder),
		chunkSize:   matcha.DefaultChunkSize,
		concurrency: 4,
		logger:      matcha.NoopLogger(),
	}
	for _, fn := range optFns {
		fn(in)
	}
	return in
}

// entry is a record in flight. err marks it failed before it reaches
// the store.
type entry struct {
	rec Record
	err error
}

// Run streams records from src until exhaustion (or the configured
// limit) and ingests them. The returned report covers every consumed
// record even when the run aborts; the error is non-nil only for
// whole-run failures such as cancellation or an unavailable store.
func (in *Ingestor) Run(ctx context.Context, src Source) (*Report, error) {
	start := time.Now()
	run := uuid.NewString()

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(in.concurrency))

	var (
		mu      sync.Mutex
		byChunk = make(map[int][]Outcome)
	)

	dispatch := func(idx int, entries []entry) {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			outs, err := in.processChunk(gctx, entries)
			mu.Lock()
			byChunk[idx] = outs
			mu.Unlock()
			return err
		})
	}

	chunkIdx := 0
	consumed := 0
	entries := make([]entry, 0, in.chunkSize)
	for rec, err := range src.Records(gctx) {
		entries = append(entries, entry{rec: rec, err: err})
		consumed++

		if len(entries) == in.chunkSize {
			dispatch(chunkIdx, entries)
			chunkIdx++
			entries = make([]entry, 0, in.chunkSize)
		}
		if in.limit > 0 && consumed >= in.limit {
			break
		}
	}
	if len(entries) > 0 {
		dispatch(chunkIdx, entries)
	}

	runErr := g.Wait()

	report := &Report{Took: time.Since(start)}
	idxs := make([]int, 0, len(byChunk))
	for idx := range byChunk {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		for _, out := range byChunk[idx] {
			if out.Err != nil {
				report.Failed++
			} else {
				report.Stored++
			}
			report.Outcomes = append(report.Outcomes, out)
		}
	}

	in.logger.LogIngest(ctx, run, report.Stored, report.Failed, report.Took, runErr)
	return report, runErr
}

// processChunk embeds, catalogs, and upserts one chunk. The returned
// outcomes align with entries; the error aborts the run.
func (in *Ingestor) processChunk(ctx context.Context, entries []entry) ([]Outcome, error) {
	vectors := in.embedChunk(ctx, entries)
	in.writeCatalog(ctx, entries)

	// Build the upsert batch from entries still alive.
	items := make([]matcha.UpsertItem, 0, len(entries))
	itemIdx := make([]int, 0, len(entries))
	for i, en := range entries {
		if en.err != nil {
			continue
		}
		items = append(items, matcha.UpsertItem{
			Vectors: vectors[i],
			Payload: payloadFor(en.rec),
		})
		itemIdx = append(itemIdx, i)
	}

	var res *matcha.UpsertResult
	var callErr error
	if len(items) > 0 {
		if in.limiter != nil {
			if err := in.limiter.WaitN(ctx, len(items)); err != nil {
				callErr = fmt.Errorf("rate limit: %w", err)
			}
		}
		if callErr == nil {
			res, callErr = in.store.UpsertBatch(ctx, items)
		}
	}

	outs := make([]Outcome, len(entries))
	for i, en := range entries {
		outs[i] = Outcome{JoinKey: joinKey(en.rec), Err: en.err}
	}
	if res != nil {
		for j, r := range res.Results {
			i := itemIdx[j]
			outs[i].ID = r.ID
			outs[i].Err = r.Err
		}
	} else if callErr != nil {
		for _, i := range itemIdx {
			outs[i].Err = callErr
		}
	}
	return outs, callErr
}

// embedChunk resolves each live entry's final vector set: pass-through
// vectors plus embeddings for its text fields. Embedding failures fail
// the affected entries, not the chunk.
func (in *Ingestor) embedChunk(ctx context.Context, entries []entry) []map[string][]float32 {
	vectors := make([]map[string][]float32, len(entries))
	for i, en := range entries {
		if en.err != nil {
			continue
		}
		merged := make(map[string][]float32, len(en.rec.Vectors)+len(en.rec.Texts))
		for space, vec := range en.rec.Vectors {
			merged[space] = vec
		}
		vectors[i] = merged

		for space := range en.rec.Texts {
			if _, ok := merged[space]; ok {
				continue
			}
			if _, ok := in.embedders[space]; !ok {
				entries[i].err = fmt.Errorf("text for space %q but no embedder registered: %w",
					space, matcha.ErrContractViolation)
				break
			}
		}
	}

	for space, e := range in.embedders {
		var idxs []int
		var texts []string
		for i, en := range entries {
			if en.err != nil {
				continue
			}
			text, ok := en.rec.Texts[space]
			if !ok {
				continue
			}
			if _, done := vectors[i][space]; done {
				continue
			}
			idxs = append(idxs, i)
			texts = append(texts, text)
		}
		if len(texts) == 0 {
			continue
		}

		vecs, err := e.EmbedBatch(ctx, texts)
		if err != nil {
			for _, i := range idxs {
				entries[i].err = &matcha.UnavailableError{Op: "embed " + space, Err: err}
			}
			continue
		}
		for j, i := range idxs {
			vectors[i][space] = vecs[j]
		}
	}
	return vectors
}

// writeCatalog persists the chunk's products. A failed batch write
// fails every entry that contributed a product.
func (in *Ingestor) writeCatalog(ctx context.Context, entries []entry) {
	if in.cat == nil {
		return
	}

	var idxs []int
	var products []catalog.Product
	for i, en := range entries {
		if en.err != nil || en.rec.Product.ID == "" {
			continue
		}
		idxs = append(idxs, i)
		products = append(products, en.rec.Product)
	}
	if len(products) == 0 {
		return
	}

	if err := in.cat.PutBatch(ctx, products); err != nil {
		for _, i := range idxs {
			entries[i].err = &matcha.UnavailableError{Op: "catalog put", Err: err}
		}
	}
}

func joinKey(rec Record) string {
	if rec.JoinKey != "" {
		return rec.JoinKey
	}
	return rec.Product.ID
}

func payloadFor(rec Record) matcha.Payload {
	p := matcha.Payload{JoinKey: joinKey(rec)}
	if rec.Product.Category != "" {
		p.Extra = map[string]string{"category": rec.Product.Category}
	}
	return p
}
