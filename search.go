package matcha

import (
	"context"
	"time"

	"github.com/matchadb/matcha/internal/math32"
)

// Search returns up to topK nearest neighbors of query in the named
// space, ordered by descending cosine similarity. Hits carry the
// payload of the state version the search ran against. Searching an
// empty space returns an empty result and no error; fewer than topK
// stored vectors return fewer hits.
func (s *Store) Search(ctx context.Context, space string, query []float32, topK int) ([]SearchHit, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	hits, err := func() ([]SearchHit, error) {
		if err := s.ensureReady(ctx); err != nil {
			return nil, err
		}
		if topK < 1 {
			return nil, ErrInvalidTopK
		}

		st := s.state.Load()
		spec, ok := st.specs[space]
		if !ok {
			return nil, &UnknownSpaceError{Space: space}
		}
		if len(query) != spec.Dimension {
			return nil, &DimensionMismatchError{Space: space, Expected: spec.Dimension, Actual: len(query)}
		}
		unit, ok := math32.NormalizeL2Copy(query)
		if !ok {
			return nil, &InvalidVectorError{Space: space, Reason: "zero norm query"}
		}

		raw, err := st.indexes[space].Search(unit, topK)
		if err != nil {
			return nil, translateError(err)
		}

		out := make([]SearchHit, len(raw))
		for i, h := range raw {
			out[i] = SearchHit{
				ID:      ItemID(h.ID),
				Score:   h.Score,
				Payload: st.payloads[ItemID(h.ID)].clone(),
			}
		}
		return out, nil
	}()

	duration := time.Since(start)
	s.opts.metricsCollector.RecordSearch(topK, duration, err)
	s.opts.logger.LogSearch(ctx, space, topK, len(hits), duration, err)
	return hits, err
}
