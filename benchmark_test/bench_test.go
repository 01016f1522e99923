package benchmark_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/matchadb/matcha"
	"github.com/matchadb/matcha/testutil"
)

// Standard dimensions used across benchmarks for consistency.
const (
	dimSmall  = 128  // Fast CI benchmarks
	dimMedium = 768  // text-embedding-3-small scale
)

// Standard dataset sizes.
const (
	sizeSmall  = 1_000
	sizeMedium = 10_000
)

// Seed for deterministic benchmarks - enables reproducible comparisons.
const benchSeed = 42

func newBenchStore(b *testing.B, dim int) *matcha.Store {
	b.Helper()
	s, err := matcha.New().Space("image", dim).Build()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = s.Close() })
	return s
}

func fillStore(b *testing.B, s *matcha.Store, vecs [][]float32) {
	b.Helper()
	ctx := context.Background()

	items := make([]matcha.UpsertItem, len(vecs))
	for i, v := range vecs {
		items[i] = matcha.UpsertItem{
			Vectors: map[string][]float32{"image": v},
			Payload: matcha.Payload{JoinKey: fmt.Sprintf("sku-%d", i)},
		}
	}
	res, err := s.UpsertBatch(ctx, items)
	if err != nil {
		b.Fatal(err)
	}
	if res.Failed() > 0 {
		b.Fatalf("%d items rejected", res.Failed())
	}
}

func BenchmarkUpsert(b *testing.B) {
	ctx := context.Background()
	s := newBenchStore(b, dimSmall)
	rng := testutil.NewRNG(benchSeed)
	vec := rng.UnitVector(dimSmall)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		item := matcha.UpsertItem{
			ID:      matcha.ID(matcha.ItemID(i)),
			Vectors: map[string][]float32{"image": vec},
		}
		if _, err := s.Upsert(ctx, item); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUpsertBatch(b *testing.B) {
	for _, batch := range []int{32, 256} {
		b.Run(fmt.Sprintf("batch-%d", batch), func(b *testing.B) {
			ctx := context.Background()
			s := newBenchStore(b, dimSmall)
			rng := testutil.NewRNG(benchSeed)
			vecs := rng.UnitVectors(batch, dimSmall)

			items := make([]matcha.UpsertItem, batch)
			for i, v := range vecs {
				items[i] = matcha.UpsertItem{
					Vectors: map[string][]float32{"image": v},
				}
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for j := range items {
					items[j].ID = matcha.ID(matcha.ItemID(i*batch + j))
				}
				if _, err := s.UpsertBatch(ctx, items); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearch(b *testing.B) {
	for _, tc := range []struct {
		dim  int
		size int
	}{
		{dimSmall, sizeSmall},
		{dimSmall, sizeMedium},
		{dimMedium, sizeSmall},
	} {
		b.Run(fmt.Sprintf("dim-%d-size-%d", tc.dim, tc.size), func(b *testing.B) {
			ctx := context.Background()
			s := newBenchStore(b, tc.dim)
			rng := testutil.NewRNG(benchSeed)
			fillStore(b, s, rng.UnitVectors(tc.size, tc.dim))
			query := rng.UnitVector(tc.dim)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Search(ctx, "image", query, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	ctx := context.Background()
	s := newBenchStore(b, dimSmall)
	rng := testutil.NewRNG(benchSeed)
	fillStore(b, s, rng.UnitVectors(sizeMedium, dimSmall))
	query := rng.UnitVector(dimSmall)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.Search(ctx, "image", query, 10); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkSnapshotSave(b *testing.B) {
	for _, ct := range []matcha.CompressionType{
		matcha.CompressionNone,
		matcha.CompressionLZ4,
		matcha.CompressionZSTD,
	} {
		b.Run(ct.String(), func(b *testing.B) {
			ctx := context.Background()
			s, err := matcha.New().
				Space("image", dimSmall).
				Compression(ct).
				Build()
			if err != nil {
				b.Fatal(err)
			}
			b.Cleanup(func() { _ = s.Close() })

			rng := testutil.NewRNG(benchSeed)
			fillStore(b, s, rng.UnitVectors(sizeSmall, dimSmall))

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				var buf bytes.Buffer
				if err := s.SaveToWriter(ctx, &buf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSnapshotLoad(b *testing.B) {
	ctx := context.Background()
	s := newBenchStore(b, dimSmall)
	rng := testutil.NewRNG(benchSeed)
	fillStore(b, s, rng.UnitVectors(sizeSmall, dimSmall))

	var buf bytes.Buffer
	if err := s.SaveToWriter(ctx, &buf); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		loaded, err := matcha.LoadFromReader(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		_ = loaded.Close()
	}
}
