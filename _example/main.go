package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/matchadb/matcha"
	"github.com/matchadb/matcha/testutil"
)

func main() {
	seed := int64(4711)
	dim := 128
	size := 50000
	k := 10

	ctx := context.Background()

	store := matcha.New().
		Space("image", dim).
		MustBuild()
	defer store.Close()

	rng := testutil.NewRNG(seed)
	vecs := rng.UnitVectors(size, dim)

	items := make([]matcha.UpsertItem, 0, size)
	for i, v := range vecs {
		items = append(items, matcha.UpsertItem{
			Vectors: map[string][]float32{"image": v},
			Payload: matcha.Payload{JoinKey: fmt.Sprintf("sku-%d", i)},
		})
	}

	query := rng.UnitVector(dim)

	fmt.Println("--- Upsert ---")
	fmt.Println("Dimension:", dim)
	fmt.Println("Size:", size)

	start := time.Now()

	res, err := store.UpsertBatch(ctx, items)
	if err != nil {
		log.Fatal(err)
	}
	if res.Failed() > 0 {
		log.Fatalf("%d items rejected", res.Failed())
	}

	end := time.Since(start)

	fmt.Printf("Seconds: %.2f\n\n", end.Seconds())

	stats := store.Stats()
	fmt.Printf("Items: %d, NextID: %d\n\n", stats.Items, stats.NextID)

	fmt.Println("--- Search ---")

	start = time.Now()

	hits, err := store.Search(ctx, "image", query, k)
	if err != nil {
		log.Fatal(err)
	}

	end = time.Since(start)

	printHits(hits)

	fmt.Printf("Seconds: %.8f\n", end.Seconds())
}

func printHits(hits []matcha.SearchHit) {
	for _, h := range hits {
		fmt.Printf("ID: %d, Score: %.4f, JoinKey: %s\n", h.ID, h.Score, h.Payload.JoinKey)
	}
}
