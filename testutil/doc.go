// Package testutil provides testing utilities for matcha.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// top-k neighbors, and verifying search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 128)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.BruteForceTopK(vecs, query, 10)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, got)
package testutil
