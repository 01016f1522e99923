// Package matcha is an embedded, in-memory vector store for product
// matching: it keeps dense embeddings in named, fixed-dimension vector
// spaces, serves exact cosine nearest-neighbor search, and joins hits
// back to catalog records through an opaque payload key.
//
// # Quick Start
//
//	ctx := context.Background()
//	store, _ := matcha.New().
//	    Space("image", 768).
//	    Space("text", 384).
//	    Build()
//
//	id, _ := store.Upsert(ctx, matcha.UpsertItem{
//	    Vectors: map[string][]float32{"image": imageVec},
//	    Payload: matcha.Payload{JoinKey: "sku-1042"},
//	})
//
//	hits, _ := store.Search(ctx, "image", queryVec, 10)
//	for _, h := range hits {
//	    fmt.Println(h.ID, h.Score, h.Payload.JoinKey)
//	}
//
// # Vector Spaces
//
// A space pairs a name with a fixed dimensionality; every vector
// written to or queried against it must have exactly that many
// components. One item may carry vectors in several spaces (an image
// embedding and a text embedding of the same product), all addressed by
// a single item ID. Vectors are L2-normalized on write, so the dot
// product at query time is cosine similarity.
//
// # Batches
//
// UpsertBatch and DeleteBatch validate per item: a rejected item
// reports its error in the result and leaves the store unchanged while
// the rest of the batch proceeds. Readers never block behind writers;
// large batches become visible in chunks.
//
// # Snapshots
//
// The full store state can be saved to and loaded from an io.Writer, a
// file, or a blobstore.BlobStore (local disk, S3, MinIO, in-memory).
// Snapshots are self-describing, checksummed, and compressed. A store
// built with SnapshotStore loads its initial state lazily on first use,
// or eagerly via EnsureReady.
//
// # Matching
//
// The match subpackage turns raw search hits into resolved catalog
// products, and the ingest subpackage streams records from external
// sources into the store. Both build on this package's primitives.
package matcha
