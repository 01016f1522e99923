// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore,
// plus a DynamoDB-backed CommitStore for coordinating snapshot generations
// across concurrent writers.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := s3blob.New(s3.NewFromConfig(cfg), "my-bucket", "snapshots/")
//	err = db.SaveToBlobStore(ctx, store, "current.matcha")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads through the s3 manager for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//
// # Safe concurrent publishing
//
// S3 writes are last-writer-wins, so writers that race on one key can lose
// snapshots. CommitStore sidesteps this: each snapshot is uploaded under a
// unique key (SnapshotKey) and a DynamoDB conditional write advances the
// "latest" pointer with compare-and-swap semantics.
//
//	key := s3blob.SnapshotKey("snapshots")
//	if err := db.SaveToBlobStore(ctx, store, key); err != nil { ... }
//
//	_, gen, _ := commits.Latest(ctx)
//	if err := commits.Commit(ctx, key, gen); errors.Is(err, s3blob.ErrCommitConflict) {
//	    // another writer got there first; re-read Latest and retry
//	}
package s3
