// Package minio provides a blobstore.BlobStore backed by the MinIO client.
//
// MinIO is an S3-compatible object store, so this backend also works with
// Ceph, SeaweedFS, Garage and similar systems without pulling in the AWS
// SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.New(client, "my-bucket", "snapshots/")
//	err = db.SaveToBlobStore(ctx, store, "current.matcha")
package minio
