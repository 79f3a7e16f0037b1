// Package minio implements blobstore.Store with the MinIO client, for MinIO
// and other S3-compatible servers (Ceph, Garage, SeaweedFS).
//
//	client, err := minioblob.NewClient("localhost:9000", "minioadmin", "minioadmin", false)
//	if err != nil {
//	    return err
//	}
//	store := minioblob.NewStore(client, "vtable", "snapshots-prod/")
package minio
