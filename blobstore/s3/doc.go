// Package s3 implements blobstore.Store on Amazon S3.
//
// # Usage
//
//	cfg, err := s3.LoadConfig(ctx, "eu-central-1")
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "vtable/")
//
// S3 has no compare-and-swap, so a journal that must not lose a CURRENT
// update to a concurrent writer wraps the store in a DDBCommitStore:
//
//	commits := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), "vtable-commits", "s3://my-bucket/vtable/")
package s3
