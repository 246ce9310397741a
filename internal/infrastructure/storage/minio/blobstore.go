package minio

import (
	"context"

	"github.com/moldex-io/moldex/internal/platform/logging"
)

// IngestionBlobStore adapts an ObjectRepository to the ingestion domain's
// BlobStore boundary, storing raw CSV uploads in the documents bucket.
type IngestionBlobStore struct {
	repo   ObjectRepository
	bucket string
	logger logging.Logger
}

// NewIngestionBlobStore builds an IngestionBlobStore against the given
// client's documents bucket.
func NewIngestionBlobStore(client *MinIOClient, repo ObjectRepository, logger logging.Logger) *IngestionBlobStore {
	return &IngestionBlobStore{
		repo:   repo,
		bucket: client.GetBucketName("documents"),
		logger: logger,
	}
}

// Put uploads data under key in the documents bucket.
func (s *IngestionBlobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.repo.Upload(ctx, &UploadRequest{
		Bucket:      s.bucket,
		ObjectKey:   key,
		Data:        data,
		ContentType: "text/csv",
	})
	if err != nil {
		return err
	}
	s.logger.Debug("ingestion blob stored", logging.String("key", key))
	return nil
}

// Get downloads the object stored under key from the documents bucket.
func (s *IngestionBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.repo.Download(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}
