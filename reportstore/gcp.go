package reportstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

type gcpStore struct {
	logger    zerolog.Logger
	bucket    string
	creds     *google.Credentials
	newWriter func(ctx context.Context, bucket, key string) io.WriteCloser
}

func NewGCPStore(
	logger zerolog.Logger, client *storage.Client, creds *google.Credentials, bucket string,
) *gcpStore {
	return &gcpStore{
		logger: logger,
		bucket: bucket,
		creds:  creds,
		newWriter: func(ctx context.Context, bucket, key string) io.WriteCloser {
			return client.Bucket(bucket).Object(key).NewWriter(ctx)
		},
	}
}

func (s *gcpStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	logger := s.logger.With().Str("file", key).Logger()
	if s.creds != nil && s.creds.ProjectID != "" {
		logger = logger.With().Str("project", s.creds.ProjectID).Logger()
	}
	logger.Debug().Msgf("creating new file")
	wc := s.newWriter(ctx, s.bucket, key)
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	logger.Debug().Msgf("gcp file creation complete")
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}
