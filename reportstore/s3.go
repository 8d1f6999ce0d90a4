package reportstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/rs/zerolog"
)

type s3Store struct {
	logger   zerolog.Logger
	bucket   string
	uploader s3manageriface.UploaderAPI
}

func NewS3Store(logger zerolog.Logger, session *session.Session, bucket string) *s3Store {
	return newS3StoreWithUploader(logger, s3manager.NewUploader(session), bucket)
}

func newS3StoreWithUploader(logger zerolog.Logger, uploader s3manageriface.UploaderAPI, bucket string) *s3Store {
	return &s3Store{
		logger:   logger,
		bucket:   bucket,
		uploader: uploader,
	}
}

func (s *s3Store) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	s.logger.Debug().Str("file", key).Msgf("creating new file")
	if _, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}); err != nil {
		return "", err
	}
	s.logger.Debug().Str("file", key).Msgf("s3 file creation complete")
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
