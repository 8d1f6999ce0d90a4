package cmdutil

import (
	"context"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/indexverify/reportstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
)

type reportConfig struct {
	localPath     string
	s3Bucket      string
	gcpBucket     string
	uploadTimeout time.Duration
}

var reportCfg = reportConfig{
	uploadTimeout: time.Minute,
}

func RegisterReportFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&reportCfg.localPath,
		"report-path",
		reportCfg.localPath,
		"directory to write a JSON lines report of the findings to",
	)
	cmd.PersistentFlags().StringVar(
		&reportCfg.s3Bucket,
		"report-s3-bucket",
		reportCfg.s3Bucket,
		"S3 bucket to upload a JSON lines report of the findings to",
	)
	cmd.PersistentFlags().StringVar(
		&reportCfg.gcpBucket,
		"report-gcp-bucket",
		reportCfg.gcpBucket,
		"GCS bucket to upload a JSON lines report of the findings to",
	)
	cmd.PersistentFlags().DurationVar(
		&reportCfg.uploadTimeout,
		"report-upload-timeout",
		reportCfg.uploadTimeout,
		"maximum time to spend uploading a report",
	)
}

// ReportUploadTimeout bounds the upload of each report.
func ReportUploadTimeout() time.Duration {
	return reportCfg.uploadTimeout
}

// ReportStores returns a store for each configured report destination.
func ReportStores(ctx context.Context, logger zerolog.Logger) ([]reportstore.Store, error) {
	var stores []reportstore.Store
	if reportCfg.localPath != "" {
		s, err := reportstore.NewLocalStore(logger, reportCfg.localPath)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if reportCfg.s3Bucket != "" {
		sess, err := session.NewSession()
		if err != nil {
			return nil, err
		}
		stores = append(stores, reportstore.NewS3Store(logger, sess, reportCfg.s3Bucket))
	}
	if reportCfg.gcpBucket != "" {
		creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadWrite)
		if err != nil {
			return nil, err
		}
		gcpClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		stores = append(stores, reportstore.NewGCPStore(logger, gcpClient, creds, reportCfg.gcpBucket))
	}
	return stores, nil
}
