package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/render"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and makes sure the bucket exists
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// ReportKey is the object key of an analysis report
func ReportKey(r *triage.AnalysisResult) string {
	return fmt.Sprintf("reports/%s/%s.md", r.CreatedAt.UTC().Format("2006/01/02"), r.ID)
}

// PutReport uploads the markdown report and returns its URL
func (s *Store) PutReport(ctx context.Context, r *triage.AnalysisResult) (string, error) {
	body := []byte(render.Markdown(r))
	key := ReportKey(r)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		return "", err
	}
	// public URL (if bucket is public); private buckets need a presigned URL
	u := url.URL{Scheme: s.client.EndpointURL().Scheme, Host: s.client.EndpointURL().Host, Path: "/" + s.bucketName + "/" + key}
	return u.String(), nil
}

// Check reports whether the bucket is reachable
func (s *Store) Check(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucketName)
	}
	return nil
}
