package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alialfonick-commits/loru/internal/aws"
)

// Store uploads byte payloads to the durable bucket. No retry: an upload
// failure is fatal for the item being processed.
type Store struct {
	client aws.S3API
	bucket string
	region string
}

func NewStore(client aws.S3API, bucket, region string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		region: region,
	}
}

// Put writes body under key and returns the canonical public address.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.URLFor(key), nil
}

// URLFor computes the public address for a key. Address construction lives
// here and nowhere else so reconciliation can recompute it later.
func (s *Store) URLFor(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// MediaKey is the bucket key for a captured recording.
func MediaKey(videoID string) string { return "audio/" + videoID + ".mp4" }

// ArtifactKey is the bucket key for the derived scannable code, in a
// namespace parallel to MediaKey.
func ArtifactKey(videoID string) string { return "qrcodes/" + videoID + ".png" }
