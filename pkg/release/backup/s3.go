package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const noSuchKey = "NoSuchKey"

type S3Config struct {
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	AccessKeyID     string `json:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key"`
	Region          string `json:"region"`
	Insecure        bool   `json:"insecure"`
}

type s3Storage struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Storage stores snapshots as objects in an S3 compatible bucket.
func NewS3Storage(cfg S3Config) (Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("set up S3 client: %w", err)
	}
	return &s3Storage{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *s3Storage) objectName(key string) string {
	return path.Join(s.prefix, key)
}

// Put refuses to overwrite an existing object.
func (s *s3Storage) Put(ctx context.Context, key string, data []byte) error {
	name := s.objectName(key)

	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, key)
	}
	if minio.ToErrorResponse(err).Code != noSuchKey {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/yaml",
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	return nil
}

func (s *s3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return nil, fmt.Errorf("download snapshot: %w", err)
	}

	return data, nil
}
