package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutrabajo/apiserver/config"
)

func TestNewRejectsMissingConfiguration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := New(ctx, config.StorageConfig{Backend: "none"})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(ctx, config.StorageConfig{Backend: "s3"})
	require.ErrorContains(t, err, "unsupported storage backend")

	_, err = New(ctx, config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}})
	require.ErrorContains(t, err, "access key")

	_, err = New(ctx, config.StorageConfig{Backend: "gcs"})
	require.ErrorContains(t, err, "gcs bucket is required")
}

func TestNewMinioClientValidates(t *testing.T) {
	t.Parallel()

	_, err := NewMinioClient(config.MinioConfig{})
	require.ErrorContains(t, err, "endpoint")

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.ErrorContains(t, err, "bucket")

	client, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "cvs"})
	require.NoError(t, err)
	require.Equal(t, "cvs", client.Bucket())
}
