package storage

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinioPresignerDownloadURL(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	p := &MinioPresigner{client: client, bucketName: "quckchat-files", expiry: 15 * time.Minute}
	u, err := p.DownloadURL(context.Background(), "files/w1/abc")
	require.NoError(t, err)

	assert.Contains(t, u, "/quckchat-files/files/w1/abc")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=900")
}
