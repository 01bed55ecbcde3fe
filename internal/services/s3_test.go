package services

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu       sync.Mutex
	requests []string
	status   int
	body     string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	status, body := b.status, b.body
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
		if r.Method == http.MethodDelete {
			status = http.StatusNoContent
		}
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestS3(t *testing.T) (*S3Service, *fakeBucket, string) {
	t.Helper()
	bucket := &fakeBucket{}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(srv.URL),
		UsePathStyle:     true,
		Credentials:      credentials.NewStaticCredentialsProvider("key", "secret", ""),
		RetryMaxAttempts: 1,
	})
	return newS3Service(client, "assets"), bucket, srv.URL
}

func TestS3PutObject(t *testing.T) {
	svc, bucket, _ := newTestS3(t)

	err := svc.PutObject(context.Background(), "orgs/o1/logo.png", bytes.NewReader([]byte("png")), 3, "image/png")
	require.NoError(t, err)

	assert.Equal(t, []string{"PUT /assets/orgs/o1/logo.png"}, bucket.requests)
}

func TestS3GetSignedURL(t *testing.T) {
	svc, _, base := newTestS3(t)

	url, err := svc.GetSignedURL(context.Background(), "orgs/o1/logo.png", 15*time.Minute)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, base+"/assets/orgs/o1/logo.png?"), url)
	assert.Contains(t, url, "X-Amz-Expires=900")
	assert.Contains(t, url, "X-Amz-Signature=")
}

func TestS3DeleteObject(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc, bucket, _ := newTestS3(t)
		require.NoError(t, svc.DeleteObject(context.Background(), "k"))
		assert.Equal(t, []string{"DELETE /assets/k"}, bucket.requests)
	})

	t.Run("missing counts as deleted", func(t *testing.T) {
		svc, bucket, _ := newTestS3(t)
		bucket.status = http.StatusNotFound
		bucket.body = `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>gone</Message></Error>`
		assert.NoError(t, svc.DeleteObject(context.Background(), "k"))
	})

	t.Run("denied", func(t *testing.T) {
		svc, bucket, _ := newTestS3(t)
		bucket.status = http.StatusForbidden
		bucket.body = `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>no</Message></Error>`
		assert.Error(t, svc.DeleteObject(context.Background(), "k"))
	})
}
