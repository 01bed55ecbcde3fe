package models

import (
	"context"
	"sync"
	"time"
)

// FileURLGenerator interface for generating signed URLs
type FileURLGenerator interface {
	GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error)
}

var (
	urlGenerator FileURLGenerator
	registryMu   sync.RWMutex
)

// RegisterFileURLGenerator sets the URL generator used for brand logos
func RegisterFileURLGenerator(generator FileURLGenerator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	urlGenerator = generator
}

// SignedURL resolves path through the registered generator. With none
// registered it returns an empty URL.
func SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	registryMu.RLock()
	generator := urlGenerator
	registryMu.RUnlock()

	if generator == nil || path == "" {
		return "", nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return generator.GetSignedURL(ctx, path, ttl)
}
