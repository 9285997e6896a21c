package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// CachedClient wraps a Client with a content-addressed response cache.
// Keys are derived from a hash of the full request (messages plus sampling
// parameters). Concurrent callers with the same key share one in-flight
// generation; cache entries are immutable once written.
type CachedClient struct {
	inner Client

	mu       sync.Mutex
	entries  map[string]*GenerateResponse
	inflight map[string]chan struct{}
}

// NewCachedClient wraps inner with an in-memory generation cache.
func NewCachedClient(inner Client) *CachedClient {
	return &CachedClient{
		inner:    inner,
		entries:  make(map[string]*GenerateResponse),
		inflight: make(map[string]chan struct{}),
	}
}

// Generate serves from cache when possible, otherwise delegates to the
// wrapped client. Errors are never cached.
func (c *CachedClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	key := requestKey(req)

	for {
		c.mu.Lock()
		if resp, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return resp, nil
		}
		wait, running := c.inflight[key]
		if !running {
			done := make(chan struct{})
			c.inflight[key] = done
			c.mu.Unlock()

			resp, err := c.inner.Generate(ctx, req)

			c.mu.Lock()
			delete(c.inflight, key)
			if err == nil {
				c.entries[key] = resp
			}
			c.mu.Unlock()
			close(done)
			return resp, err
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
			// Leader finished; loop to read the cache or take over on its failure.
		}
	}
}

// Len reports the number of cached responses.
func (c *CachedClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func requestKey(req *GenerateRequest) string {
	h := sha256.New()
	if req != nil {
		for _, msg := range req.Messages {
			fmt.Fprintf(h, "%s\x00%s\x00", msg.Role, msg.Content)
		}
		fmt.Fprintf(h, "t=%.4f|m=%d|j=%t", req.Temperature, req.MaxTokens, req.JSONMode)
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ Client = (*CachedClient)(nil)

// Describe returns a short diagnostic string for logs.
func (c *CachedClient) Describe() string {
	var b strings.Builder
	b.WriteString("cached-llm-client")
	fmt.Fprintf(&b, " entries=%d", c.Len())
	return b.String()
}
