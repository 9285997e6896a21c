package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/convoflow-ai/convoflow/message"
)

type countingClient struct {
	calls atomic.Int64
	block chan struct{}
	err   error
}

func (c *countingClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	return &GenerateResponse{
		Message:    message.NewMessage(message.RoleAssistant, "answer"),
		TokensUsed: 5,
	}, nil
}

func req(text string) *GenerateRequest {
	return &GenerateRequest{
		Messages:    []*message.Message{message.NewMessage(message.RoleUser, text)},
		Temperature: 0.2,
		MaxTokens:   128,
	}
}

func TestCachedClientServesRepeatFromCache(t *testing.T) {
	inner := &countingClient{}
	cached := NewCachedClient(inner)

	ctx := context.Background()
	if _, err := cached.Generate(ctx, req("hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.Generate(ctx, req("hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
	if cached.Len() != 1 {
		t.Errorf("expected 1 cached entry, got %d", cached.Len())
	}
}

func TestCachedClientDistinctParamsMiss(t *testing.T) {
	inner := &countingClient{}
	cached := NewCachedClient(inner)

	ctx := context.Background()
	r1 := req("hi")
	r2 := req("hi")
	r2.Temperature = 0.9

	cached.Generate(ctx, r1)
	cached.Generate(ctx, r2)

	if got := inner.calls.Load(); got != 2 {
		t.Errorf("expected 2 upstream calls for distinct params, got %d", got)
	}
}

func TestCachedClientSingleFlight(t *testing.T) {
	inner := &countingClient{block: make(chan struct{})}
	cached := NewCachedClient(inner)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cached.Generate(ctx, req("same prompt"))
		}()
	}

	close(inner.block)
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("expected single in-flight upstream call, got %d", got)
	}
}

func TestCachedClientDoesNotCacheErrors(t *testing.T) {
	inner := &countingClient{err: errors.New("boom")}
	cached := NewCachedClient(inner)

	ctx := context.Background()
	if _, err := cached.Generate(ctx, req("hi")); err == nil {
		t.Fatal("expected error")
	}
	if cached.Len() != 0 {
		t.Errorf("expected no cached entries after error, got %d", cached.Len())
	}

	inner.err = nil
	if _, err := cached.Generate(ctx, req("hi")); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}
