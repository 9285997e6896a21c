package store

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestMongoSink exercises the MongoDB sink against a live server.
// Set the MONGODB_URI environment variable to run it.
func TestMongoSink(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB sink tests")
	}

	config := &MongoConfig{
		URI:        mongoURI,
		Database:   "convoflow_test",
		Collection: "conversation_records_test",
	}

	sink, err := NewMongoSink(config)
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer sink.Close(context.Background())

	ctx := context.Background()
	sink.Clear(ctx)

	t.Run("save and get record", func(t *testing.T) {
		rec := &Record{
			ID:               "rec:test-1",
			Query:            "What is a VA loan?",
			Answer:           "A guaranteed mortgage.",
			IntentLabel:      "question",
			IntentConfidence: 0.9,
			State:            "approved",
			Iterations: []IterationMeta{
				{Iteration: 0, Overall: 0.9, Approved: true, TokensUsed: 50},
			},
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}

		if err := sink.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := sink.Get(ctx, rec.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Query != rec.Query || got.Answer != rec.Answer {
			t.Errorf("Get returned %+v, want %+v", got, rec)
		}
		if len(got.Iterations) != 1 {
			t.Errorf("iterations = %d, want 1", len(got.Iterations))
		}
	})

	t.Run("save is an upsert", func(t *testing.T) {
		rec := &Record{ID: "rec:test-1", Query: "updated", Answer: "updated", CreatedAt: time.Now()}
		if err := sink.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		count, err := sink.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Count = %d, want 1 after upsert", count)
		}
	})

	t.Run("list and clear", func(t *testing.T) {
		records, err := sink.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) == 0 {
			t.Error("List returned no records")
		}

		if err := sink.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		count, _ := sink.Count(ctx)
		if count != 0 {
			t.Errorf("Count = %d after Clear, want 0", count)
		}
	})
}
