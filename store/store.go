package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/convoflow-ai/convoflow/refine"
)

// Record is one completed conversation turn: the user's query, the answer
// that shipped, and enough loop metadata to audit how the answer was made.
type Record struct {
	ID               string          `json:"id" bson:"_id"`
	Query            string          `json:"query" bson:"query"`
	Answer           string          `json:"answer" bson:"answer"`
	IntentLabel      string          `json:"intent_label" bson:"intent_label"`
	IntentConfidence float64         `json:"intent_confidence" bson:"intent_confidence"`
	State            string          `json:"state" bson:"state"`
	Iterations       []IterationMeta `json:"iterations,omitempty" bson:"iterations,omitempty"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
}

// IterationMeta summarises one planner/critique cycle without storing the
// full intermediate drafts.
type IterationMeta struct {
	Iteration  int     `json:"iteration" bson:"iteration"`
	Overall    float64 `json:"overall" bson:"overall"`
	Approved   bool    `json:"approved" bson:"approved"`
	Feedback   string  `json:"feedback,omitempty" bson:"feedback,omitempty"`
	TokensUsed int     `json:"tokens_used" bson:"tokens_used"`
}

// Sink persists conversation records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Save(ctx context.Context, rec *Record) error
}

// recordIDGenerator hands out collision-free IDs under concurrent saves.
type recordIDGenerator struct {
	mu      sync.Mutex
	lastTs  int64
	counter int64
}

var defaultRecordIDs = &recordIDGenerator{}

func (g *recordIDGenerator) generate() string {
	now := time.Now().UnixNano()

	g.mu.Lock()
	defer g.mu.Unlock()
	if now > g.lastTs {
		g.lastTs = now
		g.counter = 0
		return fmt.Sprintf("rec:%d", now)
	}
	g.counter++
	return fmt.Sprintf("rec:%d_%d", g.lastTs, g.counter)
}

// NewRecord builds a record from a finished refinement session.
func NewRecord(session *refine.Session, intentLabel string, intentConfidence float64) *Record {
	rec := &Record{
		ID:               defaultRecordIDs.generate(),
		IntentLabel:      intentLabel,
		IntentConfidence: intentConfidence,
		CreatedAt:        time.Now(),
	}
	if session == nil {
		return rec
	}

	rec.Query = session.Query
	rec.Answer = session.FinalAnswer.Text
	rec.State = string(session.State)
	for _, it := range session.Iterations {
		rec.Iterations = append(rec.Iterations, IterationMeta{
			Iteration:  it.Draft.Iteration,
			Overall:    it.Critique.Overall,
			Approved:   it.Critique.Approved,
			Feedback:   it.Critique.Feedback,
			TokensUsed: it.Draft.TokensUsed,
		})
	}
	return rec
}

// InMemorySink keeps records in process memory. Useful for tests and for
// running without any external storage.
type InMemorySink struct {
	mu      sync.RWMutex
	records []*Record
}

// NewInMemorySink creates an empty in-memory sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Save appends the record.
func (s *InMemorySink) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a snapshot of everything saved so far, oldest first.
func (s *InMemorySink) Records() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of saved records.
func (s *InMemorySink) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes all saved records.
func (s *InMemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
