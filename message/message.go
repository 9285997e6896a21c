package message

import (
	"fmt"
	"sync"
	"time"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single message exchanged with an LLM
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a message with a generated ID and timestamp.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Text returns the textual content of the message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return m.Content
}

// idGenerator hands out unique IDs without calling time.Now more than needed.
type idGenerator struct {
	mu      sync.Mutex
	lastTs  int64
	counter int64
}

var defaultIDGenerator = &idGenerator{}

func generateID() string {
	return defaultIDGenerator.generate()
}

func (g *idGenerator) generate() string {
	now := time.Now().UnixNano()

	g.mu.Lock()
	defer g.mu.Unlock()
	if now > g.lastTs {
		g.lastTs = now
		g.counter = 0
		return fmt.Sprintf("msg_%d", now)
	}
	g.counter++
	return fmt.Sprintf("msg_%d_%d", g.lastTs, g.counter)
}
