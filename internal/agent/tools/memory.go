package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/soyeahso/agentcore/internal/store"
)

// DefaultUserID owns memories when the model does not name a user.
const DefaultUserID = "default"

// MemoryBackend is the subset of store.MemoryStore the memory tool uses.
type MemoryBackend interface {
	Store(ctx context.Context, chunk store.MemoryChunk) (*store.MemoryChunk, error)
	Search(ctx context.Context, ownerID, query string, limit int) ([]store.MemoryChunk, error)
	List(ctx context.Context, ownerID, category string, limit int) ([]store.MemoryChunk, error)
	Get(ctx context.Context, id string) (*store.MemoryChunk, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// Memory stores and recalls facts about a user across invocations.
type Memory struct {
	backend MemoryBackend
	agentID string
}

// NewMemory returns the memory tool backed by b. agentID tags stored chunks.
func NewMemory(b MemoryBackend, agentID string) *Memory {
	return &Memory{backend: b, agentID: agentID}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Description() string {
	return "Remember information about a user. " +
		"action=store saves content; action=retrieve searches saved memories with query; " +
		"action=list returns the most recent memories; action=delete removes one by memory_id; " +
		"action=forget removes every memory of user_id. " +
		"Always pass the same user_id for the same person."
}

func (m *Memory) InputSchema() string {
	return `{"type":"object","properties":{` +
		`"action":{"type":"string","enum":["store","retrieve","list","delete","forget"]},` +
		`"user_id":{"type":"string","description":"Identifier of the user the memory belongs to"},` +
		`"content":{"type":"string","description":"Text to remember (store)"},` +
		`"category":{"type":"string","description":"Optional grouping such as preferences or facts"},` +
		`"query":{"type":"string","description":"Search text (retrieve)"},` +
		`"memory_id":{"type":"string","description":"Memory to remove (delete)"},` +
		`"limit":{"type":"integer","minimum":1,"maximum":50}` +
		`},"required":["action"]}`
}

type memoryInput struct {
	Action   string `json:"action"`
	UserID   string `json:"user_id"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Query    string `json:"query"`
	MemoryID string `json:"memory_id"`
	Limit    int    `json:"limit"`
}

type memoryRecord struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Created  string `json:"created"`
}

// Execute dispatches on the action field and returns JSON.
func (m *Memory) Execute(ctx context.Context, input string) (string, error) {
	var in memoryInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	explicitUser := in.UserID != ""
	if in.UserID == "" {
		in.UserID = DefaultUserID
	}
	if in.Limit <= 0 || in.Limit > 50 {
		in.Limit = 10
	}

	switch strings.ToLower(in.Action) {
	case "store":
		if strings.TrimSpace(in.Content) == "" {
			return "", errors.New("content is required to store a memory")
		}
		chunk, err := m.backend.Store(ctx, store.MemoryChunk{
			OwnerID:  in.UserID,
			AgentID:  m.agentID,
			Category: in.Category,
			Content:  in.Content,
		})
		if err != nil {
			return "", fmt.Errorf("storing memory: %w", err)
		}
		return marshal(map[string]any{"status": "stored", "id": chunk.ID})

	case "retrieve", "search":
		if strings.TrimSpace(in.Query) == "" {
			return "", errors.New("query is required to retrieve memories")
		}
		chunks, err := m.backend.Search(ctx, in.UserID, in.Query, in.Limit)
		if err != nil {
			return "", fmt.Errorf("searching memories: %w", err)
		}
		return marshal(map[string]any{"memories": records(chunks)})

	case "list":
		chunks, err := m.backend.List(ctx, in.UserID, in.Category, in.Limit)
		if err != nil {
			return "", fmt.Errorf("listing memories: %w", err)
		}
		return marshal(map[string]any{"memories": records(chunks)})

	case "delete":
		if in.MemoryID == "" {
			return "", errors.New("memory_id is required to delete a memory")
		}
		chunk, err := m.backend.Get(ctx, in.MemoryID)
		if err != nil {
			return "", err
		}
		// Memories are scoped per user; never delete someone else's.
		if chunk.OwnerID != in.UserID {
			return "", store.ErrNotFound
		}
		if err := m.backend.Delete(ctx, in.MemoryID); err != nil {
			return "", err
		}
		return marshal(map[string]any{"status": "deleted", "id": in.MemoryID})

	case "forget":
		if !explicitUser {
			return "", errors.New("user_id is required to forget memories")
		}
		if err := m.backend.DeleteByOwner(ctx, in.UserID); err != nil {
			return "", fmt.Errorf("forgetting memories: %w", err)
		}
		return marshal(map[string]any{"status": "forgotten", "id": in.UserID})

	case "":
		return "", errors.New("action is required")
	default:
		return "", fmt.Errorf("unknown action %q", in.Action)
	}
}

func records(chunks []store.MemoryChunk) []memoryRecord {
	out := make([]memoryRecord, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, memoryRecord{
			ID:       c.ID,
			Content:  c.Content,
			Category: c.Category,
			Created:  c.CreatedAt.Format("2006-01-02"),
		})
	}
	return out
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
