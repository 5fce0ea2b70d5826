// Package transcript holds the ordered, append-only conversation log sent to
// the completion service on every turn.
package transcript

import (
	"fmt"
	"sync"

	"github.com/diogo/waychat/internal/models"
)

// Store is an append-only sequence of messages. The first entry is always the
// system instruction it was created with; nothing is ever removed or reordered.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
}

// New creates a Store seeded with a single system message
func New(systemPrompt string) *Store {
	return &Store{
		messages: []models.Message{models.NewMessage(models.RoleSystem, systemPrompt)},
	}
}

// Append adds a user or assistant message to the end of the transcript.
// The system role is reserved for the seed entry.
func (s *Store) Append(role models.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	if role == models.RoleSystem {
		return fmt.Errorf("system message can only be set at construction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, models.NewMessage(role, content))
	return nil
}

// Snapshot returns a copy of the full ordered transcript
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Message, len(s.messages))
	copy(result, s.messages)
	return result
}

// Len returns the number of messages, including the system entry
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// System returns the seed instruction
func (s *Store) System() models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages[0]
}

// Last returns the most recent message
func (s *Store) Last() models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages[len(s.messages)-1]
}
