package api

import (
	"context"
	"sync"

	"github.com/diogo/waychat/internal/models"
)

// MockCompleter is a Completer for tests. When Block is set, Complete waits
// for it to be closed (or ctx to end) before returning.
type MockCompleter struct {
	Reply string
	Err   error
	Block chan struct{}

	mu          sync.Mutex
	calls       int
	transcripts [][]models.Message
}

// Ensure MockCompleter implements Completer
var _ Completer = (*MockCompleter)(nil)

func (m *MockCompleter) Complete(ctx context.Context, transcript []models.Message) (string, error) {
	m.mu.Lock()
	m.calls++
	copied := make([]models.Message, len(transcript))
	copy(copied, transcript)
	m.transcripts = append(m.transcripts, copied)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reply, m.Err
}

// Calls returns how many times Complete was invoked
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastTranscript returns the transcript passed to the most recent call
func (m *MockCompleter) LastTranscript() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.transcripts) == 0 {
		return nil
	}
	return m.transcripts[len(m.transcripts)-1]
}

// Set updates the reply and error returned by later calls
func (m *MockCompleter) Set(reply string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reply = reply
	m.Err = err
}
