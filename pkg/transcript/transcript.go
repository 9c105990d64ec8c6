// Package transcript records what happened on an operation's channel and
// archives it once the operation has finished.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"
)

// ErrNotFound is returned when a transcript does not exist.
var ErrNotFound = errors.New("transcript: not found")

// Frame is one inbound payload, kept verbatim.
type Frame struct {
	At  time.Time `json:"at"`
	Raw string    `json:"raw"`
}

// Transcript is the record of one operation.
type Transcript struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ChannelURL string    `json:"channel_url"`
	Request    string    `json:"request"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Frames     []Frame   `json:"frames"`
	Outcome    string    `json:"outcome,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Record appends an inbound payload. A nil transcript ignores it.
func (t *Transcript) Record(at time.Time, raw []byte) {
	if t == nil {
		return
	}
	t.Frames = append(t.Frames, Frame{At: at, Raw: string(raw)})
}

// Finish stamps the outcome.
func (t *Transcript) Finish(at time.Time, outcome string, err error) {
	if t == nil {
		return
	}
	t.FinishedAt = at
	t.Outcome = outcome
	if err != nil {
		t.Error = err.Error()
	}
}

// Key returns the object key of t under prefix: prefix/yyyy/mm/dd/id.json,
// dated by the start time in UTC.
func Key(prefix string, t *Transcript) string {
	started := t.StartedAt.UTC()
	return path.Join(prefix,
		fmt.Sprintf("%04d", started.Year()),
		fmt.Sprintf("%02d", int(started.Month())),
		fmt.Sprintf("%02d", started.Day()),
		t.ID+".json")
}

// Store archives finished transcripts.
type Store interface {
	Save(ctx context.Context, t *Transcript) error
}

// MultiStore saves to every store in order and joins their errors.
type MultiStore []Store

// Save implements Store.
func (m MultiStore) Save(ctx context.Context, t *Transcript) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryStore keeps transcripts in memory.
type MemoryStore struct {
	mu          sync.Mutex
	transcripts map[string]*Transcript
	order       []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transcripts: make(map[string]*Transcript)}
}

// Save stores a copy of t.
func (s *MemoryStore) Save(_ context.Context, t *Transcript) error {
	clone := *t
	clone.Frames = append([]Frame(nil), t.Frames...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transcripts[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.transcripts[t.ID] = &clone
	return nil
}

// Get returns the transcript with the given ID.
func (s *MemoryStore) Get(id string) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// All returns the stored transcripts in save order.
func (s *MemoryStore) All() []*Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Transcript, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.transcripts[id])
	}
	return out
}
