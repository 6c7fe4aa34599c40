// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package research implements the evidence pipeline: gathering
// question-conditioned chunk summaries into a session and synthesizing
// a cited answer from them.
package research

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Context is one piece of gathered evidence: a chunk paired with its
// question-specific summary, relevance score, and formatted citation.
// Immutable once scored.
type Context struct {
	Chunk    corpus.Chunk
	Summary  string
	Score    float64
	Citation string
}

// Answer is a synthesized answer with its bibliography.
type Answer struct {
	Text         string
	Bibliography []string

	// Stale marks an answer that predates the session's newest
	// evidence. A gather call after synthesis retains the answer but
	// flags it; the next synthesis replaces it.
	Stale bool
}

// Usage accumulates collaborator consumption across a session's
// lifetime.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Calls        int
	CostUSD      float64
}

// State describes where a session is in its lifecycle.
type State string

const (
	StateEmpty     State = "empty"
	StateGathering State = "gathering"
	StateAnswered  State = "answered"
)

// Session accumulates the evidence and answer for one question across
// repeated gather/answer calls. It is owned by its caller for the
// lifetime of the conversation; nothing destroys it implicitly.
//
// Gather and synthesize are mutually exclusive per session: the
// operation lock is acquired with try-lock semantics and a concurrent
// second call is rejected with a busy error rather than queued.
type Session struct {
	ID        string
	Question  string
	CreatedAt time.Time

	// opMu serializes gather/synthesize calls. Held for the whole
	// operation, including collaborator round trips.
	opMu sync.Mutex

	// mu guards the fields below for short reads and writes.
	mu        sync.RWMutex
	contexts  []Context
	byChunk   map[string]struct{}
	answer    *Answer
	usage     Usage
	updatedAt time.Time
}

// NewSession creates a session for the given question.
func NewSession(question string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Question:  question,
		CreatedAt: now,
		byChunk:   make(map[string]struct{}),
		updatedAt: now,
	}
}

// beginOp acquires the operation lock or fails with a busy error.
func (s *Session) beginOp(op string) error {
	if !s.opMu.TryLock() {
		return cserr.New(cserr.CodeSessionBusy,
			"another gather or answer call is in flight on this session",
			cserr.FieldSessionID(s.ID),
			cserr.Field("operation", op),
		)
	}
	return nil
}

func (s *Session) endOp() {
	s.opMu.Unlock()
}

// HasChunk reports whether evidence for the chunk id is already present.
func (s *Session) HasChunk(chunkID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byChunk[chunkID]
	return ok
}

// Contexts returns a copy of the gathered evidence in gather order.
func (s *Session) Contexts() []Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Context, len(s.contexts))
	copy(out, s.contexts)
	return out
}

// ContextCount returns the number of gathered contexts.
func (s *Session) ContextCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// merge appends fully formed contexts, dropping any whose chunk id is
// already present. Returns how many were actually added. If an answer
// exists and new evidence arrived, the answer is marked stale.
func (s *Session) merge(contexts []Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range contexts {
		if _, ok := s.byChunk[c.Chunk.ID]; ok {
			continue
		}
		s.byChunk[c.Chunk.ID] = struct{}{}
		s.contexts = append(s.contexts, c)
		added++
	}

	if added > 0 {
		if s.answer != nil {
			s.answer.Stale = true
		}
		s.updatedAt = time.Now()
	}
	return added
}

// setAnswer stores a fresh answer.
func (s *Session) setAnswer(a Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Stale = false
	s.answer = &a
	s.updatedAt = time.Now()
}

// Answer returns the current answer, if any.
func (s *Session) Answer() (Answer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.answer == nil {
		return Answer{}, false
	}
	return *s.answer, true
}

// recordUsage adds collaborator consumption to the session counters.
func (s *Session) recordUsage(u provider.Usage, costUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.InputTokens += u.InputTokens
	s.usage.OutputTokens += u.OutputTokens
	s.usage.Calls++
	s.usage.CostUSD += costUSD
}

// Usage returns the accumulated counters.
func (s *Session) Usage() Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}

// State derives the lifecycle state from session contents.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.answer != nil:
		return StateAnswered
	case len(s.contexts) > 0:
		return StateGathering
	default:
		return StateEmpty
	}
}

// UpdatedAt returns the last mutation time.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Manager owns the live sessions of a process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create starts a new session for a question.
func (m *Manager) Create(question string) *Session {
	s := NewSession(question)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, cserr.New(cserr.CodeSessionNotFound, "no such session", cserr.FieldSessionID(id))
	}
	return s, nil
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
