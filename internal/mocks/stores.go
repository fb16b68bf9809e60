package mocks

import (
	"context"
	"sync"
)

// CodeStore is an in-memory single-use verification code store.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]string

	Err error
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]string)}
}

// Issue stores code for email, replacing any earlier one.
func (s *CodeStore) Issue(email, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
}

// Has reports whether a code is still pending for email.
func (s *CodeStore) Has(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.codes[email]
	return ok
}

func (s *CodeStore) Consume(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if code == "" {
		return false, nil
	}
	if stored, ok := s.codes[email]; ok && stored == code {
		delete(s.codes, email)
		return true, nil
	}
	return false, nil
}

// PublishedEvent is a recorded Publish call.
type PublishedEvent struct {
	Stream string
	Type   string
	Data   any
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	Err error
}

func (p *Publisher) Publish(_ context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Stream: stream, Type: eventType, Data: data})
	return nil
}

// Types returns the recorded event types in publish order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
