package docstore

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Op names a store operation for hooks and write records.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpUpdate Op = "update"
)

// Hook runs before every MemoryStore operation. A non-nil error aborts the
// operation and is returned to the caller. Hooks may block.
type Hook func(ctx context.Context, op Op, collection, id string) error

// Write records a mutation that reached a MemoryStore.
type Write struct {
	Op         Op
	Collection string
	ID         string
	Update     Update
}

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	clock clockwork.Clock

	mu     sync.Mutex
	docs   map[string]Document
	hook   Hook
	writes []Write
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. Server timestamps come from clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock: clock,
		docs:  make(map[string]Document),
	}
}

// SetHook installs h, replacing any previous hook. nil removes it.
func (s *MemoryStore) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Writes returns the mutations applied so far.
func (s *MemoryStore) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.writes))
	copy(out, s.writes)
	return out
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := s.runHook(ctx, OpGet, collection, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Document) error {
	if err := s.runHook(ctx, OpSet, collection, id); err != nil {
		return err
	}

	resolved, err := resolve(doc, s.clock.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key(collection, id)] = resolved
	s.writes = append(s.writes, Write{Op: OpSet, Collection: collection, ID: id, Update: Update(doc)})
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, update Update) error {
	if err := s.runHook(ctx, OpUpdate, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key(collection, id)]
	if !ok {
		return ErrNotFound
	}

	next := cloneDocument(doc)
	if err := Apply(next, update, s.clock.Now()); err != nil {
		return err
	}

	s.docs[key(collection, id)] = next
	s.writes = append(s.writes, Write{Op: OpUpdate, Collection: collection, ID: id, Update: update})
	return nil
}

func (s *MemoryStore) runHook(ctx context.Context, op Op, collection, id string) error {
	s.mu.Lock()
	h := s.hook
	s.mu.Unlock()

	if h == nil {
		return ctx.Err()
	}
	return h(ctx, op, collection, id)
}

func key(collection, id string) string {
	return collection + "/" + id
}
