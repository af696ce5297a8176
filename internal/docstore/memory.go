package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with optimistic concurrency control.
// Every path carries a version counter that survives deletion, so a
// transaction that read "absent" conflicts with a concurrent create.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	versions map[string]uint64
	opts     options
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string][]byte),
		versions: make(map[string]uint64),
		opts:     buildOptions(opts),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, path string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	body, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Doc
	for path, body := range s.docs {
		rest, ok := strings.CutPrefix(path, prefix+"/")
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		docs = append(docs, Doc{Path: path, Body: append([]byte(nil), body...)})
	}
	return docs, nil
}

// RunTransaction implements Store.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 1; attempt <= s.opts.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 && s.opts.onRerun != nil {
			s.opts.onRerun()
		}

		tx := &memTx{store: s, reads: make(map[string]uint64)}
		if err := fn(tx); err != nil {
			return err
		}
		if s.commit(tx) {
			return nil
		}
	}
	return ErrConflictExhausted
}

// commit validates the read set against current versions and applies the
// staged writes, all under one lock.
func (s *MemoryStore) commit(tx *memTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, ver := range tx.reads {
		if s.versions[path] != ver {
			return false
		}
	}
	for _, w := range tx.writes {
		_, exists := s.docs[w.path]
		if w.create && exists {
			return false
		}
		if !w.create && !exists {
			return false
		}
	}
	for _, w := range tx.writes {
		s.docs[w.path] = w.body
		s.versions[w.path]++
	}
	return true
}

// Delete implements Store. Documents under the path's sub-collections go
// with it.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[path]; !ok {
		return ErrNotFound
	}
	delete(s.docs, path)
	s.versions[path]++
	for p := range s.docs {
		if strings.HasPrefix(p, path+"/") {
			delete(s.docs, p)
			s.versions[p]++
		}
	}
	return nil
}

// AddMember implements Store.
func (s *MemoryStore) AddMember(ctx context.Context, path, field, member string) error {
	return s.updateSet(ctx, path, field, func(set []string) ([]string, bool) {
		for _, m := range set {
			if m == member {
				return set, false
			}
		}
		return append(set, member), true
	})
}

// RemoveMember implements Store.
func (s *MemoryStore) RemoveMember(ctx context.Context, path, field, member string) error {
	return s.updateSet(ctx, path, field, func(set []string) ([]string, bool) {
		for i, m := range set {
			if m == member {
				return append(set[:i], set[i+1:]...), true
			}
		}
		return set, false
	})
}

func (s *MemoryStore) updateSet(ctx context.Context, path, field string, mutate func([]string) ([]string, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	body, ok := s.docs[path]
	if !ok {
		return ErrNotFound
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	var set []string
	if raw, ok := doc[field]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &set); err != nil {
			return fmt.Errorf("decode %s.%s: %w", path, field, err)
		}
	}

	set, changed := mutate(set)
	if !changed {
		return nil
	}
	if set == nil {
		set = []string{}
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode %s.%s: %w", path, field, err)
	}
	doc[field] = raw
	body, err = json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	s.docs[path] = body
	s.versions[path]++
	return nil
}

type stagedWrite struct {
	path   string
	body   []byte
	create bool
}

type memTx struct {
	store  *MemoryStore
	reads  map[string]uint64
	writes []stagedWrite
}

func (t *memTx) Get(path string, dst any) error {
	if len(t.writes) > 0 {
		return ErrReadAfterWrite
	}
	t.store.mu.RLock()
	body, ok := t.store.docs[path]
	ver := t.store.versions[path]
	t.store.mu.RUnlock()

	// Record the version even when absent: a concurrent create of this
	// path must abort the commit.
	t.reads[path] = ver
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (t *memTx) Create(path string, v any) error {
	return t.stage(path, v, true)
}

func (t *memTx) Update(path string, v any) error {
	return t.stage(path, v, false)
}

func (t *memTx) stage(path string, v any, create bool) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	t.writes = append(t.writes, stagedWrite{path: path, body: body, create: create})
	return nil
}
