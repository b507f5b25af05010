package docserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// document is a stored document as raw JSON fields, so partial upserts can
// merge without knowing the schema.
type document map[string]json.RawMessage

type memStore struct {
	mu sync.RWMutex
	// user -> collection -> id -> document
	users map[string]map[string]map[string]document
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]map[string]map[string]document)}
}

// upsert merges every posted document into the collection. The batch is
// validated as a whole before anything is written.
func (m *memStore) upsert(user, collection string, docs []map[string]json.RawMessage) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.users[user][collection]

	merged := make([]document, 0, len(docs))
	for i, posted := range docs {
		id, err := stringField(posted, "id")
		if err != nil || id == "" {
			return 0, fmt.Errorf("document %d: id is required", i)
		}

		next := make(document, len(posted))
		for k, v := range coll[id] {
			next[k] = v
		}
		for k, v := range posted {
			next[k] = v
		}
		if _, err := next.updatedAt(); err != nil {
			return 0, fmt.Errorf("document %q: %w", id, err)
		}
		merged = append(merged, next)
	}

	if m.users[user] == nil {
		m.users[user] = make(map[string]map[string]document)
	}
	if m.users[user][collection] == nil {
		m.users[user][collection] = make(map[string]document)
	}
	for _, doc := range merged {
		id, _ := stringField(doc, "id")
		m.users[user][collection][id] = doc
	}
	return len(merged), nil
}

// since returns documents with updated_at at or after t, oldest first.
func (m *memStore) since(user, collection string, t time.Time) []document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type stamped struct {
		doc document
		at  time.Time
		id  string
	}
	var hits []stamped
	for id, doc := range m.users[user][collection] {
		at, err := doc.updatedAt()
		if err != nil || at.Before(t) {
			continue
		}
		hits = append(hits, stamped{doc: doc, at: at, id: id})
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].at.Equal(hits[j].at) {
			return hits[i].at.Before(hits[j].at)
		}
		return hits[i].id < hits[j].id
	})

	out := make([]document, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.doc)
	}
	return out
}

func (d document) updatedAt() (time.Time, error) {
	raw, err := stringField(d, "updated_at")
	if err != nil {
		return time.Time{}, errors.New("updated_at is required")
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("updated_at: %w", err)
	}
	return t, nil
}

func stringField(d map[string]json.RawMessage, key string) (string, error) {
	raw, ok := d[key]
	if !ok {
		return "", fmt.Errorf("%s missing", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}
