// Package archive stores generated documents such as printed receipts.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound   = errors.New("archive: object not found")
	ErrInvalidKey = errors.New("archive: key must be a relative path")
)

// Object describes a stored document.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	StoredAt    time.Time `json:"storedAt"`
}

// Store writes and reads archived documents. Put overwrites existing keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, *Object, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

// InvoiceKey is where the printed receipt for invoiceNum lives.
func InvoiceKey(invoiceNum string) string {
	return "invoices/" + invoiceNum + ".html"
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func digest(body []byte) string {
	h := sha256.Sum256(body)
	return hex.EncodeToString(h[:])
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	meta Object
	body []byte
}

// MemoryStore is a thread-safe Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]storedObject
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]storedObject), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, body []byte) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	meta := Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(body)),
		SHA256:      digest(body),
		StoredAt:    m.now().UTC(),
	}
	m.mu.Lock()
	m.objects[key] = storedObject{meta: meta, body: bytes.Clone(body)}
	m.mu.Unlock()

	out := meta
	return &out, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, *Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	meta := obj.meta
	return bytes.Clone(obj.body), &meta, nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.objects))
	for k, obj := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, obj.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
