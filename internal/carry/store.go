// Package carry stores the program one level hands to the next.
//
// A level with carry_to saves the learner's source after a successful run;
// a later level with carry_from starts from it. The blob is opaque here.
package carry

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when nothing was carried.
var ErrNotFound = errors.New("carry: not found")

// Store keeps one blob per session and key.
type Store interface {
	Put(ctx context.Context, sessionID, key, blob string) error
	Get(ctx context.Context, sessionID, key string) (string, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]string)}
}

func memoryKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}

// Put replaces the blob for sessionID and key.
func (m *Memory) Put(_ context.Context, sessionID, key, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[memoryKey(sessionID, key)] = blob
	return nil
}

// Get returns the blob for sessionID and key, or ErrNotFound.
func (m *Memory) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[memoryKey(sessionID, key)]
	if !ok {
		return "", ErrNotFound
	}
	return blob, nil
}
