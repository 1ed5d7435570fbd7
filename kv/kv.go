// Package kv is the local durable storage the client keeps its draft and
// preferences in: string keys, string values, no cross-key transactions.
package kv

import (
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed storage.
var ErrClosed = errors.New("kv: storage closed")

// Storage is a string-keyed get/set/remove store.
type Storage interface {
	// Get returns the value under key and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Memory is a process-local Storage.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
