package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Memory is a process-local Records implementation. It is the fallback when
// the database cannot be opened: state then lives only for the session.
type Memory struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) PutRecord(key string, v any) error {
	if key == "" {
		return errors.New("record key must not be empty")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	m.mu.Lock()
	m.records[key] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetRecord(key string, v any) (bool, error) {
	m.mu.Lock()
	data, ok := m.records[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) DeleteRecord(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(m.records, key)
	return nil
}
