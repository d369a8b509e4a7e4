package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

const memScheme = "mem://"

// Memory is an in-memory Store, the stand-in for a remote object store in
// tests. It satisfies the exact same contract as Local.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}}
}

func (m *Memory) Store(name string, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read blob %q: %w", name, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("blob %q: read %d bytes, expected %d", name, len(data), size)
	}

	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
	return memScheme + name, nil
}

func (m *Memory) LocationOf(name string) (string, error) {
	m.mu.RLock()
	_, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("blob %q not stored", name)
	}
	return memScheme + name, nil
}

func (m *Memory) Open(location string) (io.ReadCloser, error) {
	name := strings.TrimPrefix(location, memScheme)
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no blob at %q", location)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
