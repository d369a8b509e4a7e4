package release

import (
	"fmt"
	"sync"
)

// MemoryHistory is an in-memory History used by tests and local tooling.
type MemoryHistory struct {
	mu       sync.RWMutex
	releases map[string][]Release
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{releases: map[string][]Release{}}
}

func key(account, app, deployment string) string {
	return fmt.Sprintf("%s/%s/%s", account, app, deployment)
}

// Commit appends a release to a deployment's history.
func (h *MemoryHistory) Commit(account, app, deployment string, r Release) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := key(account, app, deployment)
	h.releases[k] = append(h.releases[k], r)
}

func (h *MemoryHistory) Releases(account, app, deployment string) ([]Release, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.releases[key(account, app, deployment)]
	out := make([]Release, len(list))
	copy(out, list)
	return out, nil
}
