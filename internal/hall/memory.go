package hall

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	halls map[string]Hall
}

func NewMemoryRepository(seed ...Hall) *MemoryRepository {
	r := &MemoryRepository{halls: make(map[string]Hall)}
	for _, h := range seed {
		r.halls[h.ID] = clone(h)
	}
	return r
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Hall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.halls[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(h)
	return &out, nil
}

func (r *MemoryRepository) List(_ context.Context, activeOnly bool) ([]Hall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hall, 0, len(r.halls))
	for _, h := range r.halls {
		if activeOnly && !h.Active {
			continue
		}
		out = append(out, clone(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, h *Hall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(h.Name, h.ID) {
		return ErrDuplicateName
	}
	r.halls[h.ID] = clone(*h)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, h *Hall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.halls[h.ID]; !ok {
		return ErrNotFound
	}
	if r.nameTaken(h.Name, h.ID) {
		return ErrDuplicateName
	}
	r.halls[h.ID] = clone(*h)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.halls[id]; !ok {
		return ErrNotFound
	}
	delete(r.halls, id)
	return nil
}

func (r *MemoryRepository) nameTaken(name, exceptID string) bool {
	for id, h := range r.halls {
		if id != exceptID && strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

func clone(h Hall) Hall {
	h.Facilities = append([]string(nil), h.Facilities...)
	return h
}
