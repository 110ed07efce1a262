package reservation

import (
	"context"
	"sort"
	"sync"

	"hallbooking/internal/timerange"
)

// MemoryStore keeps reservations in process memory. Writes made inside InTx are
// staged and applied only when fn succeeds.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[string]Reservation
	history []HistoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Reservation)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, NotFoundError{Kind: "reservation", ID: id}
	}
	out := r.clone()
	return &out, nil
}

func (s *MemoryStore) ListBlocking(_ context.Context, hallID string, _ []timerange.Date) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reservation
	for _, r := range s.rows {
		if r.HallID == hallID && r.Status.Blocking() {
			out = append(out, r.clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reservation
	for _, r := range s.rows {
		if f.matches(&r) {
			out = append(out, r.clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) CountByHall(_ context.Context, hallID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rows {
		if r.HallID == hallID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) History(_ context.Context, reservationID string) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []HistoryEntry
	for _, h := range s.history {
		if h.ReservationID == reservationID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *MemoryStore) InTx(ctx context.Context, _ string, fn func(tx Tx) error) error {
	tx := &memTx{base: s, staged: make(map[string]*Reservation)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range tx.staged {
		if r == nil {
			delete(s.rows, id)
			continue
		}
		s.rows[id] = r.clone()
	}
	s.history = append(s.history, tx.history...)
	return nil
}

type memTx struct {
	base    *MemoryStore
	staged  map[string]*Reservation // nil value marks a delete
	history []HistoryEntry
}

func (t *memTx) Get(ctx context.Context, id string) (*Reservation, error) {
	if r, ok := t.staged[id]; ok {
		if r == nil {
			return nil, NotFoundError{Kind: "reservation", ID: id}
		}
		out := r.clone()
		return &out, nil
	}
	return t.base.Get(ctx, id)
}

func (t *memTx) ListBlocking(ctx context.Context, hallID string, dates []timerange.Date) ([]Reservation, error) {
	return t.list(ctx, func(r *Reservation) bool { return r.HallID == hallID && r.Status.Blocking() })
}

func (t *memTx) List(ctx context.Context, f Filter) ([]Reservation, error) {
	return t.list(ctx, f.matches)
}

func (t *memTx) CountByHall(ctx context.Context, hallID string) (int, error) {
	rows, err := t.list(ctx, func(r *Reservation) bool { return r.HallID == hallID })
	return len(rows), err
}

func (t *memTx) History(ctx context.Context, reservationID string) ([]HistoryEntry, error) {
	out, err := t.base.History(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	for _, h := range t.history {
		if h.ReservationID == reservationID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (t *memTx) list(_ context.Context, keep func(*Reservation) bool) ([]Reservation, error) {
	t.base.mu.RLock()
	merged := make(map[string]Reservation, len(t.base.rows))
	for id, r := range t.base.rows {
		merged[id] = r
	}
	t.base.mu.RUnlock()

	for id, r := range t.staged {
		if r == nil {
			delete(merged, id)
			continue
		}
		merged[id] = *r
	}

	var out []Reservation
	for _, r := range merged {
		if keep(&r) {
			out = append(out, r.clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (t *memTx) Insert(_ context.Context, r *Reservation) error {
	c := r.clone()
	t.staged[r.ID] = &c
	return nil
}

func (t *memTx) Update(ctx context.Context, r *Reservation) error {
	if _, err := t.Get(ctx, r.ID); err != nil {
		return err
	}
	c := r.clone()
	t.staged[r.ID] = &c
	return nil
}

func (t *memTx) Delete(ctx context.Context, id string) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}
	t.staged[id] = nil
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, h HistoryEntry) error {
	t.history = append(t.history, h)
	return nil
}

func sortByCreated(rows []Reservation) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}
