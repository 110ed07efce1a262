package hall

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	h := &Hall{ID: "h1", Name: "Main Auditorium", Capacity: 300, Facilities: []string{"projector"}, Active: true}
	if err := repo.Create(ctx, h); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &Hall{ID: "h2", Name: "main auditorium", Capacity: 10}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	got, err := repo.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Facilities[0] = "mutated"
	again, _ := repo.Get(ctx, "h1")
	if again.Facilities[0] != "projector" {
		t.Fatalf("repository shares facilities slice with callers")
	}

	again.Active = false
	if err := repo.Update(ctx, again); err != nil {
		t.Fatalf("update: %v", err)
	}
	active, _ := repo.List(ctx, true)
	if len(active) != 0 {
		t.Fatalf("expected inactive hall filtered, got %d", len(active))
	}
	all, _ := repo.List(ctx, false)
	if len(all) != 1 {
		t.Fatalf("expected 1 hall, got %d", len(all))
	}

	if err := repo.Delete(ctx, "h1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "h1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalizeFacilities(t *testing.T) {
	got := NormalizeFacilities([]string{" Projector", "projector", "", "AC ", "Stage"})
	want := []string{"Projector", "AC", "Stage"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
