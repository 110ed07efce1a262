package reservation

import (
	"context"
	"errors"
	"testing"

	"hallbooking/internal/timerange"
)

func TestMemoryStore_FailedTxLeavesNoWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, testHall, func(tx Tx) error {
		r := Reservation{ID: "a", HallID: testHall, Status: StatusPending, Dates: []timerange.Date{date(t, "2025-10-20")}}
		if err := tx.Insert(ctx, &r); err != nil {
			return err
		}
		if _, err := tx.Get(ctx, "a"); err != nil {
			t.Fatalf("staged row should be visible inside tx: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.Get(ctx, "a"); err == nil {
		t.Fatalf("row leaked from failed tx")
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	rows := []Reservation{
		{ID: "a", HallID: "h1", RequesterID: "u1", Status: StatusPending, Dates: []timerange.Date{date(t, "2025-10-20")}},
		{ID: "b", HallID: "h1", RequesterID: "u2", Status: StatusApproved, Dates: []timerange.Date{date(t, "2025-10-21")}},
		{ID: "c", HallID: "h2", RequesterID: "u1", Status: StatusApproved, Dates: []timerange.Date{date(t, "2025-10-20")}},
	}
	_ = store.InTx(ctx, "", func(tx Tx) error {
		for i := range rows {
			_ = tx.Insert(ctx, &rows[i])
		}
		return nil
	})

	d := date(t, "2025-10-20")
	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 3},
		{"hall", Filter{HallID: "h1"}, 2},
		{"requester", Filter{RequesterID: "u1"}, 2},
		{"status", Filter{Status: StatusApproved}, 2},
		{"date", Filter{Date: &d}, 2},
		{"combined", Filter{HallID: "h1", Date: &d}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.f)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d rows, got %d", tt.want, len(got))
			}
		})
	}

	if n, _ := store.CountByHall(ctx, "h1"); n != 2 {
		t.Fatalf("expected 2 rows for h1, got %d", n)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	r := Reservation{ID: "a", HallID: "h1", Status: StatusPending, Dates: []timerange.Date{date(t, "2025-10-20")}}
	_ = store.InTx(ctx, "h1", func(tx Tx) error { return tx.Insert(ctx, &r) })

	got, _ := store.Get(ctx, "a")
	got.Status = StatusApproved
	got.Dates[0] = date(t, "2030-01-01")

	again, _ := store.Get(ctx, "a")
	if again.Status != StatusPending || again.Dates[0].String() != "2025-10-20" {
		t.Fatalf("store shares memory with callers")
	}
}
