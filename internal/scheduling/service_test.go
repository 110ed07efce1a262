package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hallbooking/internal/events"
	"hallbooking/internal/hall"
	"hallbooking/internal/lock"
	"hallbooking/internal/reservation"
	"hallbooking/internal/timerange"
)

func TestScenario_OverlapRejectedAdjacencyAllowed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.submit(t, alice, "09:00", "18:00", "2025-10-20")
	if a.Status != reservation.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}

	_, err := f.svc.Submit(ctx, bob, request(t, hallH, []string{"2025-10-20"}, "10:00", "17:00"))
	var conflict reservation.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ids := conflict.IDs(); len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("expected conflict with %s, got %v", a.ID, ids)
	}

	b := f.submit(t, bob, "18:00", "21:00", "2025-10-20")
	if b.Status != reservation.StatusPending {
		t.Fatalf("expected adjacent booking to be pending, got %s", b.Status)
	}
}

func TestScenario_ApprovedBlocksConcurrentSubmissions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.submit(t, alice, "09:00", "18:00", "2025-10-20")
	if _, err := f.svc.Approve(ctx, admin, a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(ctx, bob, SubmitRequest{
				HallID:  hallH,
				Purpose: "club meeting",
				Seats:   20,
				Dates:   []timerange.Date{{Year: 2025, Month: 10, Day: 20}},
				Window:  timerange.Window{From: 12 * 60, To: 13 * 60},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		var conflict reservation.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("submission %d: expected ConflictError, got %v", i, err)
		}
	}
}

func TestScenario_CancellationFreesSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.submit(t, alice, "09:00", "18:00", "2025-10-20")
	if _, err := f.svc.Approve(ctx, admin, a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got, err := f.svc.RequestCancellation(ctx, alice, a.ID, "venue double-booked externally")
	if err != nil {
		t.Fatalf("request cancellation: %v", err)
	}
	if got.Status != reservation.StatusApproved || got.Review != reservation.ReviewCancelRequested {
		t.Fatalf("expected approved/cancel-requested, got %s/%s", got.Status, got.Review)
	}

	got, err = f.svc.ResolveCancellation(ctx, admin, a.ID, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Status != reservation.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}

	avail, err := f.svc.CheckAvailability(ctx, hallH, a.Dates, a.Window)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !avail.Available || len(avail.ConflictingIDs) != 0 {
		t.Fatalf("expected slot to be free, got %+v", avail)
	}
}

func TestScenario_BeyondHorizon(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	far := timerange.DateOf(today).AddDays(40).String()
	_, err := f.svc.Submit(ctx, alice, request(t, hallH, []string{far}, "09:00", "10:00"))
	var verr reservation.ValidationError
	if !errors.As(err, &verr) || verr.Code != "BEYOND_HORIZON" {
		t.Fatalf("expected BEYOND_HORIZON, got %v", err)
	}

	edge := timerange.DateOf(today).AddDays(30).String()
	f.submit(t, alice, "09:00", "10:00", edge)
}

func TestSubmit_PolicyChecks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  func() SubmitRequest
		code string
	}{
		{"past date", func() SubmitRequest { return request(t, hallH, []string{"2025-10-14"}, "09:00", "10:00") }, "DATE_IN_PAST"},
		{"unknown hall", func() SubmitRequest {
			return request(t, "0b7a5f0e-5b8e-4a59-9a57-6c1f4a1b2cff", []string{"2025-10-20"}, "09:00", "10:00")
		}, "HALL_NOT_FOUND"},
		{"inactive hall", func() SubmitRequest { return request(t, hallClosed, []string{"2025-10-20"}, "09:00", "10:00") }, "HALL_INACTIVE"},
		{"over capacity", func() SubmitRequest {
			r := request(t, hallH, []string{"2025-10-20"}, "09:00", "10:00")
			r.Seats = 121
			return r
		}, "OVER_CAPACITY"},
		{"no seats", func() SubmitRequest {
			r := request(t, hallH, []string{"2025-10-20"}, "09:00", "10:00")
			r.Seats = 0
			return r
		}, "SEATS_INVALID"},
		{"no dates", func() SubmitRequest {
			r := request(t, hallH, []string{"2025-10-20"}, "09:00", "10:00")
			r.Dates = nil
			return r
		}, "DATES_REQUIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, alice, tt.req())
			var verr reservation.ValidationError
			if !errors.As(err, &verr) || verr.Code != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}

	if items, _ := f.store.List(ctx, reservation.Filter{}); len(items) != 0 {
		t.Fatalf("rejected submissions must not write, found %d rows", len(items))
	}
}

func TestAdminOnlyOperations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.submit(t, alice, "09:00", "10:00", "2025-10-20")

	checks := map[string]func() error{
		"approve": func() error { _, err := f.svc.Approve(ctx, alice, a.ID); return err },
		"reject":  func() error { _, err := f.svc.Reject(ctx, alice, a.ID, "no"); return err },
		"cancel":  func() error { _, err := f.svc.Cancel(ctx, alice, a.ID, "no"); return err },
		"resolve": func() error { _, err := f.svc.ResolveCancellation(ctx, alice, a.ID, true); return err },
		"usage": func() error {
			_, err := f.svc.HallUsage(ctx, alice, hallH, a.Dates[0], a.Dates[0])
			return err
		},
		"create hall": func() error { _, err := f.svc.CreateHall(ctx, alice, HallInput{Name: "X", Capacity: 1}); return err },
		"delete hall": func() error { return f.svc.DeleteHall(ctx, alice, hallH) },
	}
	for name, fn := range checks {
		var forbidden reservation.ForbiddenError
		if err := fn(); !errors.As(err, &forbidden) {
			t.Fatalf("%s: expected ForbiddenError, got %v", name, err)
		}
	}

	got, _ := f.store.Get(ctx, a.ID)
	if got.Status != reservation.StatusPending {
		t.Fatalf("forbidden calls must not change state, got %s", got.Status)
	}
}

func TestEventsDispatchedAfterCommitOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.submit(t, alice, "09:00", "10:00", "2025-10-20")
	if _, err := f.svc.Approve(ctx, admin, a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Approve(ctx, admin, a.ID); err == nil {
		t.Fatalf("expected second approve to fail")
	}
	if _, err := f.svc.RequestCancellation(ctx, alice, a.ID, "plans changed"); err != nil {
		t.Fatalf("request cancellation: %v", err)
	}
	if _, err := f.svc.ResolveCancellation(ctx, admin, a.ID, false); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []events.Type{events.TypeCreated, events.TypeApproved, events.TypeCancelRequested, events.TypeCancelRejected}
	got := f.events.Events()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(got), got)
	}
	for i, e := range got {
		if e.Type != want[i] || e.ReservationID != a.ID || e.HallID != hallH {
			t.Fatalf("event %d: expected %s for %s, got %+v", i, want[i], a.ID, e)
		}
	}
	if got[1].ActorID != admin.ID || got[2].ActorID != alice.ID {
		t.Fatalf("unexpected actors: %s, %s", got[1].ActorID, got[2].ActorID)
	}
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t, nil)
	f.events.Err = errors.New("broker down")

	a := f.submit(t, alice, "09:00", "10:00", "2025-10-20")
	if a.Status != reservation.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}
}

func TestContentionIsRetried(t *testing.T) {
	locker := &flakyLocker{inner: lock.NewLocal(time.Second)}
	locker.failures.Store(2)
	f := newFixture(t, locker)

	a := f.submit(t, alice, "09:00", "10:00", "2025-10-20")
	if a.Status != reservation.StatusPending {
		t.Fatalf("expected pending after retries, got %s", a.Status)
	}

	locker.failures.Store(3)
	_, err := f.svc.Approve(context.Background(), admin, a.ID)
	var contention reservation.ContentionError
	if !errors.As(err, &contention) {
		t.Fatalf("expected ContentionError after exhausting attempts, got %v", err)
	}
	got, _ := f.store.Get(context.Background(), a.ID)
	if got.Status != reservation.StatusPending {
		t.Fatalf("failed approve must leave reservation pending, got %s", got.Status)
	}
}

func TestListAndGetScopedToRequester(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.submit(t, alice, "09:00", "10:00", "2025-10-20")
	f.submit(t, bob, "10:00", "11:00", "2025-10-20")

	mine, err := f.svc.List(ctx, alice, reservation.Filter{RequesterID: bob.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("expected only alice's reservation, got %+v", mine)
	}

	all, _ := f.svc.List(ctx, admin, reservation.Filter{HallID: hallH})
	if len(all) != 2 {
		t.Fatalf("admin expected 2 reservations, got %d", len(all))
	}

	var forbidden reservation.ForbiddenError
	if _, err := f.svc.Get(ctx, bob, a.ID); !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if _, err := f.svc.History(ctx, bob, a.ID); !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError for history, got %v", err)
	}

	h, err := f.svc.History(ctx, alice, a.ID)
	if err != nil || len(h) != 1 {
		t.Fatalf("expected one history entry, got %d (%v)", len(h), err)
	}
}

func TestHallUsage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := f.submit(t, alice, "09:00", "10:30", "2025-10-20", "2025-10-21", "2025-11-02")
	f.submit(t, bob, "14:00", "16:00", "2025-10-20")
	if _, err := f.svc.Approve(ctx, admin, a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	from, _ := timerange.ParseDate("2025-10-16")
	to, _ := timerange.ParseDate("2025-10-31")
	u, err := f.svc.HallUsage(ctx, admin, hallH, from, to)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Reservations != 1 || u.BookedDays != 2 || u.Hours.String() != "3" {
		t.Fatalf("expected 1 reservation, 2 days, 3 hours; got %d, %d, %s", u.Reservations, u.BookedDays, u.Hours)
	}

	var verr reservation.ValidationError
	if _, err := f.svc.HallUsage(ctx, admin, hallH, to, from); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for inverted range, got %v", err)
	}
}

func TestHallLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	h, err := f.svc.CreateHall(ctx, admin, HallInput{Name: " Seminar Room ", Capacity: 40, Facilities: []string{"projector", "Projector"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.Name != "Seminar Room" || !h.Active || len(h.Facilities) != 1 {
		t.Fatalf("unexpected hall %+v", h)
	}

	if _, err := f.svc.CreateHall(ctx, admin, HallInput{Name: "seminar room", Capacity: 10}); !errors.Is(err, hall.ErrDuplicateName) {
		t.Fatalf("expected duplicate name, got %v", err)
	}

	inactive := false
	h, err = f.svc.UpdateHall(ctx, admin, h.ID, HallInput{Name: "Seminar Room", Capacity: 45, Active: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.Active || h.Capacity != 45 {
		t.Fatalf("update not applied: %+v", h)
	}

	a := f.submit(t, alice, "09:00", "10:00", "2025-10-20")
	if _, err := f.svc.Reject(ctx, admin, a.ID, "exam week"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	var inUse hall.InUseError
	if err := f.svc.DeleteHall(ctx, admin, hallH); !errors.As(err, &inUse) || inUse.Reservations != 1 {
		t.Fatalf("expected InUseError with 1 reservation, got %v", err)
	}

	if err := f.svc.DeleteHall(ctx, admin, h.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var notFound reservation.NotFoundError
	if _, err := f.svc.GetHall(ctx, h.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSubmit_HallRecheckedUnderLock(t *testing.T) {
	f := newFixture(t, nil)
	halls := &vanishingHalls{Repository: f.halls}
	svc := NewService(halls, f.store, lock.NewLocal(time.Second), timerange.FixedClock{At: today}, f.events, quietLogger(), Options{})

	_, err := svc.Submit(context.Background(), alice, request(t, hallH, []string{"2025-10-20"}, "09:00", "10:00"))
	var verr reservation.ValidationError
	if !errors.As(err, &verr) || verr.Code != "HALL_NOT_FOUND" {
		t.Fatalf("expected HALL_NOT_FOUND from the locked re-check, got %v", err)
	}
	if n, _ := f.store.CountByHall(context.Background(), hallH); n != 0 {
		t.Fatalf("expected no reservation for a vanished hall, got %d", n)
	}
	if len(f.events.Events()) != 0 {
		t.Fatalf("no event expected for an aborted submit")
	}
}
