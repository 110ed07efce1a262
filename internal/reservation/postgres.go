package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hallbooking/internal/timerange"
	"hallbooking/pkg/db"
)

const selectColumns = `
SELECT id, hall_id, requester_id, requester_name, COALESCE(requester_contact,''), purpose, seats,
       dates, time_from, time_to, status, review, COALESCE(review_reason,''),
       COALESCE(decided_by,''), COALESCE(decision_reason,''), created_at, updated_at
FROM reservations
`

// PGStore is the Postgres-backed Store. InTx additionally serialises writers
// per hall with a transaction-scoped advisory lock, so instances that don't
// share a Locker still can't double-book.
type PGStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPGStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PGStore {
	return &PGStore{db: pool, lockTimeout: lockTimeout}
}

func (s *PGStore) Get(ctx context.Context, id string) (*Reservation, error) {
	return pgQueries{q: s.db}.Get(ctx, id)
}

func (s *PGStore) ListBlocking(ctx context.Context, hallID string, dates []timerange.Date) ([]Reservation, error) {
	return pgQueries{q: s.db}.ListBlocking(ctx, hallID, dates)
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Reservation, error) {
	return pgQueries{q: s.db}.List(ctx, f)
}

func (s *PGStore) CountByHall(ctx context.Context, hallID string) (int, error) {
	return pgQueries{q: s.db}.CountByHall(ctx, hallID)
}

func (s *PGStore) History(ctx context.Context, reservationID string) ([]HistoryEntry, error) {
	return pgQueries{q: s.db}.History(ctx, reservationID)
}

func (s *PGStore) InTx(ctx context.Context, hallID string, fn func(tx Tx) error) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			ms := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, hallID); err != nil {
			return err
		}
		return fn(pgQueries{q: tx, forUpdate: true})
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return ContentionError{Key: hallID, Err: err}
	}
	return err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQueries struct {
	q         querier
	forUpdate bool
}

func (p pgQueries) Get(ctx context.Context, id string) (*Reservation, error) {
	q := selectColumns + `WHERE id = $1`
	if p.forUpdate {
		q += ` FOR UPDATE`
	}
	r, err := scanReservation(p.q.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundError{Kind: "reservation", ID: id}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		// malformed uuid
		return nil, NotFoundError{Kind: "reservation", ID: id}
	}
	return r, err
}

func (p pgQueries) ListBlocking(ctx context.Context, hallID string, dates []timerange.Date) ([]Reservation, error) {
	q := selectColumns + `
WHERE hall_id = $1
  AND status IN ('pending', 'approved')
  AND dates && $2::date[]
ORDER BY created_at ASC
`
	return p.collect(ctx, q, hallID, toTimes(dates))
}

func (p pgQueries) List(ctx context.Context, f Filter) ([]Reservation, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.HallID != "" {
		add("hall_id = $%d", f.HallID)
	}
	if f.RequesterID != "" {
		add("requester_id = $%d", f.RequesterID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Date != nil {
		add("$%d::date = ANY(dates)", f.Date.In(time.UTC))
	}

	q := selectColumns
	if len(where) > 0 {
		q += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	q += "ORDER BY created_at ASC"
	return p.collect(ctx, q, args...)
}

func (p pgQueries) CountByHall(ctx context.Context, hallID string) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE hall_id = $1`
	var n int
	err := p.q.QueryRow(ctx, q, hallID).Scan(&n)
	return n, err
}

func (p pgQueries) History(ctx context.Context, reservationID string) ([]HistoryEntry, error) {
	const q = `
SELECT id, reservation_id, hall_id, event_type, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM reservation_events
WHERE reservation_id = $1
ORDER BY occurred_at ASC, created_at ASC
`
	rows, err := p.q.Query(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.ReservationID, &h.HallID, &h.Type, &h.Actor, &h.OccurredAt, &h.Data); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (p pgQueries) Insert(ctx context.Context, r *Reservation) error {
	const q = `
INSERT INTO reservations (
  id, hall_id, requester_id, requester_name, requester_contact, purpose, seats,
  dates, time_from, time_to, status, review, review_reason, decided_by, decision_reason,
  created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date[], $9, $10, $11, $12, NULLIF($13,''), NULLIF($14,''), NULLIF($15,''), $16, $17)
`
	_, err := p.q.Exec(ctx, q,
		r.ID, r.HallID, r.RequesterID, r.RequesterName, r.RequesterContact, r.Purpose, r.Seats,
		toTimes(r.Dates), int(r.Window.From), int(r.Window.To), string(r.Status), string(r.Review),
		r.ReviewReason, r.DecidedBy, r.DecisionReason, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (p pgQueries) Update(ctx context.Context, r *Reservation) error {
	const q = `
UPDATE reservations
SET status = $2,
    review = $3,
    review_reason = NULLIF($4,''),
    decided_by = NULLIF($5,''),
    decision_reason = NULLIF($6,''),
    updated_at = $7
WHERE id = $1
`
	tag, err := p.q.Exec(ctx, q, r.ID, string(r.Status), string(r.Review), r.ReviewReason, r.DecidedBy, r.DecisionReason, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Kind: "reservation", ID: r.ID}
	}
	return nil
}

func (p pgQueries) Delete(ctx context.Context, id string) error {
	tag, err := p.q.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Kind: "reservation", ID: id}
	}
	return nil
}

func (p pgQueries) AppendHistory(ctx context.Context, h HistoryEntry) error {
	var data *string
	if h.Data != nil {
		b, _ := json.Marshal(h.Data)
		s := string(b)
		data = &s
	}
	const q = `
INSERT INTO reservation_events (id, reservation_id, hall_id, event_type, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, $6, CAST($7 AS jsonb))
`
	_, err := p.q.Exec(ctx, q, h.ID, h.ReservationID, h.HallID, h.Type, h.Actor, h.OccurredAt, data)
	return err
}

func (p pgQueries) collect(ctx context.Context, q string, args ...any) ([]Reservation, error) {
	rows, err := p.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var dates []time.Time
	var from, to int
	var status, review string
	if err := row.Scan(
		&r.ID, &r.HallID, &r.RequesterID, &r.RequesterName, &r.RequesterContact, &r.Purpose, &r.Seats,
		&dates, &from, &to, &status, &review, &r.ReviewReason,
		&r.DecidedBy, &r.DecisionReason, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Dates = make([]timerange.Date, 0, len(dates))
	for _, d := range dates {
		r.Dates = append(r.Dates, timerange.DateOf(d.UTC()))
	}
	r.Window = timerange.Window{From: timerange.TimeOfDay(from), To: timerange.TimeOfDay(to)}
	r.Status = Status(status)
	r.Review = Review(review)
	return &r, nil
}

func toTimes(dates []timerange.Date) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.In(time.UTC))
	}
	return out
}
