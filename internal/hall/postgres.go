package hall

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGRepository struct {
	db *pgxpool.Pool
}

func NewPGRepository(db *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Hall, error) {
	const q = `
SELECT id, name, capacity, facilities, active, created_at, updated_at
FROM halls
WHERE id = $1
`
	var h Hall
	err := r.db.QueryRow(ctx, q, id).Scan(&h.ID, &h.Name, &h.Capacity, &h.Facilities, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == "22P02" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *PGRepository) List(ctx context.Context, activeOnly bool) ([]Hall, error) {
	const q = `
SELECT id, name, capacity, facilities, active, created_at, updated_at
FROM halls
WHERE active OR NOT $1
ORDER BY name ASC
`
	rows, err := r.db.Query(ctx, q, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hall
	for rows.Next() {
		var h Hall
		if err := rows.Scan(&h.ID, &h.Name, &h.Capacity, &h.Facilities, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, h *Hall) error {
	const q = `
INSERT INTO halls (id, name, capacity, facilities, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.db.Exec(ctx, q, h.ID, h.Name, h.Capacity, h.Facilities, h.Active, h.CreatedAt, h.UpdatedAt)
	return mapWriteErr(err, h.ID)
}

func (r *PGRepository) Update(ctx context.Context, h *Hall) error {
	const q = `
UPDATE halls
SET name = $2, capacity = $3, facilities = $4, active = $5, updated_at = $6
WHERE id = $1
`
	tag, err := r.db.Exec(ctx, q, h.ID, h.Name, h.Capacity, h.Facilities, h.Active, h.UpdatedAt)
	if err != nil {
		return mapWriteErr(err, h.ID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM halls WHERE id = $1`, id)
	if err != nil {
		return mapWriteErr(err, id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteErr(err error, id string) error {
	switch pgCode(err) {
	case "23505":
		return ErrDuplicateName
	case "23503":
		return InUseError{HallID: id}
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
