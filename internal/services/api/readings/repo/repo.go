// Package repo persists meter readings in Postgres
package repo

import (
	"context"
	"time"

	perr "meterbox/internal/platform/errors"

	"meterbox/internal/modkit/repokit"
	"meterbox/internal/services/api/readings/domain"

	"github.com/google/uuid"
)

// Repo is the storage surface the readings service binds per call site
type Repo interface {
	// Insert stores a fresh unconfirmed reading. A month-window collision
	// surfaces as a double-report conflict
	Insert(ctx context.Context, r domain.Reading) error

	// ExistsInMonth reports whether the customer already has a reading of
	// this kind inside the half-open [from, to) window
	ExistsInMonth(ctx context.Context, customerCode string, kind domain.Kind, from, to time.Time) (bool, error)

	// ConfirmValue applies the one-shot confirmation. It returns the number
	// of rows transitioned, which is 0 when the reading is already confirmed
	// or absent
	ConfirmValue(ctx context.Context, id uuid.UUID, value int64) (int64, error)

	// Confirmed reports the confirmation flag of an existing reading and a
	// not-found error when the id is unknown
	Confirmed(ctx context.Context, id uuid.UUID) (bool, error)

	// ListByCustomer returns the customer's readings ordered by capture time
	// ascending, optionally narrowed to one kind (empty kind means all)
	ListByCustomer(ctx context.Context, customerCode string, kind domain.Kind) ([]domain.Reading, error)
}

type pgRepo struct{ q repokit.Queryer }

// NewPG binds the Postgres implementation to a Queryer per call site
func NewPG() repokit.Binder[Repo] {
	return repokit.BindFunc[Repo](func(q repokit.Queryer) Repo { return &pgRepo{q: q} })
}

func (p *pgRepo) Insert(ctx context.Context, r domain.Reading) error {
	const q = `
		insert into readings (id, customer_code, kind, taken_at, image_url, value, confirmed)
		values ($1, $2, $3, $4, $5, $6, $7)`

	_, err := p.q.Exec(ctx, q,
		r.ID, r.CustomerCode, string(r.Kind), r.TakenAt.UTC(), r.ImageURL, r.Value, r.Confirmed)
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return perr.DoubleReportf("reading for this month already reported")
		}
		return perr.FromPostgres(err, "insert reading")
	}
	return nil
}

func (p *pgRepo) ExistsInMonth(
	ctx context.Context,
	customerCode string,
	kind domain.Kind,
	from, to time.Time,
) (bool, error) {
	const q = `
		select exists (
			select 1 from readings
			where customer_code = $1 and kind = $2 and taken_at >= $3 and taken_at < $4
		)`

	var found bool
	row := p.q.QueryRow(ctx, q, customerCode, string(kind), from.UTC(), to.UTC())
	if err := row.Scan(&found); err != nil {
		return false, perr.FromPostgres(err, "reading month lookup")
	}
	return found, nil
}

func (p *pgRepo) ConfirmValue(ctx context.Context, id uuid.UUID, value int64) (int64, error) {
	const q = `
		update readings
		set value = $2, confirmed = true
		where id = $1 and not confirmed`

	tag, err := p.q.Exec(ctx, q, id, value)
	if err != nil {
		return 0, perr.FromPostgres(err, "confirm reading")
	}
	return tag.RowsAffected(), nil
}

func (p *pgRepo) Confirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `select confirmed from readings where id = $1`

	rows, err := p.q.Query(ctx, q, id)
	if err != nil {
		return false, perr.FromPostgres(err, "reading lookup")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, perr.FromPostgres(err, "reading lookup")
		}
		return false, perr.NotFoundf("reading not found")
	}

	var confirmed bool
	if err := rows.Scan(&confirmed); err != nil {
		return false, perr.FromPostgres(err, "reading lookup")
	}
	return confirmed, nil
}

func (p *pgRepo) ListByCustomer(
	ctx context.Context,
	customerCode string,
	kind domain.Kind,
) ([]domain.Reading, error) {
	const base = `
		select id, customer_code, kind, taken_at, image_url, value, confirmed, created_at
		from readings
		where customer_code = $1`

	q := base + ` order by taken_at asc`
	args := []any{customerCode}
	if kind != "" {
		q = base + ` and kind = $2 order by taken_at asc`
		args = append(args, string(kind))
	}

	rows, err := p.q.Query(ctx, q, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "list readings")
	}
	defer rows.Close()

	var out []domain.Reading
	for rows.Next() {
		var (
			r    domain.Reading
			kind string
		)
		if err := rows.Scan(&r.ID, &r.CustomerCode, &kind, &r.TakenAt, &r.ImageURL, &r.Value, &r.Confirmed, &r.CreatedAt); err != nil {
			return nil, perr.FromPostgres(err, "list readings")
		}
		r.Kind = domain.Kind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "list readings")
	}
	return out, nil
}
