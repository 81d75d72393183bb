package publisher

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/internal/apperr"
)

// Store is the Publisher Store contract (spec.md §4.2).
type Store interface {
	Create(ctx context.Context, p *Publisher) error
	GetByAPIKey(ctx context.Context, apiKey string) (*Publisher, error)
	GetByID(ctx context.Context, id int64) (*Publisher, error)
	Update(ctx context.Context, p *Publisher) error
	List(ctx context.Context) ([]*Publisher, error)
	Delete(ctx context.Context, id int64) error
	ReserveBlogSlot(ctx context.Context, id int64) error
	ReleaseBlogSlot(ctx context.Context, id int64, processed bool) error
}

type pgStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewPostgresStore wires the Publisher Store to an already-opened
// connection pool (internal/platform.NewPostgresDB), so the pool's
// lifecycle and health-check access are owned by the process entry
// point rather than duplicated per store.
func NewPostgresStore(db *sql.DB, log *zap.Logger) Store {
	return &pgStore{db: db, log: log}
}

func (s *pgStore) Create(ctx context.Context, p *Publisher) error {
	cfgJSON, err := json.Marshal(p.Config)
	if err != nil {
		return apperr.Internal("MARSHAL_CONFIG", "cannot marshal publisher config", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO publishers (name, primary_domain, api_key, is_admin, active, config, current_day_bucket)
		VALUES ($1, $2, $3, $4, true, $5, CURRENT_DATE)
		RETURNING id, created_at, updated_at;
	`, p.Name, p.PrimaryDomain, p.APIKey, p.IsAdmin, cfgJSON).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperr.Conflict("PUBLISHER_EXISTS", "a publisher with this api key or domain already exists")
		}
		s.log.Error("create publisher failed", zap.Error(err))
		return apperr.Internal("CREATE_PUBLISHER", "cannot create publisher", err)
	}

	p.Active = true
	return nil
}

const selectColumns = `
	id, name, primary_domain, api_key, is_admin, active, config,
	blogs_processed_total, blogs_processed_today, current_day_bucket::text, in_flight_reservations,
	created_at, updated_at
`

func (s *pgStore) scanRow(row *sql.Row) (*Publisher, error) {
	var p Publisher
	var cfgJSON []byte

	err := row.Scan(&p.ID, &p.Name, &p.PrimaryDomain, &p.APIKey, &p.IsAdmin, &p.Active, &cfgJSON,
		&p.Usage.BlogsProcessedTotal, &p.Usage.BlogsProcessedToday, &p.Usage.CurrentDayBucket,
		&p.Usage.InFlightReservations, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
		}
		return nil, apperr.Internal("SCAN_PUBLISHER", "cannot scan publisher row", err)
	}

	if err := json.Unmarshal(cfgJSON, &p.Config); err != nil {
		return nil, apperr.Internal("UNMARSHAL_CONFIG", "cannot unmarshal publisher config", err)
	}
	return &p, nil
}

func (s *pgStore) GetByAPIKey(ctx context.Context, apiKey string) (*Publisher, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM publishers WHERE api_key = $1;`, apiKey)
	return s.scanRow(row)
}

func (s *pgStore) GetByID(ctx context.Context, id int64) (*Publisher, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM publishers WHERE id = $1;`, id)
	return s.scanRow(row)
}

func (s *pgStore) List(ctx context.Context) ([]*Publisher, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM publishers ORDER BY id;`)
	if err != nil {
		return nil, apperr.Internal("LIST_PUBLISHERS", "cannot list publishers", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log.Error("closing rows in List", zap.Error(err))
		}
	}()

	var out []*Publisher
	for rows.Next() {
		var p Publisher
		var cfgJSON []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.PrimaryDomain, &p.APIKey, &p.IsAdmin, &p.Active, &cfgJSON,
			&p.Usage.BlogsProcessedTotal, &p.Usage.BlogsProcessedToday, &p.Usage.CurrentDayBucket,
			&p.Usage.InFlightReservations, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperr.Internal("SCAN_PUBLISHER", "cannot scan publisher row", err)
		}
		if err := json.Unmarshal(cfgJSON, &p.Config); err != nil {
			return nil, apperr.Internal("UNMARSHAL_CONFIG", "cannot unmarshal publisher config", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("LIST_PUBLISHERS", "error iterating publishers", err)
	}
	return out, nil
}

func (s *pgStore) Update(ctx context.Context, p *Publisher) error {
	cfgJSON, err := json.Marshal(p.Config)
	if err != nil {
		return apperr.Internal("MARSHAL_CONFIG", "cannot marshal publisher config", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE publishers
		SET name = $1, primary_domain = $2, active = $3, config = $4, api_key = $5, updated_at = now()
		WHERE id = $6;
	`, p.Name, p.PrimaryDomain, p.Active, cfgJSON, p.APIKey, p.ID)
	if err != nil {
		return apperr.Internal("UPDATE_PUBLISHER", "cannot update publisher", err)
	}
	return requireAffected(res)
}

func (s *pgStore) Delete(ctx context.Context, id int64) error {
	var inUse bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM queue_publisher_refs WHERE publisher_id = $1);
	`, id).Scan(&inUse)
	// queue_publisher_refs is created by the migrations, but nothing in
	// this repository writes rows to it, so queue entries in MongoDB do
	// not by themselves block deletion. A failed lookup is treated as
	// inconclusive rather than blocking deletion.
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("publisher-in-use check failed, proceeding with delete", zap.Error(err))
	} else if inUse {
		return apperr.Conflict(apperr.CodePublisherInUse, "publisher still has referenced queue entries")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM publishers WHERE id = $1;`, id)
	if err != nil {
		return apperr.Internal("DELETE_PUBLISHER", "cannot delete publisher", err)
	}
	return requireAffected(res)
}

// ReserveBlogSlot implements the atomic admission check of spec.md §4.2:
// it resets the day bucket if stale and admits the reservation in one
// UPDATE ... RETURNING, so no other connection can observe a half-applied
// rollover or race the quota comparison.
func (s *pgStore) ReserveBlogSlot(ctx context.Context, id int64) error {
	var admitted bool
	err := s.db.QueryRowContext(ctx, `
		WITH rolled AS (
			UPDATE publishers
			SET blogs_processed_today = CASE WHEN current_day_bucket <> CURRENT_DATE THEN 0 ELSE blogs_processed_today END,
			    current_day_bucket    = CURRENT_DATE
			WHERE id = $1
			RETURNING id, blogs_processed_today, in_flight_reservations,
			          (config->>'daily_blog_limit')::bigint AS daily_limit, active
		)
		UPDATE publishers p
		SET in_flight_reservations = p.in_flight_reservations + 1
		FROM rolled r
		WHERE p.id = r.id
		  AND r.active
		  AND r.blogs_processed_today + r.in_flight_reservations < r.daily_limit
		RETURNING true;
	`, id).Scan(&admitted)

	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := s.exists(ctx, id)
		if existsErr == nil && !exists {
			return apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
		}
		return apperr.ErrUsageLimitExceeded
	}
	if err != nil {
		return apperr.Internal("RESERVE_SLOT", "cannot reserve blog slot", err)
	}
	return nil
}

// ReleaseBlogSlot implements the release half of spec.md §4.2.
func (s *pgStore) ReleaseBlogSlot(ctx context.Context, id int64, processed bool) error {
	var res sql.Result
	var err error
	if processed {
		res, err = s.db.ExecContext(ctx, `
			UPDATE publishers
			SET in_flight_reservations = GREATEST(in_flight_reservations - 1, 0),
			    blogs_processed_today   = blogs_processed_today + 1,
			    blogs_processed_total   = blogs_processed_total + 1,
			    updated_at = now()
			WHERE id = $1;
		`, id)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE publishers
			SET in_flight_reservations = GREATEST(in_flight_reservations - 1, 0),
			    updated_at = now()
			WHERE id = $1;
		`, id)
	}
	if err != nil {
		return apperr.Internal("RELEASE_SLOT", "cannot release blog slot", err)
	}
	return requireAffected(res)
}

func (s *pgStore) exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM publishers WHERE id = $1);`, id).Scan(&ok)
	return ok, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("ROWS_AFFECTED", "cannot determine rows affected", err)
	}
	if n == 0 {
		return apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}
	return nil
}
