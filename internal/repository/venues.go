package repository

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/menulens/menu-digitizer/constants"
	"github.com/menulens/menu-digitizer/internal/entity"
)

const (
	shortCodeAttempts = 5
	pgUniqueViolation = "23505"
)

var venueColumns = []string{"id", "name", "short_code", "created_at", "updated_at"}

type VenueRepository interface {
	Create(ctx context.Context, name string) (*entity.Venue, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Venue, error)
	GetByShortCode(ctx context.Context, code string) (*entity.Venue, error)
	// EnsureShortCode allocates the venue's short code lazily. Safe under
	// concurrent callers: whoever commits first wins, everyone else returns
	// the winner's code.
	EnsureShortCode(ctx context.Context, venueID uuid.UUID) (string, error)
}

type venueRepo struct {
	db  DB
	log *slog.Logger
}

func NewVenueRepository(db DB, log *slog.Logger) VenueRepository {
	if log == nil {
		log = slog.Default()
	}
	return &venueRepo{db: db, log: log}
}

func (r *venueRepo) Create(ctx context.Context, name string) (*entity.Venue, error) {
	query, args, err := psql.Insert("venues").
		Columns("id", "name").
		Values(uuid.New(), name).
		Suffix("RETURNING " + columnList(venueColumns)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.scanVenue(ctx, query, args)
}

func (r *venueRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Venue, error) {
	query, args, err := psql.Select(venueColumns...).
		From("venues").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.scanVenue(ctx, query, args)
}

func (r *venueRepo) GetByShortCode(ctx context.Context, code string) (*entity.Venue, error) {
	query, args, err := psql.Select(venueColumns...).
		From("venues").
		Where(sq.Eq{"short_code": code}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.scanVenue(ctx, query, args)
}

// EnsureShortCode reads the current value, and when absent attempts a
// conditional update guarded by "still absent". A unique-index conflict with
// another venue's code regenerates and retries; losing the guard to a
// concurrent allocator re-reads and returns the winner's value.
func (r *venueRepo) EnsureShortCode(ctx context.Context, venueID uuid.UUID) (string, error) {
	v, err := r.GetByID(ctx, venueID)
	if err != nil {
		return "", err
	}
	if v.ShortCode != nil {
		return *v.ShortCode, nil
	}

	for attempt := 1; attempt <= shortCodeAttempts; attempt++ {
		code, err := newShortCode()
		if err != nil {
			return "", err
		}
		tag, err := r.db.Exec(ctx,
			`UPDATE venues SET short_code = $2 WHERE id = $1 AND short_code IS NULL`,
			venueID, code)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				r.log.Warn("short code collision, regenerating", "venue_id", venueID, "attempt", attempt)
				continue
			}
			return "", err
		}
		if tag.RowsAffected() == 1 {
			r.log.Info("short code allocated", "venue_id", venueID, "code", code)
			return code, nil
		}
		// A concurrent allocator won; use its value.
		v, err := r.GetByID(ctx, venueID)
		if err != nil {
			return "", err
		}
		if v.ShortCode != nil {
			return *v.ShortCode, nil
		}
	}
	return "", fmt.Errorf("venue %s: short code allocation exhausted after %d attempts", venueID, shortCodeAttempts)
}

func (r *venueRepo) scanVenue(ctx context.Context, query string, args []any) (*entity.Venue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var v entity.Venue
	if err := pgxscan.ScanOne(&v, rows); err != nil {
		return nil, err
	}
	return &v, nil
}

// newShortCode returns an 8-character URL-safe identifier.
func newShortCode() (string, error) {
	buf := make([]byte, constants.ShortCodeLength*3/4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
