package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by small stores in this package.
type Querier interface {
	Execer
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	// ErrIdempotencyInFlight indicates the key is reserved by a request that has not finished.
	ErrIdempotencyInFlight = errors.New("idempotent request still in progress")
)

// IdempotencyStore remembers client supplied Idempotency-Key values so that
// retried requests return the original result instead of creating duplicates.
type IdempotencyStore struct {
	db Querier
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(db Querier) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve claims key for actor within module. When the key was already
// completed the stored reference is returned with replay=true. A key that is
// reserved but not completed yields ErrIdempotencyInFlight.
func (s *IdempotencyStore) Reserve(ctx context.Context, module string, actorID int64, key string) (reference string, replay bool, err error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("idempotency store not initialised")
	}
	if key == "" || module == "" {
		return "", false, errors.New("idempotency key and module required")
	}
	_, err = s.db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, actor_id, created_at) VALUES ($1, $2, $3, $4)`, key, module, actorID, time.Now().UTC())
	if err == nil {
		return "", false, nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false, err
	}
	var ref *string
	if err := s.db.QueryRow(ctx, `SELECT reference FROM idempotency_keys WHERE key = $1 AND module = $2 AND actor_id = $3`, key, module, actorID).Scan(&ref); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Same key used by another actor.
			return "", false, ErrIdempotencyInFlight
		}
		return "", false, err
	}
	if ref == nil || *ref == "" {
		return "", false, ErrIdempotencyInFlight
	}
	return *ref, true, nil
}

// Complete records the reference produced for a reserved key.
func (s *IdempotencyStore) Complete(ctx context.Context, module string, actorID int64, key, reference string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `UPDATE idempotency_keys SET reference = $4 WHERE key = $1 AND module = $2 AND actor_id = $3`, key, module, actorID, reference)
	return err
}

// Release removes a reservation, typically after failed processing.
func (s *IdempotencyStore) Release(ctx context.Context, module string, actorID int64, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND module = $2 AND actor_id = $3`, key, module, actorID)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
