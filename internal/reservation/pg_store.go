package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplane/marketplace-api/internal/inventory"
	"github.com/shoplane/marketplace-api/internal/postgres"
)

type PgStore struct{ DB *pgxpool.Pool }

const cols = `id, product_id, COALESCE(variant_sku,''), COALESCE(user_id,''), COALESCE(order_id,''),
	COALESCE(session_id,''), quantity, status, expires_at, created_at`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var status string
	if err := row.Scan(&r.ID, &r.ProductID, &r.VariantSKU, &r.UserID, &r.OrderID,
		&r.SessionID, &r.Quantity, &status, &r.ExpiresAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}

// Insert writes the reservation row, its RESERVE ledger event, and the
// stock decrement in one transaction.
func (s *PgStore) Insert(ctx context.Context, r *Reservation) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO reservations(id, product_id, variant_sku, user_id, order_id, session_id,
			quantity, status, expires_at, created_at)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7, $8, $9, $10)`,
		r.ID, r.ProductID, r.VariantSKU, r.UserID, r.OrderID, r.SessionID,
		r.Quantity, string(r.Status), r.ExpiresAt, r.CreatedAt,
	)
	if err != nil {
		return err
	}
	if err := s.appendLedger(ctx, tx, r, inventory.KindReserve, fmt.Sprintf("Reservation %s", r.ID), true); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Consume flips ACTIVE -> CONSUMED and records a SALE settlement event.
// The SALE row is bookkeeping only: the stock decrement already happened
// when the hold was placed, so consuming must not decrement again.
func (s *PgStore) Consume(ctx context.Context, id string) (*Reservation, error) {
	return s.transition(ctx, id, StatusConsumed, inventory.KindSale, "Consume reservation %s", false)
}

// Release flips ACTIVE -> EXPIRED and gives the held quantity back.
func (s *PgStore) Release(ctx context.Context, id string) (*Reservation, error) {
	return s.transition(ctx, id, StatusExpired, inventory.KindRelease, "Release reservation %s", true)
}

func (s *PgStore) transition(ctx context.Context, id string, to Status, kind inventory.EventKind, noteFmt string, mutate bool) (*Reservation, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// conditional update: a no-op when the hold is already terminal, so a
	// sweep racing a live consume cannot double-apply
	row := tx.QueryRow(ctx, `
		UPDATE reservations SET status = $2
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING `+cols, id, string(to))
	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classify(ctx, id)
		}
		return nil, err
	}
	if err := s.appendLedger(ctx, tx, r, kind, fmt.Sprintf(noteFmt, r.ID), mutate); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PgStore) classify(ctx context.Context, id string) error {
	var status string
	err := s.DB.QueryRow(ctx, `SELECT status FROM reservations WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w (status %s)", ErrNotActive, status)
}

func (s *PgStore) appendLedger(ctx context.Context, tx postgres.DBTX, r *Reservation, kind inventory.EventKind, note string, mutate bool) error {
	ev := &inventory.Event{
		ID:         uuid.NewString(),
		ProductID:  r.ProductID,
		VariantSKU: r.VariantSKU,
		Kind:       kind,
		Quantity:   r.Quantity,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	if err := inventory.AppendEvent(ctx, tx, ev); err != nil {
		return err
	}
	if mutate {
		// missing product: keep the event, skip the stock change
		if _, err := inventory.ApplyDelta(ctx, tx, r.ProductID, inventory.DeltaFor(kind, r.Quantity)); err != nil {
			return err
		}
	}
	return nil
}

func (s *PgStore) ExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id FROM reservations
		WHERE status = 'ACTIVE' AND expires_at < $1
		ORDER BY expires_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActiveForUser returns the oldest ACTIVE hold for (product, user), so
// settlement consumes holds in the order they were placed.
func (s *PgStore) ActiveForUser(ctx context.Context, productID, userID string) (*Reservation, error) {
	return s.findActive(ctx, `user_id`, productID, userID)
}

func (s *PgStore) ActiveForSession(ctx context.Context, productID, sessionID string) (*Reservation, error) {
	return s.findActive(ctx, `session_id`, productID, sessionID)
}

func (s *PgStore) findActive(ctx context.Context, ownerCol, productID, owner string) (*Reservation, error) {
	if owner == "" {
		return nil, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `
		SELECT `+cols+` FROM reservations
		WHERE product_id = $1 AND `+ownerCol+` = $2 AND status = 'ACTIVE'
		ORDER BY created_at ASC LIMIT 1`, productID, owner)
	r, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PgStore) Get(ctx context.Context, id string) (*Reservation, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+cols+` FROM reservations WHERE id=$1`, id)
	r, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PgStore) ListForProduct(ctx context.Context, productID string) ([]*Reservation, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+cols+` FROM reservations WHERE product_id=$1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
