package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/shoplane/marketplace-api/internal/postgres"
)

// AppendEvent writes one append-only ledger row using the given handle,
// which may be a pool or an open transaction.
func AppendEvent(ctx context.Context, db postgres.DBTX, ev *Event) error {
	_, err := db.Exec(ctx, `
		INSERT INTO inventory_events(id, product_id, variant_sku, kind, quantity, note, created_at)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,''), $7)`,
		ev.ID, ev.ProductID, ev.VariantSKU, string(ev.Kind), ev.Quantity, ev.Note, ev.CreatedAt,
	)
	return err
}

// ApplyDelta mutates a product's stock with a floor of zero. Returns false
// when the product row does not exist.
func ApplyDelta(ctx context.Context, db postgres.DBTX, productID string, delta int) (bool, error) {
	ct, err := db.Exec(ctx, `
		UPDATE products SET stock = GREATEST(0, stock + $2), updated_at = now()
		WHERE id = $1`, productID, delta)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

type PgStore struct{ DB postgres.DBTX }

func (s *PgStore) Append(ctx context.Context, ev *Event) error {
	return AppendEvent(ctx, s.DB, ev)
}

func (s *PgStore) Adjust(ctx context.Context, productID string, delta int) (bool, error) {
	return ApplyDelta(ctx, s.DB, productID, delta)
}

func (s *PgStore) Stock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := s.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return stock, err
}
