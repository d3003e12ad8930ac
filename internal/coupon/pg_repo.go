package coupon

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon
	var typ string
	err := s.DB.QueryRow(ctx, `
		SELECT id, code, type, value_cents, COALESCE(max_uses, 0), used_count,
			valid_from, valid_to, active, COALESCE(min_order_amount_cents, 0),
			COALESCE(category_slugs, '{}')
		FROM coupons WHERE code = $1`, code).
		Scan(&c.ID, &c.Code, &typ, &c.ValueCents, &c.MaxUses, &c.UsedCount,
			&c.ValidFrom, &c.ValidTo, &c.Active, &c.MinOrderAmountCents, &c.CategorySlugs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Type = Type(typ)
	return &c, nil
}

func (s *PgStore) IncrementUse(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
