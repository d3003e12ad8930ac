package payment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const cols = `id, order_id, method, amount_cents, currency, COALESCE(gateway,''),
	COALESCE(transaction_ref,''), status, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var status string
	if err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.AmountCents, &p.Currency,
		&p.Gateway, &p.TransactionRef, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, p *Payment) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payments(id, order_id, method, amount_cents, currency, gateway,
			transaction_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8, $9, $9)`,
		p.ID, p.OrderID, p.Method, p.AmountCents, p.Currency, p.Gateway,
		p.TransactionRef, string(p.Status), p.CreatedAt,
	)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (*Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, `SELECT `+cols+` FROM payments WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// FindByOrderID returns the most recent payment for an order; the webhook
// path treats the order id as the lookup key.
func (r *Repo) FindByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, `
		SELECT `+cols+` FROM payments WHERE order_id=$1
		ORDER BY created_at DESC LIMIT 1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// MarkStatus writes status, transaction ref and gateway. Forward-only: a
// payment already PAID is never rewritten, so replayed or out-of-order
// webhooks cannot downgrade it. Returns whether a row actually changed.
func (r *Repo) MarkStatus(ctx context.Context, id string, status Status, transactionRef, gateway string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE payments SET
			status = $2,
			transaction_ref = COALESCE(NULLIF($3,''), transaction_ref),
			gateway = COALESCE(NULLIF($4,''), gateway),
			updated_at = now()
		WHERE id = $1 AND status <> 'PAID'`,
		id, string(status), transactionRef, gateway)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
