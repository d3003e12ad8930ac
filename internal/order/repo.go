package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// Create persists the order and its items as one atomic write.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, customer_email, total_cents, shipping_address,
			coupon_code, status, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, NULLIF($5,''), NULLIF($6,''), $7, $8, $8)`,
		o.ID, o.CustomerID, o.CustomerEmail, o.TotalCents, o.ShippingAddress,
		o.CouponCode, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, vendor_id, title, image,
				variant_sku, unit_price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8, $9)`,
			it.ID, it.OrderID, it.ProductID, it.VendorID, it.Title, it.Image,
			it.VariantSKU, it.UnitPriceCents, it.Quantity,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const orderCols = `id, COALESCE(customer_id,''), COALESCE(customer_email,''), total_cents,
	COALESCE(shipping_address,''), COALESCE(coupon_code,''), status, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerEmail, &o.TotalCents,
		&o.ShippingAddress, &o.CouponCode, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, vendor_id, title, COALESCE(image,''),
			COALESCE(variant_sku,''), unit_price_cents, quantity
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VendorID, &it.Title,
			&it.Image, &it.VariantSKU, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type ListFilter struct {
	CustomerID string
	Status     string
	Page       int
	Limit      int
}

func (r *Repo) List(ctx context.Context, f ListFilter) (int, []*Order, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	where := ` WHERE ($1 = '' OR customer_id = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, f.CustomerID, f.Status).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders`+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.CustomerID, f.Status, f.Limit, (f.Page-1)*f.Limit)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	for _, o := range out {
		if o.Items, err = r.items(ctx, o.ID); err != nil {
			return 0, nil, err
		}
	}
	return total, out, nil
}

// SetStatus writes the status unconditionally; transition legality is the
// caller's concern (see Workflow.UpdateStatus).
func (r *Repo) SetStatus(ctx context.Context, id string, status Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
