package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order record not found")

// OrderOwner is who to notify about an order update.
type OrderOwner struct {
	UserID string
	Email  string
}

type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// GetOrderOwner resolves the owner of a mirrored order by its upstream id.
func (s *Store) GetOrderOwner(ctx context.Context, orderID string) (OrderOwner, error) {
	var out OrderOwner
	err := s.DB.QueryRow(ctx, `
SELECT o.user_id, COALESCE(c.email,'')
FROM hb_orders o
LEFT JOIN hb_user_credentials c ON c.user_id=o.user_id AND c.revoked_at IS NULL
WHERE o.order_id=$1
LIMIT 1
`, orderID).Scan(&out.UserID, &out.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderOwner{}, ErrOrderNotFound
		}
		return OrderOwner{}, err
	}
	return out, nil
}

// UpdateOrder applies the fields a webhook event carries. Nil fields are
// left untouched. Returns ErrOrderNotFound when no mirror exists.
func (s *Store) UpdateOrder(ctx context.Context, orderID string, status, paymentStatus *string) error {
	tag, err := s.DB.Exec(ctx, `
UPDATE hb_orders
SET status=COALESCE($2,status),
    payment_status=COALESCE($3,payment_status),
    updated_at=$4
WHERE order_id=$1
`, orderID, status, paymentStatus, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
