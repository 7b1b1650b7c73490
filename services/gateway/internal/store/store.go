package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrClientNotFound = errors.New("client record not found")

// Admin approval states for a client record.
const (
	ApprovalPending  = "PENDING"
	ApprovalVerified = "VERIFIED"
	ApprovalRejected = "REJECTED"
)

// ClientRecord links an internal user to their upstream commerce identity
// and verification status. Records are never deleted, only superseded.
type ClientRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ClientID      string    `json:"client_id"`
	IsKycVerified bool      `json:"is_kyc_verified"`
	AdminApproval string    `json:"admin_approval"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderRecord mirrors an upstream order. The external order id is immutable;
// status fields are mutated only by the webhook relay.
type OrderRecord struct {
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// GetClientByExternalID loads the live client record for an upstream client id.
func (s *Store) GetClientByExternalID(ctx context.Context, clientID string) (ClientRecord, error) {
	var rec ClientRecord
	err := s.DB.QueryRow(ctx, `
SELECT id::text, user_id, client_id, is_kyc_verified, admin_approval, created_at
FROM hb_clients
WHERE client_id=$1 AND superseded_at IS NULL
`, clientID).Scan(&rec.ID, &rec.UserID, &rec.ClientID, &rec.IsKycVerified, &rec.AdminApproval, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClientRecord{}, ErrClientNotFound
		}
		return ClientRecord{}, err
	}
	return rec, nil
}

// UserOwnsClient reports whether the user already has a live client record.
func (s *Store) UserOwnsClient(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
SELECT EXISTS(
  SELECT 1 FROM hb_clients WHERE user_id=$1 AND superseded_at IS NULL
)
`, userID).Scan(&exists)
	return exists, err
}

// InsertOrderMirror records a local mirror of an order placed upstream.
// Replayed creates are absorbed by the conflict clause.
func (s *Store) InsertOrderMirror(ctx context.Context, rec OrderRecord) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO hb_orders(order_id,user_id,status,payment_status)
VALUES($1,$2,$3,$4)
ON CONFLICT (order_id) DO NOTHING
`, rec.OrderID, rec.UserID, rec.Status, rec.PaymentStatus)
	return err
}

func (s *Store) RecordAuditEvent(ctx context.Context, eventType, userID, clientID string, payload []byte) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO hb_audit_events(event_type,user_id,client_id,payload)
VALUES($1,$2,$3,$4::jsonb)
`, eventType, nullable(userID), nullable(clientID), string(payload))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
