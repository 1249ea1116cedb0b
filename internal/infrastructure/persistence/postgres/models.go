package postgres

import "time"

// dbOrder mirrors the orders table row.
type dbOrder struct {
	ID            int64
	OrderKey      string
	PaymentMethod string
	AmountCents   int64
	Currency      string
	Status        string
	TransactionID string
	Captured      bool
	Installments  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
