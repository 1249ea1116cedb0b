package domain

import (
	"errors"
)

type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, errors.New("amount cannot be negative")
	}
	if currency == "" {
		return Money{}, errors.New("currency is required")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// OrderKey is the secondary secret that prevents order id enumeration.
type OrderKey string

// TransactionID is the identifier the processor assigns to an attempt.
type TransactionID string
