package postgres

import (
	"github.com/commercekit/globalpay-reconciler/internal/domain"
)

func toDBModel(order *domain.Order) *dbOrder {
	return &dbOrder{
		ID:            order.ID,
		OrderKey:      order.OrderKey,
		PaymentMethod: order.PaymentMethod,
		AmountCents:   order.AmountCents,
		Currency:      order.Currency,
		Status:        string(order.Status),
		TransactionID: order.TransactionID,
		Captured:      order.Captured,
		Installments:  order.Installments,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toDomain(row *dbOrder) *domain.Order {
	return &domain.Order{
		ID:            row.ID,
		OrderKey:      row.OrderKey,
		PaymentMethod: row.PaymentMethod,
		AmountCents:   row.AmountCents,
		Currency:      row.Currency,
		Status:        domain.OrderStatus(row.Status),
		TransactionID: row.TransactionID,
		Captured:      row.Captured,
		Installments:  row.Installments,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
