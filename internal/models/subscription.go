package models

import "time"

// SubscriptionStatus — статус подписки.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// Subscription — подписка пользователя на продукт.
// Price фиксируется в момент оформления и не меняется вслед за ценами контракта.
type Subscription struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	ProductID       string             `json:"product_id"`
	Product         Product            `json:"product"` // Снимок продукта на момент оформления
	StartDate       time.Time          `json:"start_date"`
	NextBillingDate time.Time          `json:"next_billing_date"`
	Status          SubscriptionStatus `json:"status"`
	Price           float64            `json:"price"`
}

// InvoiceStatus — статус счёта.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePending InvoiceStatus = "pending"
	InvoiceFailed  InvoiceStatus = "failed"
)

// Invoice — счёт по подписке.
type Invoice struct {
	ID             string        `json:"id"`
	SubscriptionID string        `json:"subscription_id"`
	ProductName    string        `json:"product_name"`
	BillingDate    time.Time     `json:"billing_date"`
	Amount         float64       `json:"amount"`
	Status         InvoiceStatus `json:"status"`
}
