package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var PaymentTypes = []string{"ACH", "Wire", "Check", "Credit Card", "Debit Card", "Cash", "Other"}

type Payment struct {
	ID          int64           `db:"id" json:"id"`
	DealID      int64           `db:"deal_id" json:"deal_id"`
	PaymentDate time.Time       `db:"payment_date" json:"date"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	PaymentType string          `db:"payment_type" json:"type"`
	Bounced     bool            `db:"bounced" json:"bounced"`
	Notes       string          `db:"notes" json:"notes"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

type PaymentFilter struct {
	DealID      int64
	DateFrom    *time.Time
	DateTo      *time.Time
	PaymentType string
	Bounced     *bool
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
	Skip        int
	Limit       int
}

type PaymentSummary struct {
	DealID          int64           `json:"deal_id"`
	TotalPayments   int             `json:"total_payments"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalBounced    int             `json:"total_bounced"`
	BouncedAmount   decimal.Decimal `json:"bounced_amount"`
	LastPaymentDate *time.Time      `json:"last_payment_date"`
	AveragePayment  decimal.Decimal `json:"average_payment"`
}

type PaymentTypeStat struct {
	PaymentType   string          `db:"payment_type" json:"payment_type"`
	Count         int             `db:"count" json:"count"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	AverageAmount decimal.Decimal `db:"average_amount" json:"average_amount"`
}
