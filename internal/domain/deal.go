package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DealActive    = "active"
	DealCompleted = "completed"
	DealDefaulted = "defaulted"
	DealSuspended = "suspended"
	DealCancelled = "cancelled"
	DealRenewed   = "renewed"
)

var DealStatuses = []string{DealActive, DealCompleted, DealDefaulted, DealSuspended, DealCancelled, DealRenewed}

type Deal struct {
	ID                   int64           `db:"id" json:"id"`
	DealNumber           string          `db:"deal_number" json:"deal_number"`
	MerchantID           int64           `db:"merchant_id" json:"merchant_id"`
	OfferID              int64           `db:"offer_id" json:"offer_id"`
	BankAccountID        *int64          `db:"bank_account_id" json:"bank_account_id"`
	IsRenewal            bool            `db:"is_renewal" json:"is_renewal"`
	TotalTransferBalance decimal.Decimal `db:"total_transfer_balance" json:"total_transfer_balance"`
	NetCashToMerchant    decimal.Decimal `db:"net_cash_to_merchant" json:"net_cash_to_merchant"`
	FundedAmount         decimal.Decimal `db:"funded_amount" json:"funded_amount"`
	FactorRate           decimal.Decimal `db:"factor_rate" json:"factor_rate"`
	UpfrontFees          decimal.Decimal `db:"upfront_fees" json:"upfront_fees"`
	RTRAmount            decimal.Decimal `db:"rtr_amount" json:"rtr_amount"`
	PaymentAmount        decimal.Decimal `db:"payment_amount" json:"payment_amount"`
	PaymentFrequency     string          `db:"payment_frequency" json:"payment_frequency"`
	NumberOfPayments     int             `db:"number_of_payments" json:"number_of_payments"`
	Status               string          `db:"status" json:"status"`
	FundingDate          Date            `db:"funding_date" json:"funding_date"`
	FirstPaymentDate     *Date           `db:"first_payment_date" json:"first_payment_date"`
	MaturityDate         *Date           `db:"maturity_date" json:"maturity_date"`
	ActualCompletionDate *Date           `db:"actual_completion_date" json:"actual_completion_date"`
	TotalPaid            decimal.Decimal `db:"total_paid" json:"total_paid"`
	BalanceRemaining     decimal.Decimal `db:"balance_remaining" json:"balance_remaining"`
	PaymentsRemaining    int             `db:"payments_remaining" json:"payments_remaining"`
	LastPaymentDate      *Date           `db:"last_payment_date" json:"last_payment_date"`
	InCollections        bool            `db:"in_collections" json:"in_collections"`
	CollectionsNotes     string          `db:"collections_notes" json:"collections_notes"`
	Notes                string          `db:"notes" json:"notes"`
	CreatedBy            string          `db:"created_by" json:"created_by"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// MaturityDate projects the last payment day from the funding date.
func MaturityDate(funding Date, freq string, payments int) Date {
	switch freq {
	case FreqDaily:
		// five business days per week
		return funding.AddDays(payments * 7 / 5)
	case FreqWeekly:
		return funding.AddDays(payments * 7)
	case FreqBiWeekly:
		return funding.AddDays(payments * 14)
	case FreqMonthly:
		return funding.AddDays(payments * 30)
	default:
		return funding.AddDays(payments)
	}
}

type DealFilter struct {
	MerchantID      int64
	Status          string
	FundingDateFrom *Date
	FundingDateTo   *Date
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
	InCollections   *bool
	Skip            int
	Limit           int
}

// BalanceUpdate is the recomputed collection state of a deal.
type BalanceUpdate struct {
	TotalPaid         decimal.Decimal
	BalanceRemaining  decimal.Decimal
	PaymentsRemaining int
	LastPaymentDate   *Date
	Status            string
	CompletedOn       *Date
}

type DealSummary struct {
	TotalDeals       int             `json:"total_deals"`
	ActiveDeals      int             `json:"active_deals"`
	CompletedDeals   int             `json:"completed_deals"`
	DefaultedDeals   int             `json:"defaulted_deals"`
	TotalFunded      decimal.Decimal `json:"total_funded"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	AvgFactorRate    decimal.Decimal `json:"average_factor_rate"`
	AvgDealSize      decimal.Decimal `json:"average_deal_size"`
	CompletionRate   decimal.Decimal `json:"completion_rate"`
}
