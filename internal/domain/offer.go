package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OfferDraft    = "draft"
	OfferSent     = "sent"
	OfferSelected = "selected"
	OfferFunded   = "funded"
)

var OfferStatuses = []string{OfferDraft, OfferSent, OfferSelected, OfferFunded}

const (
	FreqDaily    = "daily"
	FreqWeekly   = "weekly"
	FreqBiWeekly = "bi-weekly"
	FreqMonthly  = "monthly"
)

var PaymentFrequencies = []string{FreqDaily, FreqWeekly, FreqBiWeekly, FreqMonthly}

// PeriodsPerYear is the annualisation factor for a payment frequency.
func PeriodsPerYear(freq string) int64 {
	switch freq {
	case FreqWeekly:
		return 52
	case FreqBiWeekly:
		return 26
	case FreqMonthly:
		return 12
	default:
		return 365
	}
}

type Offer struct {
	ID                   int64            `db:"id" json:"id"`
	MerchantID           int64            `db:"merchant_id" json:"merchant_id"`
	Advance              decimal.Decimal  `db:"advance" json:"advance"`
	Factor               decimal.Decimal  `db:"factor" json:"factor"`
	UpfrontFees          decimal.Decimal  `db:"upfront_fees" json:"upfront_fees"`
	UpfrontFeePercentage *decimal.Decimal `db:"upfront_fee_percentage" json:"upfront_fee_percentage"`
	SpecifiedPercentage  *decimal.Decimal `db:"specified_percentage" json:"specified_percentage"`
	PaymentFrequency     string           `db:"payment_frequency" json:"payment_frequency"`
	NumberOfPeriods      int              `db:"number_of_periods" json:"number_of_periods"`
	PaymentAmount        decimal.Decimal  `db:"payment_amount" json:"payment_amount"`
	RTR                  decimal.Decimal  `db:"rtr" json:"rtr"`
	NetFunds             decimal.Decimal  `db:"net_funds" json:"net_funds"`
	APR                  decimal.Decimal  `db:"apr" json:"apr"`
	Renewal              bool             `db:"renewal" json:"renewal"`
	TransferBalance      decimal.Decimal  `db:"transfer_balance" json:"transfer_balance"`
	DealRef              *string          `db:"deal_id" json:"deal_id"`
	Status               string           `db:"status" json:"status"`
	SentAt               *time.Time       `db:"sent_at" json:"sent_at"`
	SelectedAt           *time.Time       `db:"selected_at" json:"selected_at"`
	FundedAt             *time.Time       `db:"funded_at" json:"funded_at"`
	IsDeleted            bool             `db:"is_deleted" json:"is_deleted"`
	DeletedAt            *time.Time       `db:"deleted_at" json:"deleted_at"`
	DeletedBy            string           `db:"deleted_by" json:"deleted_by,omitempty"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updated_at"`
}

// Recalculate derives RTR, net funds, the payment schedule and APR.
// With periodsGiven the payment amount follows from the periods; otherwise
// the periods are the RTR divided by PaymentAmount, rounded up.
func (o *Offer) Recalculate(periodsGiven bool) {
	o.RTR = Money(o.Advance.Mul(o.Factor))
	o.NetFunds = Money(o.Advance.Sub(o.UpfrontFees))
	switch {
	case periodsGiven && o.NumberOfPeriods > 0:
		o.PaymentAmount = Money(o.RTR.Div(decimal.NewFromInt(int64(o.NumberOfPeriods))))
	case o.PaymentAmount.IsPositive():
		o.NumberOfPeriods = int(o.RTR.Div(o.PaymentAmount).Ceil().IntPart())
	}
	o.APR = decimal.Zero
	if o.Advance.IsPositive() && o.NumberOfPeriods > 0 {
		o.APR = o.RTR.Sub(o.Advance).Div(o.Advance).
			Mul(decimal.NewFromInt(PeriodsPerYear(o.PaymentFrequency))).
			Div(decimal.NewFromInt(int64(o.NumberOfPeriods))).
			Mul(Hundred).Round(2)
	}
}
