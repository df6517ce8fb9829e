package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RelationshipActive    = "active"
	RelationshipReversed  = "reversed"
	RelationshipCancelled = "cancelled"
)

type RenewalInfo struct {
	ID                 int64            `db:"id" json:"id"`
	OldDealID          int64            `db:"old_deal_id" json:"old_deal_id"`
	TransferBalance    decimal.Decimal  `db:"transfer_balance" json:"transfer_balance"`
	FinalPaymentAmount *decimal.Decimal `db:"final_payment_amount" json:"final_payment_amount"`
	PayoffDate         *Date            `db:"payoff_date" json:"payoff_date"`
	Notes              string           `db:"notes" json:"notes"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

type RenewalJunction struct {
	ID            int64     `db:"id" json:"id"`
	DealID        int64     `db:"deal_id" json:"deal_id"`
	RenewalInfoID int64     `db:"renewal_info_id" json:"renewal_info_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type RenewalRelationship struct {
	ID            int64     `db:"id" json:"id"`
	OldDealID     int64     `db:"old_deal_id" json:"old_deal_id"`
	NewDealID     int64     `db:"new_deal_id" json:"new_deal_id"`
	RenewalInfoID int64     `db:"renewal_info_id" json:"renewal_info_id"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type RelationshipFilter struct {
	OldDealID int64
	NewDealID int64
	Status    string
}

// RenewedDeal is an old deal paid off by a renewal.
type RenewedDeal struct {
	DealID          int64           `db:"deal_id" json:"deal_id"`
	DealNumber      string          `db:"deal_number" json:"deal_number"`
	TransferBalance decimal.Decimal `db:"transfer_balance" json:"transfer_balance"`
	PayoffDate      *Date           `db:"payoff_date" json:"payoff_date"`
}

// RenewalTarget is the deal an old deal was renewed into.
type RenewalTarget struct {
	DealID      int64  `db:"deal_id" json:"deal_id"`
	DealNumber  string `db:"deal_number" json:"deal_number"`
	RenewalDate Date   `db:"renewal_date" json:"renewal_date"`
}

type RenewalChain struct {
	DealID      int64          `json:"deal_id"`
	DealNumber  string         `json:"deal_number"`
	WasRenewed  bool           `json:"was_renewed"`
	RenewedInto *RenewalTarget `json:"renewed_into"`
	IsRenewal   bool           `json:"is_renewal"`
	RenewedFrom []RenewedDeal  `json:"renewed_from"`
}

type RenewalSummary struct {
	DealID               int64           `json:"deal_id"`
	DealNumber           string          `json:"deal_number"`
	IsRenewal            bool            `json:"is_renewal"`
	FundedAmount         decimal.Decimal `json:"funded_amount"`
	TotalTransferBalance decimal.Decimal `json:"total_transfer_balance"`
	NetCashToMerchant    decimal.Decimal `json:"net_cash_to_merchant"`
	OldDealsCount        int             `json:"old_deals_count"`
	OldDealIDs           []int64         `json:"old_deal_ids"`
	CreatedAt            time.Time       `json:"created_at"`
}
