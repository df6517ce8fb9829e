package domain

import "time"

const (
	AccountChecking = "checking"
	AccountSavings  = "savings"
)

type BankAccount struct {
	ID            int64     `db:"id" json:"id"`
	MerchantID    int64     `db:"merchant_id" json:"merchant_id"`
	MerchantName  string    `db:"merchant_name" json:"merchant_name"`
	AccountName   string    `db:"account_name" json:"account_name"`
	AccountNumber string    `db:"account_number" json:"account_number"`
	RoutingNumber string    `db:"routing_number" json:"routing_number"`
	BankName      string    `db:"bank_name" json:"bank_name"`
	AccountType   string    `db:"account_type" json:"account_type"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	IsPrimary     bool      `db:"is_primary" json:"is_primary"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
