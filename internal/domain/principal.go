package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Principal struct {
	ID                  int64           `db:"id" json:"id"`
	MerchantID          int64           `db:"merchant_id" json:"merchant_id"`
	FirstName           string          `db:"first_name" json:"first_name"`
	LastName            string          `db:"last_name" json:"last_name"`
	SSNSealed           string          `db:"ssn_sealed" json:"-"`
	SSNIndex            string          `db:"ssn_index" json:"-"`
	SSNMasked           string          `db:"ssn_masked" json:"ssn_masked"`
	DateOfBirth         Date            `db:"date_of_birth" json:"date_of_birth"`
	OwnershipPercentage decimal.Decimal `db:"ownership_percentage" json:"ownership_percentage"`
	HomeAddress         string          `db:"home_address" json:"home_address"`
	City                string          `db:"city" json:"city"`
	State               string          `db:"state" json:"state"`
	Zip                 string          `db:"zip" json:"zip"`
	Phone               string          `db:"phone" json:"phone"`
	Email               string          `db:"email" json:"email"`
	IsPrimaryContact    bool            `db:"is_primary_contact" json:"is_primary_contact"`
	IsGuarantor         bool            `db:"is_guarantor" json:"is_guarantor"`
	IsDeleted           bool            `db:"is_deleted" json:"-"`
	DeletedAt           *time.Time      `db:"deleted_at" json:"-"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

func (p Principal) FullName() string { return p.FirstName + " " + p.LastName }

type PrimaryContactRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OwnershipSummary struct {
	MerchantID               int64              `json:"merchant_id"`
	PrincipalCount           int                `json:"principal_count"`
	TotalOwnershipPercentage decimal.Decimal    `json:"total_ownership_percentage"`
	OwnershipAllocated       bool               `json:"ownership_allocated"`
	PrimaryContact           *PrimaryContactRef `json:"primary_contact"`
	GuarantorCount           int                `json:"guarantor_count"`
	Principals               []Principal        `json:"principals"`
}
