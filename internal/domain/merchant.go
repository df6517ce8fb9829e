package domain

import "time"

const (
	MerchantLead                = "lead"
	MerchantProspect            = "prospect"
	MerchantApplicationSent     = "application_sent"
	MerchantApplicationReceived = "application_received"
	MerchantInUnderwriting      = "in_underwriting"
	MerchantApproved            = "approved"
	MerchantDeclined            = "declined"
	MerchantFunded              = "funded"
	MerchantRenewed             = "renewed"
	MerchantChurned             = "churned"
	MerchantBlacklisted         = "blacklisted"
	MerchantClosed              = "closed"
)

var MerchantStatuses = []string{
	MerchantLead, MerchantProspect, MerchantApplicationSent, MerchantApplicationReceived,
	MerchantInUnderwriting, MerchantApproved, MerchantDeclined, MerchantFunded,
	MerchantRenewed, MerchantChurned, MerchantBlacklisted, MerchantClosed,
}

var EntityTypes = []string{
	"LLC", "Corporation", "S-Corp", "C-Corp", "Partnership",
	"Sole Proprietorship", "LLP", "Non-Profit", "Other",
}

type Merchant struct {
	ID            int64      `db:"id" json:"id"`
	CompanyName   string     `db:"company_name" json:"company_name"`
	Address       string     `db:"address" json:"address"`
	City          string     `db:"city" json:"city"`
	State         string     `db:"state" json:"state"`
	Zip           string     `db:"zip" json:"zip"`
	FEIN          *string    `db:"fein" json:"fein"`
	Phone         string     `db:"phone" json:"phone"`
	EntityType    string     `db:"entity_type" json:"entity_type"`
	SubmittedDate *Date      `db:"submitted_date" json:"submitted_date"`
	Email         string     `db:"email" json:"email"`
	ContactPerson string     `db:"contact_person" json:"contact_person"`
	Status        string     `db:"status" json:"status"`
	Notes         string     `db:"notes" json:"notes"`
	IsDeleted     bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at"`
	DeletedBy     string     `db:"deleted_by" json:"deleted_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// MerchantFilter narrows merchant listings.
type MerchantFilter struct {
	Status         string
	Search         string
	SortBy         string
	SortDesc       bool
	Skip           int
	Limit          int
	IncludeDeleted bool
}

type MerchantStats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	RecentCount int            `json:"recent_count"`
}
