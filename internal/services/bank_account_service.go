package services

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"mcacrm/internal/domain"
	"mcacrm/internal/repos"
	"mcacrm/internal/validate"
)

type BankAccountCreate struct {
	AccountName   string `json:"account_name" validate:"required,min=1,max=100"`
	AccountNumber string `json:"account_number" validate:"required,lastfour"`
	RoutingNumber string `json:"routing_number" validate:"required,routing"`
	BankName      string `json:"bank_name" validate:"required,min=1,max=100"`
	AccountType   string `json:"account_type" validate:"omitempty,accounttype"`
	IsActive      *bool  `json:"is_active"`
	IsPrimary     bool   `json:"is_primary"`
}

func (in *BankAccountCreate) Normalize() {
	in.AccountName = validate.Collapse(in.AccountName)
	in.AccountNumber = validate.Digits(in.AccountNumber)
	in.RoutingNumber = validate.Digits(in.RoutingNumber)
	in.BankName = validate.Collapse(in.BankName)
	in.AccountType = strings.ToLower(strings.TrimSpace(in.AccountType))
}

type BankAccountUpdate struct {
	AccountName   *string `json:"account_name" validate:"omitnil,min=1,max=100"`
	AccountNumber *string `json:"account_number" validate:"omitnil,lastfour"`
	RoutingNumber *string `json:"routing_number" validate:"omitnil,routing"`
	BankName      *string `json:"bank_name" validate:"omitnil,min=1,max=100"`
	AccountType   *string `json:"account_type" validate:"omitnil,accounttype"`
	IsActive      *bool   `json:"is_active"`
	IsPrimary     *bool   `json:"is_primary"`
}

func (in *BankAccountUpdate) Normalize() {
	mapPtr(in.AccountName, validate.Collapse)
	mapPtr(in.AccountNumber, validate.Digits)
	mapPtr(in.RoutingNumber, validate.Digits)
	mapPtr(in.BankName, validate.Collapse)
	mapPtr(in.AccountType, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

type BankAccountService struct {
	db        *sqlx.DB
	Accounts  *repos.BankAccountRepo
	Merchants *repos.MerchantRepo
}

func NewBankAccountService(db *sqlx.DB) *BankAccountService {
	return &BankAccountService{db: db, Accounts: repos.NewBankAccountRepo(db), Merchants: repos.NewMerchantRepo(db)}
}

func (s *BankAccountService) merchant(ctx context.Context, id int64) error {
	_, err := s.Merchants.Get(ctx, id)
	return orNotFound(err, "Merchant")
}

func (s *BankAccountService) Create(ctx context.Context, merchantID int64, in BankAccountCreate) (*domain.BankAccount, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.merchant(ctx, merchantID); err != nil {
		return nil, err
	}
	b := &domain.BankAccount{
		MerchantID:    merchantID,
		AccountName:   in.AccountName,
		AccountNumber: in.AccountNumber,
		RoutingNumber: in.RoutingNumber,
		BankName:      in.BankName,
		AccountType:   in.AccountType,
		IsActive:      in.IsActive == nil || *in.IsActive,
		IsPrimary:     in.IsPrimary,
	}
	if b.AccountType == "" {
		b.AccountType = domain.AccountChecking
	}
	var id int64
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := repos.NewBankAccountRepo(tx)
		if err := r.Create(ctx, b); err != nil {
			return err
		}
		id = b.ID
		if b.IsPrimary {
			return r.ClearPrimary(ctx, merchantID, b.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Get loads an account through its merchant; a foreign account reads as missing.
func (s *BankAccountService) Get(ctx context.Context, merchantID, id int64) (*domain.BankAccount, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.MerchantID != merchantID {
		return nil, NotFound("Bank account")
	}
	return b, nil
}

func (s *BankAccountService) GetByID(ctx context.Context, id int64) (*domain.BankAccount, error) {
	b, err := s.Accounts.Get(ctx, id)
	return b, orNotFound(err, "Bank account")
}

func (s *BankAccountService) List(ctx context.Context, merchantID int64, activeOnly bool, skip, limit int) ([]domain.BankAccount, error) {
	if err := s.merchant(ctx, merchantID); err != nil {
		return nil, err
	}
	return s.Accounts.ByMerchant(ctx, merchantID, activeOnly, skip, limit)
}

func (s *BankAccountService) Update(ctx context.Context, merchantID, id int64, in BankAccountUpdate) (*domain.BankAccount, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	assign(&b.AccountName, in.AccountName)
	assign(&b.AccountNumber, in.AccountNumber)
	assign(&b.RoutingNumber, in.RoutingNumber)
	assign(&b.BankName, in.BankName)
	assign(&b.AccountType, in.AccountType)
	assign(&b.IsActive, in.IsActive)
	assign(&b.IsPrimary, in.IsPrimary)
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := repos.NewBankAccountRepo(tx)
		if b.IsPrimary {
			if err := r.ClearPrimary(ctx, merchantID, id); err != nil {
				return err
			}
		}
		return r.Update(ctx, b)
	})
	if err != nil {
		return nil, orNotFound(err, "Bank account")
	}
	return b, nil
}

// SetPrimary makes the account the merchant's only primary account.
func (s *BankAccountService) SetPrimary(ctx context.Context, merchantID, id int64) (*domain.BankAccount, error) {
	if _, err := s.Get(ctx, merchantID, id); err != nil {
		return nil, err
	}
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := repos.NewBankAccountRepo(tx)
		if err := r.ClearPrimary(ctx, merchantID, id); err != nil {
			return err
		}
		return r.SetPrimary(ctx, id)
	})
	if err != nil {
		return nil, orNotFound(err, "Bank account")
	}
	return s.GetByID(ctx, id)
}

func (s *BankAccountService) Delete(ctx context.Context, merchantID, id int64) error {
	if _, err := s.Get(ctx, merchantID, id); err != nil {
		return err
	}
	used, err := s.Accounts.InUse(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return Rule("Cannot delete bank account used by a deal")
	}
	return orNotFound(s.Accounts.Delete(ctx, id), "Bank account")
}
