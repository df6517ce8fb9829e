package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
	"mcacrm/internal/repos"
	"mcacrm/internal/validate"
)

// OldDealPayoff names an old deal and the balance the renewal transfers off it.
type OldDealPayoff struct {
	OldDealID       int64           `json:"old_deal_id" validate:"required,gt=0"`
	TransferBalance decimal.Decimal `json:"transfer_balance" validate:"required,gt=0"`
	PayoffDate      *domain.Date    `json:"payoff_date"`
	Notes           string          `json:"notes" validate:"max=1000"`
}

type RenewalCreate struct {
	MerchantID       int64           `json:"merchant_id" validate:"required,gt=0"`
	BankAccountID    *int64          `json:"bank_account_id" validate:"omitnil,gt=0"`
	OfferID          int64           `json:"offer_id" validate:"required,gt=0"`
	FundingDate      *domain.Date    `json:"funding_date" validate:"required"`
	FirstPaymentDate *domain.Date    `json:"first_payment_date" validate:"required"`
	OldDeals         []OldDealPayoff `json:"old_deals" validate:"required,min=1,dive"`
	Notes            string          `json:"notes" validate:"max=2000"`
	CreatedBy        string          `json:"created_by" validate:"max=100"`
}

func (in *RenewalCreate) Normalize() {
	in.Notes = strings.TrimSpace(in.Notes)
	in.CreatedBy = strings.TrimSpace(in.CreatedBy)
	for i := range in.OldDeals {
		in.OldDeals[i].Notes = strings.TrimSpace(in.OldDeals[i].Notes)
	}
}

func (in *RenewalCreate) Check() validate.Errors {
	var errs validate.Errors
	if in.FundingDate != nil && in.FirstPaymentDate != nil && in.FirstPaymentDate.Before(in.FundingDate.Time) {
		errs = append(errs, validate.FieldError{Field: "first_payment_date", Message: "First payment date cannot be before funding date", Type: "value_error"})
	}
	seen := map[int64]bool{}
	for _, od := range in.OldDeals {
		if seen[od.OldDealID] {
			errs = append(errs, validate.FieldError{Field: "old_deals", Message: "Old deals must not repeat", Type: "value_error"})
			break
		}
		seen[od.OldDealID] = true
	}
	return errs
}

type RenewalInfoUpdate struct {
	TransferBalance    *decimal.Decimal `json:"transfer_balance" validate:"omitnil,gt=0"`
	FinalPaymentAmount *decimal.Decimal `json:"final_payment_amount" validate:"omitnil,gt=0"`
	PayoffDate         *domain.Date     `json:"payoff_date"`
	Notes              *string          `json:"notes" validate:"omitnil,max=1000"`
}

type RenewalService struct {
	db        *sqlx.DB
	Renewals  *repos.RenewalRepo
	Deals     *repos.DealRepo
	Merchants *repos.MerchantRepo
	Offers    *repos.OfferRepo
	Accounts  *repos.BankAccountRepo
}

func NewRenewalService(db *sqlx.DB) *RenewalService {
	return &RenewalService{
		db:        db,
		Renewals:  repos.NewRenewalRepo(db),
		Deals:     repos.NewDealRepo(db),
		Merchants: repos.NewMerchantRepo(db),
		Offers:    repos.NewOfferRepo(db),
		Accounts:  repos.NewBankAccountRepo(db),
	}
}

// CreateRenewalDeal funds a new deal whose proceeds first pay off the old
// deals. The deal, its payoff records and the old deal statuses are written
// in one transaction.
func (s *RenewalService) CreateRenewalDeal(ctx context.Context, in RenewalCreate) (*domain.Deal, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.Merchants.Get(ctx, in.MerchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	o, err := fundableOffer(ctx, s.Offers, in.MerchantID, in.OfferID)
	if err != nil {
		return nil, err
	}
	if in.BankAccountID != nil {
		b, err := s.Accounts.Get(ctx, *in.BankAccountID)
		if err != nil {
			return nil, orNotFound(err, "Bank account")
		}
		if b.MerchantID != in.MerchantID {
			return nil, Rule("Bank account does not belong to merchant")
		}
	}
	transfer := decimal.Zero
	for _, od := range in.OldDeals {
		old, err := s.Deals.Get(ctx, od.OldDealID)
		if errors.Is(err, repos.ErrNotFound) {
			return nil, &NotFoundError{Msg: fmt.Sprintf("Old deal %d not found", od.OldDealID)}
		}
		if err != nil {
			return nil, err
		}
		if old.MerchantID != in.MerchantID {
			return nil, Rule("Old deal %d does not belong to merchant", od.OldDealID)
		}
		if old.Status == domain.DealRenewed {
			return nil, Rule("Deal %d has already been renewed", od.OldDealID)
		}
		transfer = transfer.Add(domain.Money(od.TransferBalance))
	}
	d := newDeal(o, in.MerchantID, in.BankAccountID, *in.FundingDate, *in.FirstPaymentDate, in.Notes, in.CreatedBy)
	d.IsRenewal = true
	d.TotalTransferBalance = transfer
	d.NetCashToMerchant = domain.Money(o.Advance.Sub(o.UpfrontFees).Sub(transfer))
	if d.NetCashToMerchant.IsNegative() {
		return nil, Rule("Transfer balances (%s) exceed the net funds of the offer", transfer.StringFixed(2))
	}
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := insertDeal(ctx, tx, d, o); err != nil {
			return err
		}
		rr, dr := repos.NewRenewalRepo(tx), repos.NewDealRepo(tx)
		for _, od := range in.OldDeals {
			info := &domain.RenewalInfo{
				OldDealID:       od.OldDealID,
				TransferBalance: domain.Money(od.TransferBalance),
				PayoffDate:      od.PayoffDate,
				Notes:           od.Notes,
			}
			if err := rr.CreateInfo(ctx, info); err != nil {
				return err
			}
			if err := rr.Link(ctx, d.ID, info.ID); err != nil {
				return err
			}
			rel := &domain.RenewalRelationship{OldDealID: od.OldDealID, NewDealID: d.ID, RenewalInfoID: info.ID}
			if err := rr.CreateRelationship(ctx, rel); err != nil {
				return err
			}
			if err := dr.SetStatus(ctx, od.OldDealID, domain.DealRenewed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, orConflict(err, "Deal number already taken, retry")
	}
	return d, nil
}

func (s *RenewalService) renewalDeal(ctx context.Context, id int64) (*domain.Deal, error) {
	d, err := s.Deals.Get(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Deal")
	}
	if !d.IsRenewal {
		return nil, Rule("Deal is not a renewal")
	}
	return d, nil
}

func (s *RenewalService) GetInfo(ctx context.Context, id int64) (*domain.RenewalInfo, error) {
	ri, err := s.Renewals.GetInfo(ctx, id)
	return ri, orNotFound(err, "Renewal info")
}

// UpdateInfo edits a payoff record; a new transfer balance flows into the
// renewal deal's totals.
func (s *RenewalService) UpdateInfo(ctx context.Context, id int64, in RenewalInfoUpdate) (*domain.RenewalInfo, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	ri, err := s.GetInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.TransferBalance != nil {
		ri.TransferBalance = domain.Money(*in.TransferBalance)
	}
	if in.FinalPaymentAmount != nil {
		v := domain.Money(*in.FinalPaymentAmount)
		ri.FinalPaymentAmount = &v
	}
	if in.PayoffDate != nil {
		ri.PayoffDate = in.PayoffDate
	}
	if in.Notes != nil {
		ri.Notes = strings.TrimSpace(*in.Notes)
	}
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rr := repos.NewRenewalRepo(tx)
		if err := rr.UpdateInfo(ctx, ri); err != nil {
			return err
		}
		if in.TransferBalance == nil {
			return nil
		}
		dealID, err := rr.DealForInfo(ctx, id)
		if errors.Is(err, repos.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		total, err := rr.TransferTotal(ctx, dealID)
		if err != nil {
			return err
		}
		dr := repos.NewDealRepo(tx)
		d, err := dr.Get(ctx, dealID)
		if err != nil {
			return err
		}
		net := domain.Money(d.FundedAmount.Sub(d.UpfrontFees).Sub(total))
		return dr.SetTransfer(ctx, dealID, domain.Money(total), net)
	})
	if err != nil {
		return nil, orNotFound(err, "Renewal info")
	}
	return ri, nil
}

func (s *RenewalService) InfoByDeal(ctx context.Context, dealID int64) ([]domain.RenewalInfo, error) {
	if _, err := s.renewalDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.Renewals.InfoByDeal(ctx, dealID)
}

func (s *RenewalService) OldDeals(ctx context.Context, dealID int64) ([]domain.RenewedDeal, error) {
	if _, err := s.renewalDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.Renewals.RenewedBy(ctx, dealID)
}

func (s *RenewalService) Summary(ctx context.Context, dealID int64) (*domain.RenewalSummary, error) {
	d, err := s.Deals.Get(ctx, dealID)
	if errors.Is(err, repos.ErrNotFound) || (err == nil && !d.IsRenewal) {
		return nil, &NotFoundError{Msg: "Deal not found or is not a renewal"}
	}
	if err != nil {
		return nil, err
	}
	old, err := s.Renewals.RenewedBy(ctx, dealID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(old))
	for _, o := range old {
		ids = append(ids, o.DealID)
	}
	return &domain.RenewalSummary{
		DealID:               d.ID,
		DealNumber:           d.DealNumber,
		IsRenewal:            d.IsRenewal,
		FundedAmount:         d.FundedAmount,
		TotalTransferBalance: d.TotalTransferBalance,
		NetCashToMerchant:    d.NetCashToMerchant,
		OldDealsCount:        len(ids),
		OldDealIDs:           ids,
		CreatedAt:            d.CreatedAt,
	}, nil
}

// RenewedInto returns the deal id renewed into, or nil when it never was.
func (s *RenewalService) RenewedInto(ctx context.Context, oldDealID int64) (*domain.RenewalTarget, error) {
	t, err := s.Renewals.RenewedInto(ctx, oldDealID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (s *RenewalService) Chain(ctx context.Context, dealID int64) (*domain.RenewalChain, error) {
	d, err := s.Deals.Get(ctx, dealID)
	if err != nil {
		return nil, orNotFound(err, "Deal")
	}
	into, err := s.RenewedInto(ctx, dealID)
	if err != nil {
		return nil, err
	}
	from := []domain.RenewedDeal{}
	if d.IsRenewal {
		if from, err = s.Renewals.RenewedBy(ctx, dealID); err != nil {
			return nil, err
		}
	}
	return &domain.RenewalChain{
		DealID:      d.ID,
		DealNumber:  d.DealNumber,
		WasRenewed:  into != nil,
		RenewedInto: into,
		IsRenewal:   d.IsRenewal,
		RenewedFrom: from,
	}, nil
}

// Reverse undoes an active renewal link and reactivates a renewed old deal.
func (s *RenewalService) Reverse(ctx context.Context, oldDealID, newDealID int64) error {
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := repos.NewRenewalRepo(tx).Reverse(ctx, oldDealID, newDealID); err != nil {
			return err
		}
		dr := repos.NewDealRepo(tx)
		old, err := dr.Get(ctx, oldDealID)
		if err != nil {
			return err
		}
		if old.Status == domain.DealRenewed {
			return dr.SetStatus(ctx, oldDealID, domain.DealActive)
		}
		return nil
	})
	if errors.Is(err, repos.ErrNotFound) {
		return &NotFoundError{Msg: "Renewal relationship not found or already reversed"}
	}
	return err
}

func (s *RenewalService) MerchantRenewalDeals(ctx context.Context, merchantID int64) ([]domain.Deal, error) {
	if _, err := s.Merchants.Get(ctx, merchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	return s.Deals.ByMerchant(ctx, merchantID, true)
}

func (s *RenewalService) Relationships(ctx context.Context, f domain.RelationshipFilter) ([]domain.RenewalRelationship, error) {
	return s.Renewals.Relationships(ctx, f)
}
