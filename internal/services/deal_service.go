package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
	"mcacrm/internal/repos"
	"mcacrm/internal/validate"
)

type DealCreate struct {
	MerchantID       int64        `json:"merchant_id" validate:"required,gt=0"`
	OfferID          int64        `json:"offer_id" validate:"required,gt=0"`
	BankAccountID    *int64       `json:"bank_account_id" validate:"omitnil,gt=0"`
	FundingDate      *domain.Date `json:"funding_date" validate:"required"`
	FirstPaymentDate *domain.Date `json:"first_payment_date" validate:"required"`
	Notes            string       `json:"notes" validate:"max=2000"`
	CreatedBy        string       `json:"created_by" validate:"max=100"`
}

func (in *DealCreate) Normalize() {
	in.Notes = strings.TrimSpace(in.Notes)
	in.CreatedBy = strings.TrimSpace(in.CreatedBy)
}

func (in *DealCreate) Check() validate.Errors {
	if in.FundingDate != nil && in.FirstPaymentDate != nil && in.FirstPaymentDate.Before(in.FundingDate.Time) {
		return validate.Errors{{Field: "first_payment_date", Message: "First payment date cannot be before funding date", Type: "value_error"}}
	}
	return nil
}

type DealUpdate struct {
	BankAccountID    *int64           `json:"bank_account_id" validate:"omitnil,gt=0"`
	Status           *string          `json:"status" validate:"omitnil,dealstatus"`
	PaymentAmount    *decimal.Decimal `json:"payment_amount" validate:"omitnil,gt=0"`
	InCollections    *bool            `json:"in_collections"`
	CollectionsNotes *string          `json:"collections_notes" validate:"omitnil,max=2000"`
	Notes            *string          `json:"notes" validate:"omitnil,max=2000"`
}

func (in *DealUpdate) Normalize() {
	mapPtr(in.Status, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	mapPtr(in.CollectionsNotes, strings.TrimSpace)
	mapPtr(in.Notes, strings.TrimSpace)
}

type DealService struct {
	db        *sqlx.DB
	Deals     *repos.DealRepo
	Merchants *repos.MerchantRepo
	Offers    *repos.OfferRepo
	Accounts  *repos.BankAccountRepo
}

func NewDealService(db *sqlx.DB) *DealService {
	return &DealService{
		db:        db,
		Deals:     repos.NewDealRepo(db),
		Merchants: repos.NewMerchantRepo(db),
		Offers:    repos.NewOfferRepo(db),
		Accounts:  repos.NewBankAccountRepo(db),
	}
}

// fundableOffer loads an offer that the merchant may turn into a deal.
func fundableOffer(ctx context.Context, offers *repos.OfferRepo, merchantID, offerID int64) (*domain.Offer, error) {
	o, err := offers.Get(ctx, offerID, false)
	if err != nil {
		return nil, orNotFound(err, "Offer")
	}
	if o.MerchantID != merchantID {
		return nil, Rule("Offer does not belong to merchant")
	}
	if o.Status != domain.OfferSelected {
		return nil, Rule("Offer must be in 'selected' status")
	}
	return o, nil
}

func (s *DealService) checkAccount(ctx context.Context, merchantID int64, accountID *int64) error {
	if accountID == nil {
		return nil
	}
	b, err := s.Accounts.Get(ctx, *accountID)
	if err != nil {
		return orNotFound(err, "Bank account")
	}
	if b.MerchantID != merchantID {
		return Rule("Bank account does not belong to merchant")
	}
	return nil
}

// newDeal copies the offer terms onto a fresh active deal.
func newDeal(o *domain.Offer, merchantID int64, bankAccountID *int64, funding, firstPayment domain.Date, notes, by string) *domain.Deal {
	periods := o.NumberOfPeriods
	if periods <= 0 {
		periods = 1
	}
	rtr := domain.Money(o.Advance.Mul(o.Factor))
	maturity := domain.MaturityDate(funding, o.PaymentFrequency, periods)
	return &domain.Deal{
		MerchantID:           merchantID,
		OfferID:              o.ID,
		BankAccountID:        bankAccountID,
		TotalTransferBalance: decimal.Zero,
		NetCashToMerchant:    domain.Money(o.Advance.Sub(o.UpfrontFees)),
		FundedAmount:         o.Advance,
		FactorRate:           o.Factor,
		UpfrontFees:          o.UpfrontFees,
		RTRAmount:            rtr,
		PaymentAmount:        o.PaymentAmount,
		PaymentFrequency:     o.PaymentFrequency,
		NumberOfPayments:     periods,
		Status:               domain.DealActive,
		FundingDate:          funding,
		FirstPaymentDate:     &firstPayment,
		MaturityDate:         &maturity,
		TotalPaid:            decimal.Zero,
		BalanceRemaining:     rtr,
		PaymentsRemaining:    periods,
		Notes:                notes,
		CreatedBy:            by,
	}
}

// insertDeal numbers and stores d, then marks its offer funded, inside tx.
func insertDeal(ctx context.Context, tx *sqlx.Tx, d *domain.Deal, o *domain.Offer) error {
	dr := repos.NewDealRepo(tx)
	num, err := dr.NextNumber(ctx, d.FundingDate.Year())
	if err != nil {
		return err
	}
	d.DealNumber = num
	if err := dr.Create(ctx, d); err != nil {
		return err
	}
	stampStatus(o, domain.OfferFunded)
	return repos.NewOfferRepo(tx).Update(ctx, o)
}

func (s *DealService) Create(ctx context.Context, in DealCreate) (*domain.Deal, error) {
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
	if err := s.checkAccount(ctx, in.MerchantID, in.BankAccountID); err != nil {
		return nil, err
	}
	d := newDeal(o, in.MerchantID, in.BankAccountID, *in.FundingDate, *in.FirstPaymentDate, in.Notes, in.CreatedBy)
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error { return insertDeal(ctx, tx, d, o) })
	if err != nil {
		return nil, orConflict(err, "Deal number already taken, retry")
	}
	return d, nil
}

func (s *DealService) Get(ctx context.Context, id int64) (*domain.Deal, error) {
	d, err := s.Deals.Get(ctx, id)
	return d, orNotFound(err, "Deal")
}

func (s *DealService) GetByNumber(ctx context.Context, number string) (*domain.Deal, error) {
	d, err := s.Deals.GetByNumber(ctx, strings.TrimSpace(number))
	return d, orNotFound(err, "Deal")
}

func (s *DealService) List(ctx context.Context, f domain.DealFilter) ([]domain.Deal, error) {
	if f.Status != "" && !slices.Contains(domain.DealStatuses, f.Status) {
		return nil, Rule("Invalid status. Must be one of: %s", strings.Join(domain.DealStatuses, ", "))
	}
	return s.Deals.List(ctx, f)
}

func (s *DealService) Active(ctx context.Context) ([]domain.Deal, error) {
	return s.Deals.List(ctx, domain.DealFilter{Status: domain.DealActive, Limit: 1000})
}

func (s *DealService) ByMerchant(ctx context.Context, merchantID int64) ([]domain.Deal, error) {
	if _, err := s.Merchants.Get(ctx, merchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	return s.Deals.ByMerchant(ctx, merchantID, false)
}

func (s *DealService) Update(ctx context.Context, id int64, in DealUpdate) (*domain.Deal, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.BankAccountID != nil {
		if err := s.checkAccount(ctx, d.MerchantID, in.BankAccountID); err != nil {
			return nil, err
		}
		d.BankAccountID = in.BankAccountID
	}
	if in.Status != nil {
		if *in.Status == domain.DealCompleted && d.ActualCompletionDate == nil {
			today := domain.Today()
			d.ActualCompletionDate = &today
		}
		d.Status = *in.Status
	}
	assign(&d.PaymentAmount, in.PaymentAmount)
	assign(&d.InCollections, in.InCollections)
	assign(&d.CollectionsNotes, in.CollectionsNotes)
	assign(&d.Notes, in.Notes)
	if err := s.Deals.Update(ctx, d); err != nil {
		return nil, orNotFound(err, "Deal")
	}
	return d, nil
}

// Cancel is the soft delete of a deal.
func (s *DealService) Cancel(ctx context.Context, id int64) error {
	return orNotFound(s.Deals.SetStatus(ctx, id, domain.DealCancelled), "Deal")
}

// RecalculateBalance rebuilds the collection state from cleared payments.
func (s *DealService) RecalculateBalance(ctx context.Context, id int64) (*domain.Deal, error) {
	var d *domain.Deal
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		d, err = recomputeBalance(ctx, tx, id)
		return err
	})
	return d, orNotFound(err, "Deal")
}

func (s *DealService) Summary(ctx context.Context) (domain.DealSummary, error) {
	return s.Deals.Summary(ctx)
}

// recomputeBalance sums cleared payments onto the deal. An active deal whose
// balance reaches zero is completed.
func recomputeBalance(ctx context.Context, db repos.DBTX, dealID int64) (*domain.Deal, error) {
	deals := repos.NewDealRepo(db)
	d, err := deals.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	c, err := repos.NewPaymentRepo(db).Collected(ctx, dealID)
	if err != nil {
		return nil, err
	}
	b := domain.BalanceUpdate{
		TotalPaid:         domain.Money(c.Total),
		BalanceRemaining:  domain.Money(d.RTRAmount.Sub(c.Total)),
		PaymentsRemaining: max(d.NumberOfPayments-c.Count, 0),
		LastPaymentDate:   d.LastPaymentDate,
		Status:            d.Status,
	}
	if c.LastPayment != nil {
		last := domain.DateOf(*c.LastPayment)
		b.LastPaymentDate = &last
	}
	if d.Status == domain.DealActive && !b.BalanceRemaining.IsPositive() {
		today := domain.Today()
		b.Status, b.CompletedOn = domain.DealCompleted, &today
	}
	if err := deals.SetBalance(ctx, dealID, b); err != nil {
		return nil, err
	}
	d.TotalPaid, d.BalanceRemaining, d.PaymentsRemaining = b.TotalPaid, b.BalanceRemaining, b.PaymentsRemaining
	d.LastPaymentDate, d.Status = b.LastPaymentDate, b.Status
	if b.CompletedOn != nil && d.ActualCompletionDate == nil {
		d.ActualCompletionDate = b.CompletedOn
	}
	d.UpdatedAt = time.Now().UTC()
	return d, nil
}
