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

type OfferCreate struct {
	MerchantID           int64            `json:"merchant_id" validate:"required,gt=0"`
	Advance              decimal.Decimal  `json:"advance" validate:"required,gt=0"`
	Factor               decimal.Decimal  `json:"factor" validate:"required,gt=1,lte=2"`
	UpfrontFees          *decimal.Decimal `json:"upfront_fees" validate:"omitnil,gte=0"`
	UpfrontFeePercentage *decimal.Decimal `json:"upfront_fee_percentage" validate:"omitnil,gte=0,lte=100"`
	SpecifiedPercentage  *decimal.Decimal `json:"specified_percentage" validate:"omitnil,gte=0,lte=100"`
	PaymentFrequency     string           `json:"payment_frequency" validate:"omitempty,frequency"`
	NumberOfPeriods      *int             `json:"number_of_periods" validate:"omitnil,gt=0"`
	PaymentAmount        *decimal.Decimal `json:"payment_amount" validate:"omitnil,gt=0"`
	Renewal              bool             `json:"renewal"`
	TransferBalance      *decimal.Decimal `json:"transfer_balance" validate:"omitnil,gte=0"`
	DealRef              string           `json:"deal_id" validate:"max=100"`
	Status               string           `json:"status" validate:"omitempty,offerstatus"`
}

func (in *OfferCreate) Normalize() {
	in.PaymentFrequency = strings.ToLower(strings.TrimSpace(in.PaymentFrequency))
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.DealRef = strings.TrimSpace(in.DealRef)
}

func (in *OfferCreate) Check() validate.Errors {
	if in.NumberOfPeriods == nil && in.PaymentAmount == nil {
		return validate.Errors{{Field: "number_of_periods", Message: "Either number_of_periods or payment_amount is required", Type: "value_error"}}
	}
	return nil
}

type OfferUpdate struct {
	Advance              *decimal.Decimal `json:"advance" validate:"omitnil,gt=0"`
	Factor               *decimal.Decimal `json:"factor" validate:"omitnil,gt=1,lte=2"`
	UpfrontFees          *decimal.Decimal `json:"upfront_fees" validate:"omitnil,gte=0"`
	UpfrontFeePercentage *decimal.Decimal `json:"upfront_fee_percentage" validate:"omitnil,gte=0,lte=100"`
	SpecifiedPercentage  *decimal.Decimal `json:"specified_percentage" validate:"omitnil,gte=0,lte=100"`
	PaymentFrequency     *string          `json:"payment_frequency" validate:"omitnil,frequency"`
	NumberOfPeriods      *int             `json:"number_of_periods" validate:"omitnil,gt=0"`
	PaymentAmount        *decimal.Decimal `json:"payment_amount" validate:"omitnil,gt=0"`
	Renewal              *bool            `json:"renewal"`
	TransferBalance      *decimal.Decimal `json:"transfer_balance" validate:"omitnil,gte=0"`
	DealRef              *string          `json:"deal_id" validate:"omitnil,max=100"`
	Status               *string          `json:"status" validate:"omitnil,offerstatus"`
}

func (in *OfferUpdate) Normalize() {
	mapPtr(in.PaymentFrequency, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	mapPtr(in.Status, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	mapPtr(in.DealRef, strings.TrimSpace)
}

func (in *OfferUpdate) financial() bool {
	return in.Advance != nil || in.Factor != nil || in.UpfrontFees != nil ||
		in.NumberOfPeriods != nil || in.PaymentAmount != nil || in.PaymentFrequency != nil
}

type OfferService struct {
	db        *sqlx.DB
	Offers    *repos.OfferRepo
	Merchants *repos.MerchantRepo
}

func NewOfferService(db *sqlx.DB) *OfferService {
	return &OfferService{db: db, Offers: repos.NewOfferRepo(db), Merchants: repos.NewMerchantRepo(db)}
}

const dupDealRef = "Offer with this deal_id already exists"

func (s *OfferService) Create(ctx context.Context, in OfferCreate) (*domain.Offer, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.Merchants.Get(ctx, in.MerchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	o := &domain.Offer{
		MerchantID:           in.MerchantID,
		Advance:              domain.Money(in.Advance),
		Factor:               in.Factor,
		UpfrontFees:          domain.Money(decOr(in.UpfrontFees, decimal.Zero)),
		UpfrontFeePercentage: in.UpfrontFeePercentage,
		SpecifiedPercentage:  in.SpecifiedPercentage,
		PaymentFrequency:     in.PaymentFrequency,
		PaymentAmount:        decOr(in.PaymentAmount, decimal.Zero),
		Renewal:              in.Renewal,
		TransferBalance:      domain.Money(decOr(in.TransferBalance, decimal.Zero)),
		DealRef:              optional(in.DealRef),
		Status:               in.Status,
	}
	if o.PaymentFrequency == "" {
		o.PaymentFrequency = domain.FreqDaily
	}
	if o.Status == "" {
		o.Status = domain.OfferDraft
	}
	if in.NumberOfPeriods != nil {
		o.NumberOfPeriods = *in.NumberOfPeriods
	}
	o.Recalculate(in.NumberOfPeriods != nil)
	stampStatus(o, o.Status)
	if err := s.Offers.Create(ctx, o); err != nil {
		return nil, orConflict(err, dupDealRef)
	}
	return o, nil
}

// stampStatus records the first time an offer reaches a status.
func stampStatus(o *domain.Offer, status string) {
	ts := time.Now().UTC()
	switch status {
	case domain.OfferSent:
		if o.SentAt == nil {
			o.SentAt = &ts
		}
	case domain.OfferSelected:
		if o.SelectedAt == nil {
			o.SelectedAt = &ts
		}
	case domain.OfferFunded:
		if o.FundedAt == nil {
			o.FundedAt = &ts
		}
	}
	o.Status = status
}

func (s *OfferService) Get(ctx context.Context, id int64) (*domain.Offer, error) {
	o, err := s.Offers.Get(ctx, id, false)
	return o, orNotFound(err, "Offer")
}

func (s *OfferService) List(ctx context.Context, skip, limit int, includeDeleted bool) ([]domain.Offer, error) {
	return s.Offers.List(ctx, skip, limit, includeDeleted)
}

func (s *OfferService) ByMerchant(ctx context.Context, merchantID int64) ([]domain.Offer, error) {
	if _, err := s.Merchants.Get(ctx, merchantID); err != nil {
		return nil, orNotFound(err, "Merchant")
	}
	return s.Offers.ByMerchant(ctx, merchantID)
}

func (s *OfferService) Selected(ctx context.Context, merchantID int64) (*domain.Offer, error) {
	o, err := s.Offers.SelectedByMerchant(ctx, merchantID)
	return o, orNotFound(err, "Selected offer")
}

// Update applies a partial update and recomputes the derived terms when a
// financial field changes.
func (s *OfferService) Update(ctx context.Context, id int64, in OfferUpdate) (*domain.Offer, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Advance != nil {
		o.Advance = domain.Money(*in.Advance)
	}
	assign(&o.Factor, in.Factor)
	if in.UpfrontFees != nil {
		o.UpfrontFees = domain.Money(*in.UpfrontFees)
	}
	if in.UpfrontFeePercentage != nil {
		o.UpfrontFeePercentage = in.UpfrontFeePercentage
	}
	if in.SpecifiedPercentage != nil {
		o.SpecifiedPercentage = in.SpecifiedPercentage
	}
	assign(&o.PaymentFrequency, in.PaymentFrequency)
	assign(&o.NumberOfPeriods, in.NumberOfPeriods)
	assign(&o.PaymentAmount, in.PaymentAmount)
	assign(&o.Renewal, in.Renewal)
	if in.TransferBalance != nil {
		o.TransferBalance = domain.Money(*in.TransferBalance)
	}
	if in.DealRef != nil {
		o.DealRef = optional(*in.DealRef)
	}
	if in.financial() {
		// an explicit payment amount wins over the stored period count
		o.Recalculate(in.PaymentAmount == nil)
	}
	if in.Status != nil {
		stampStatus(o, *in.Status)
	}
	if err := s.Offers.Update(ctx, o); err != nil {
		return nil, orConflict(orNotFound(err, "Offer"), dupDealRef)
	}
	return o, nil
}

func (s *OfferService) SetStatus(ctx context.Context, id int64, status string) (*domain.Offer, error) {
	if !slices.Contains(domain.OfferStatuses, status) {
		return nil, Rule("Invalid status. Must be one of: %s", strings.Join(domain.OfferStatuses, ", "))
	}
	return s.Update(ctx, id, OfferUpdate{Status: &status})
}

// Delete soft-deletes an offer that is not yet selected or funded.
func (s *OfferService) Delete(ctx context.Context, id int64, by string) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == domain.OfferSelected || o.Status == domain.OfferFunded {
		return Rule("Cannot delete offer with status '%s'. Only draft or sent offers can be deleted.", o.Status)
	}
	ts := time.Now().UTC()
	o.IsDeleted, o.DeletedAt, o.DeletedBy = true, &ts, by
	return orNotFound(s.Offers.Update(ctx, o), "Offer")
}

func (s *OfferService) Restore(ctx context.Context, id int64) (*domain.Offer, error) {
	o, err := s.Offers.Get(ctx, id, true)
	if err != nil || !o.IsDeleted {
		return nil, orNotFound(firstErr(err, repos.ErrNotFound), "Deleted offer")
	}
	o.IsDeleted, o.DeletedAt, o.DeletedBy = false, nil, ""
	if err := s.Offers.Update(ctx, o); err != nil {
		return nil, orConflict(orNotFound(err, "Offer"), dupDealRef)
	}
	return o, nil
}
