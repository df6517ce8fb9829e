package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
	"mcacrm/internal/repos"
	"mcacrm/internal/validate"
)

type PaymentCreate struct {
	DealID      int64           `json:"deal_id" validate:"required,gt=0"`
	PaymentDate *domain.Instant `json:"date" validate:"required,notfuture"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaymentType string          `json:"type" validate:"required,paymenttype"`
	Bounced     bool            `json:"bounced"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

// UnmarshalJSON also takes payment_date and payment_type for date and type.
func (in *PaymentCreate) UnmarshalJSON(b []byte) error {
	type fields PaymentCreate
	aux := struct {
		*fields
		AltDate *domain.Instant `json:"payment_date"`
		AltType string          `json:"payment_type"`
	}{fields: (*fields)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if in.PaymentDate == nil {
		in.PaymentDate = aux.AltDate
	}
	if in.PaymentType == "" {
		in.PaymentType = aux.AltType
	}
	return nil
}

func (in *PaymentCreate) Normalize() {
	in.PaymentType = strings.TrimSpace(in.PaymentType)
	in.Notes = strings.TrimSpace(in.Notes)
}

type PaymentUpdate struct {
	PaymentDate *domain.Instant  `json:"date" validate:"omitnil,notfuture"`
	Amount      *decimal.Decimal `json:"amount" validate:"omitnil,gt=0"`
	PaymentType *string          `json:"type" validate:"omitnil,paymenttype"`
	Bounced     *bool            `json:"bounced"`
	Notes       *string          `json:"notes" validate:"omitnil,max=1000"`
}

func (in *PaymentUpdate) UnmarshalJSON(b []byte) error {
	type fields PaymentUpdate
	aux := struct {
		*fields
		AltDate *domain.Instant `json:"payment_date"`
		AltType *string         `json:"payment_type"`
	}{fields: (*fields)(in)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if in.PaymentDate == nil {
		in.PaymentDate = aux.AltDate
	}
	if in.PaymentType == nil {
		in.PaymentType = aux.AltType
	}
	return nil
}

func (in *PaymentUpdate) Normalize() {
	mapPtr(in.PaymentType, strings.TrimSpace)
	mapPtr(in.Notes, strings.TrimSpace)
}

// PaymentService writes payments and keeps the owning deal's balance in step.
type PaymentService struct {
	db       *sqlx.DB
	Payments *repos.PaymentRepo
	Deals    *repos.DealRepo
}

func NewPaymentService(db *sqlx.DB) *PaymentService {
	return &PaymentService{db: db, Payments: repos.NewPaymentRepo(db), Deals: repos.NewDealRepo(db)}
}

func (s *PaymentService) deal(ctx context.Context, id int64) error {
	_, err := s.Deals.Get(ctx, id)
	return orNotFound(err, "Deal")
}

func (s *PaymentService) Create(ctx context.Context, in PaymentCreate) (*domain.Payment, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.deal(ctx, in.DealID); err != nil {
		return nil, err
	}
	p := &domain.Payment{
		DealID:      in.DealID,
		PaymentDate: in.PaymentDate.Time,
		Amount:      domain.Money(in.Amount),
		PaymentType: in.PaymentType,
		Bounced:     in.Bounced,
		Notes:       in.Notes,
	}
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := repos.NewPaymentRepo(tx).Create(ctx, p); err != nil {
			return err
		}
		_, err := recomputeBalance(ctx, tx, p.DealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := s.Payments.Get(ctx, id)
	return p, orNotFound(err, "Payment")
}

func (s *PaymentService) List(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	return s.Payments.List(ctx, f)
}

func (s *PaymentService) ByDeal(ctx context.Context, dealID int64) ([]domain.Payment, error) {
	if err := s.deal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.Payments.List(ctx, domain.PaymentFilter{DealID: dealID, Limit: 1000})
}

func (s *PaymentService) Summary(ctx context.Context, dealID int64) (domain.PaymentSummary, error) {
	if err := s.deal(ctx, dealID); err != nil {
		return domain.PaymentSummary{}, err
	}
	return s.Payments.SummaryByDeal(ctx, dealID)
}

// Recent lists payments dated within the last days days.
func (s *PaymentService) Recent(ctx context.Context, days, limit int) ([]domain.Payment, error) {
	if days < 1 || days > 90 {
		return nil, Rule("days must be between 1 and 90")
	}
	if limit < 1 || limit > 200 {
		return nil, Rule("limit must be between 1 and 200")
	}
	return s.Payments.Recent(ctx, time.Now().AddDate(0, 0, -days), limit)
}

func (s *PaymentService) Bounced(ctx context.Context, dealID int64) ([]domain.Payment, error) {
	bounced := true
	return s.Payments.List(ctx, domain.PaymentFilter{DealID: dealID, Bounced: &bounced, Limit: 1000})
}

func (s *PaymentService) StatsByType(ctx context.Context, dealID int64) ([]domain.PaymentTypeStat, error) {
	return s.Payments.StatsByType(ctx, dealID)
}

func (s *PaymentService) Update(ctx context.Context, id int64, in PaymentUpdate) (*domain.Payment, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.PaymentDate != nil {
		p.PaymentDate = in.PaymentDate.Time
	}
	if in.Amount != nil {
		p.Amount = domain.Money(*in.Amount)
	}
	assign(&p.PaymentType, in.PaymentType)
	assign(&p.Bounced, in.Bounced)
	assign(&p.Notes, in.Notes)
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := repos.NewPaymentRepo(tx).Update(ctx, p); err != nil {
			return err
		}
		_, err := recomputeBalance(ctx, tx, p.DealID)
		return err
	})
	if err != nil {
		return nil, orNotFound(err, "Payment")
	}
	return p, nil
}

// MarkBounced flips the bounced flag, appending note to the payment notes.
func (s *PaymentService) MarkBounced(ctx context.Context, id int64, bounced bool, note string) (*domain.Payment, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := repos.NewPaymentRepo(tx).MarkBounced(ctx, id, bounced, strings.TrimSpace(note)); err != nil {
			return err
		}
		_, err := recomputeBalance(ctx, tx, p.DealID)
		return err
	})
	if err != nil {
		return nil, orNotFound(err, "Payment")
	}
	return s.Get(ctx, id)
}

func (s *PaymentService) Delete(ctx context.Context, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := repos.NewPaymentRepo(tx).Delete(ctx, id); err != nil {
			return err
		}
		_, err := recomputeBalance(ctx, tx, p.DealID)
		return err
	})
	return orNotFound(err, "Payment")
}
