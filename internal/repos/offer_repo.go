package repos

import (
	"context"

	"mcacrm/internal/domain"
)

type OfferRepo struct{ db DBTX }

func NewOfferRepo(db DBTX) *OfferRepo { return &OfferRepo{db: db} }

const offerCols = `id, merchant_id, advance, factor, upfront_fees, upfront_fee_percentage,
	specified_percentage, payment_frequency, number_of_periods, payment_amount, rtr, net_funds, apr,
	renewal, transfer_balance, deal_id, status, sent_at, selected_at, funded_at,
	is_deleted, deleted_at, deleted_by, created_at, updated_at`

func (r *OfferRepo) Create(ctx context.Context, o *domain.Offer) error {
	ts := now()
	o.CreatedAt, o.UpdatedAt = ts, ts
	id, err := insertID(ctx, r.db, `
		INSERT INTO offers (merchant_id, advance, factor, upfront_fees, upfront_fee_percentage,
			specified_percentage, payment_frequency, number_of_periods, payment_amount, rtr, net_funds, apr,
			renewal, transfer_balance, deal_id, status, sent_at, selected_at, funded_at,
			is_deleted, deleted_by, created_at, updated_at)
		VALUES (:merchant_id, :advance, :factor, :upfront_fees, :upfront_fee_percentage,
			:specified_percentage, :payment_frequency, :number_of_periods, :payment_amount, :rtr, :net_funds, :apr,
			:renewal, :transfer_balance, :deal_id, :status, :sent_at, :selected_at, :funded_at,
			:is_deleted, :deleted_by, :created_at, :updated_at)
		RETURNING id`, o)
	if err != nil {
		return dbErr("insert offer", err)
	}
	o.ID = id
	return nil
}

// Get hides soft-deleted offers unless includeDeleted is set.
func (r *OfferRepo) Get(ctx context.Context, id int64, includeDeleted bool) (*domain.Offer, error) {
	q := `SELECT ` + offerCols + ` FROM offers WHERE id = ?`
	if !includeDeleted {
		q += ` AND is_deleted = FALSE`
	}
	var o domain.Offer
	if err := get(ctx, r.db, "get offer", &o, q, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepo) List(ctx context.Context, skip, limit int, includeDeleted bool) ([]domain.Offer, error) {
	w := &where{}
	if !includeDeleted {
		w.add("is_deleted = FALSE")
	}
	skip, limit = page(skip, limit)
	out := []domain.Offer{}
	err := selectAll(ctx, r.db, "list offers", &out,
		`SELECT `+offerCols+` FROM offers`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(w.args, limit, skip)...)
	return out, err
}

func (r *OfferRepo) ByMerchant(ctx context.Context, merchantID int64) ([]domain.Offer, error) {
	out := []domain.Offer{}
	err := selectAll(ctx, r.db, "list merchant offers", &out, `
		SELECT `+offerCols+` FROM offers
		WHERE merchant_id = ? AND is_deleted = FALSE
		ORDER BY created_at DESC, id DESC`, merchantID)
	return out, err
}

func (r *OfferRepo) SelectedByMerchant(ctx context.Context, merchantID int64) (*domain.Offer, error) {
	var o domain.Offer
	err := get(ctx, r.db, "get selected offer", &o, `
		SELECT `+offerCols+` FROM offers
		WHERE merchant_id = ? AND status = ? AND is_deleted = FALSE
		ORDER BY selected_at DESC, id DESC LIMIT 1`, merchantID, domain.OfferSelected)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepo) Update(ctx context.Context, o *domain.Offer) error {
	o.UpdatedAt = now()
	return execOne(ctx, r.db, "update offer", `
		UPDATE offers SET advance = :advance, factor = :factor, upfront_fees = :upfront_fees,
			upfront_fee_percentage = :upfront_fee_percentage, specified_percentage = :specified_percentage,
			payment_frequency = :payment_frequency, number_of_periods = :number_of_periods,
			payment_amount = :payment_amount, rtr = :rtr, net_funds = :net_funds, apr = :apr,
			renewal = :renewal, transfer_balance = :transfer_balance, deal_id = :deal_id,
			status = :status, sent_at = :sent_at, selected_at = :selected_at, funded_at = :funded_at,
			is_deleted = :is_deleted, deleted_at = :deleted_at, deleted_by = :deleted_by,
			updated_at = :updated_at
		WHERE id = :id`, o)
}
