package repos

import (
	"context"

	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
)

type RenewalRepo struct{ db DBTX }

func NewRenewalRepo(db DBTX) *RenewalRepo { return &RenewalRepo{db: db} }

const renewalInfoCols = `id, old_deal_id, transfer_balance, final_payment_amount, payoff_date, notes, created_at, updated_at`

const relationshipCols = `id, old_deal_id, new_deal_id, renewal_info_id, status, created_at, updated_at`

func (r *RenewalRepo) CreateInfo(ctx context.Context, ri *domain.RenewalInfo) error {
	ts := now()
	ri.CreatedAt, ri.UpdatedAt = ts, ts
	id, err := insertID(ctx, r.db, `
		INSERT INTO renewal_info (old_deal_id, transfer_balance, final_payment_amount, payoff_date, notes, created_at, updated_at)
		VALUES (:old_deal_id, :transfer_balance, :final_payment_amount, :payoff_date, :notes, :created_at, :updated_at)
		RETURNING id`, ri)
	if err != nil {
		return dbErr("insert renewal info", err)
	}
	ri.ID = id
	return nil
}

func (r *RenewalRepo) Link(ctx context.Context, dealID, infoID int64) error {
	j := domain.RenewalJunction{DealID: dealID, RenewalInfoID: infoID, CreatedAt: now()}
	_, err := insertID(ctx, r.db, `
		INSERT INTO deal_renewal_junction (deal_id, renewal_info_id, created_at)
		VALUES (:deal_id, :renewal_info_id, :created_at)
		RETURNING id`, j)
	if err != nil {
		return dbErr("insert renewal junction", err)
	}
	return nil
}

func (r *RenewalRepo) CreateRelationship(ctx context.Context, rel *domain.RenewalRelationship) error {
	ts := now()
	rel.CreatedAt, rel.UpdatedAt = ts, ts
	if rel.Status == "" {
		rel.Status = domain.RelationshipActive
	}
	id, err := insertID(ctx, r.db, `
		INSERT INTO deal_renewal_relationships (old_deal_id, new_deal_id, renewal_info_id, status, created_at, updated_at)
		VALUES (:old_deal_id, :new_deal_id, :renewal_info_id, :status, :created_at, :updated_at)
		RETURNING id`, rel)
	if err != nil {
		return dbErr("insert renewal relationship", err)
	}
	rel.ID = id
	return nil
}

func (r *RenewalRepo) GetInfo(ctx context.Context, id int64) (*domain.RenewalInfo, error) {
	var ri domain.RenewalInfo
	if err := get(ctx, r.db, "get renewal info", &ri, `SELECT `+renewalInfoCols+` FROM renewal_info WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &ri, nil
}

func (r *RenewalRepo) UpdateInfo(ctx context.Context, ri *domain.RenewalInfo) error {
	ri.UpdatedAt = now()
	return execOne(ctx, r.db, "update renewal info", `
		UPDATE renewal_info SET transfer_balance = :transfer_balance, final_payment_amount = :final_payment_amount,
			payoff_date = :payoff_date, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, ri)
}

// InfoByDeal lists the payoff records attached to a renewal deal.
func (r *RenewalRepo) InfoByDeal(ctx context.Context, dealID int64) ([]domain.RenewalInfo, error) {
	out := []domain.RenewalInfo{}
	err := selectAll(ctx, r.db, "renewal info by deal", &out, `
		SELECT ri.id, ri.old_deal_id, ri.transfer_balance, ri.final_payment_amount, ri.payoff_date,
			ri.notes, ri.created_at, ri.updated_at
		FROM renewal_info ri JOIN deal_renewal_junction j ON j.renewal_info_id = ri.id
		WHERE j.deal_id = ? ORDER BY ri.id`, dealID)
	return out, err
}

// DealForInfo finds the renewal deal that owns an info record.
func (r *RenewalRepo) DealForInfo(ctx context.Context, infoID int64) (int64, error) {
	var id int64
	err := get(ctx, r.db, "renewal deal for info", &id,
		`SELECT deal_id FROM deal_renewal_junction WHERE renewal_info_id = ? ORDER BY id LIMIT 1`, infoID)
	return id, err
}

func (r *RenewalRepo) TransferTotal(ctx context.Context, dealID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := get(ctx, r.db, "renewal transfer total", &total, `
		SELECT COALESCE(SUM(ri.transfer_balance), 0)
		FROM renewal_info ri JOIN deal_renewal_junction j ON j.renewal_info_id = ri.id
		WHERE j.deal_id = ?`, dealID)
	return total, err
}

// RenewedBy lists old deals actively paid off by a renewal deal.
func (r *RenewalRepo) RenewedBy(ctx context.Context, newDealID int64) ([]domain.RenewedDeal, error) {
	out := []domain.RenewedDeal{}
	err := selectAll(ctx, r.db, "deals renewed by", &out, `
		SELECT d.id AS deal_id, d.deal_number, ri.transfer_balance, ri.payoff_date
		FROM deal_renewal_relationships rel
		JOIN deals d ON d.id = rel.old_deal_id
		JOIN renewal_info ri ON ri.id = rel.renewal_info_id
		WHERE rel.new_deal_id = ? AND rel.status = ?
		ORDER BY d.id`, newDealID, domain.RelationshipActive)
	return out, err
}

// RenewedInto finds the deal an old deal was actively renewed into.
func (r *RenewalRepo) RenewedInto(ctx context.Context, oldDealID int64) (*domain.RenewalTarget, error) {
	var t domain.RenewalTarget
	err := get(ctx, r.db, "renewal target", &t, `
		SELECT d.id AS deal_id, d.deal_number, d.funding_date AS renewal_date
		FROM deal_renewal_relationships rel JOIN deals d ON d.id = rel.new_deal_id
		WHERE rel.old_deal_id = ? AND rel.status = ?
		ORDER BY rel.id DESC LIMIT 1`, oldDealID, domain.RelationshipActive)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Reverse flips an active relationship to reversed.
func (r *RenewalRepo) Reverse(ctx context.Context, oldDealID, newDealID int64) error {
	n, err := exec(ctx, r.db, "reverse renewal", `
		UPDATE deal_renewal_relationships SET status = ?, updated_at = ?
		WHERE old_deal_id = ? AND new_deal_id = ? AND status = ?`,
		domain.RelationshipReversed, now(), oldDealID, newDealID, domain.RelationshipActive)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *RenewalRepo) Relationships(ctx context.Context, f domain.RelationshipFilter) ([]domain.RenewalRelationship, error) {
	w := &where{}
	if f.OldDealID > 0 {
		w.add("old_deal_id = ?", f.OldDealID)
	}
	if f.NewDealID > 0 {
		w.add("new_deal_id = ?", f.NewDealID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	out := []domain.RenewalRelationship{}
	err := selectAll(ctx, r.db, "list renewal relationships", &out,
		`SELECT `+relationshipCols+` FROM deal_renewal_relationships`+w.String()+` ORDER BY id`, w.args...)
	return out, err
}
