package repos

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
)

type DealRepo struct{ db DBTX }

func NewDealRepo(db DBTX) *DealRepo { return &DealRepo{db: db} }

const dealCols = `id, deal_number, merchant_id, offer_id, bank_account_id, is_renewal,
	total_transfer_balance, net_cash_to_merchant, funded_amount, factor_rate, upfront_fees, rtr_amount,
	payment_amount, payment_frequency, number_of_payments, status, funding_date, first_payment_date,
	maturity_date, actual_completion_date, total_paid, balance_remaining, payments_remaining,
	last_payment_date, in_collections, collections_notes, notes, created_by, created_at, updated_at`

// NextNumber returns the next MCA-YYYY-NNNN number for the year. The
// sequence is compared numerically so it keeps counting past 9999.
func (r *DealRepo) NextNumber(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("MCA-%d-", year)
	var last int64
	err := get(ctx, r.db, "last deal number", &last, `
		SELECT COALESCE(MAX(CAST(SUBSTR(deal_number, ?) AS INTEGER)), 0)
		FROM deals WHERE deal_number LIKE ?`, len(prefix)+1, prefix+"%")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, last+1), nil
}

func (r *DealRepo) Create(ctx context.Context, d *domain.Deal) error {
	ts := now()
	d.CreatedAt, d.UpdatedAt = ts, ts
	id, err := insertID(ctx, r.db, `
		INSERT INTO deals (deal_number, merchant_id, offer_id, bank_account_id, is_renewal,
			total_transfer_balance, net_cash_to_merchant, funded_amount, factor_rate, upfront_fees, rtr_amount,
			payment_amount, payment_frequency, number_of_payments, status, funding_date, first_payment_date,
			maturity_date, actual_completion_date, total_paid, balance_remaining, payments_remaining,
			last_payment_date, in_collections, collections_notes, notes, created_by, created_at, updated_at)
		VALUES (:deal_number, :merchant_id, :offer_id, :bank_account_id, :is_renewal,
			:total_transfer_balance, :net_cash_to_merchant, :funded_amount, :factor_rate, :upfront_fees, :rtr_amount,
			:payment_amount, :payment_frequency, :number_of_payments, :status, :funding_date, :first_payment_date,
			:maturity_date, :actual_completion_date, :total_paid, :balance_remaining, :payments_remaining,
			:last_payment_date, :in_collections, :collections_notes, :notes, :created_by, :created_at, :updated_at)
		RETURNING id`, d)
	if err != nil {
		return dbErr("insert deal", err)
	}
	d.ID = id
	return nil
}

func (r *DealRepo) Get(ctx context.Context, id int64) (*domain.Deal, error) {
	var d domain.Deal
	if err := get(ctx, r.db, "get deal", &d, `SELECT `+dealCols+` FROM deals WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DealRepo) GetByNumber(ctx context.Context, number string) (*domain.Deal, error) {
	var d domain.Deal
	if err := get(ctx, r.db, "get deal by number", &d, `SELECT `+dealCols+` FROM deals WHERE deal_number = ?`, number); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DealRepo) List(ctx context.Context, f domain.DealFilter) ([]domain.Deal, error) {
	w := &where{}
	if f.MerchantID > 0 {
		w.add("merchant_id = ?", f.MerchantID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.FundingDateFrom != nil {
		w.add("funding_date >= ?", *f.FundingDateFrom)
	}
	if f.FundingDateTo != nil {
		w.add("funding_date <= ?", *f.FundingDateTo)
	}
	if f.MinAmount != nil {
		w.add("funded_amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		w.add("funded_amount <= ?", *f.MaxAmount)
	}
	if f.InCollections != nil {
		w.add("in_collections = ?", *f.InCollections)
	}
	skip, limit := page(f.Skip, f.Limit)
	out := []domain.Deal{}
	err := selectAll(ctx, r.db, "list deals", &out,
		`SELECT `+dealCols+` FROM deals`+w.String()+` ORDER BY funding_date DESC, id DESC LIMIT ? OFFSET ?`,
		append(w.args, limit, skip)...)
	return out, err
}

func (r *DealRepo) ByMerchant(ctx context.Context, merchantID int64, renewalsOnly bool) ([]domain.Deal, error) {
	q := `SELECT ` + dealCols + ` FROM deals WHERE merchant_id = ?`
	if renewalsOnly {
		q += ` AND is_renewal = TRUE`
	}
	out := []domain.Deal{}
	err := selectAll(ctx, r.db, "list merchant deals", &out, q+` ORDER BY funding_date DESC, id DESC`, merchantID)
	return out, err
}

func (r *DealRepo) Update(ctx context.Context, d *domain.Deal) error {
	d.UpdatedAt = now()
	return execOne(ctx, r.db, "update deal", `
		UPDATE deals SET bank_account_id = :bank_account_id, total_transfer_balance = :total_transfer_balance,
			net_cash_to_merchant = :net_cash_to_merchant, payment_amount = :payment_amount,
			status = :status, first_payment_date = :first_payment_date, maturity_date = :maturity_date,
			actual_completion_date = :actual_completion_date, in_collections = :in_collections,
			collections_notes = :collections_notes, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, d)
}

func (r *DealRepo) SetStatus(ctx context.Context, id int64, status string) error {
	n, err := exec(ctx, r.db, "set deal status",
		`UPDATE deals SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *DealRepo) SetBalance(ctx context.Context, id int64, b domain.BalanceUpdate) error {
	n, err := exec(ctx, r.db, "set deal balance", `
		UPDATE deals SET total_paid = ?, balance_remaining = ?, payments_remaining = ?,
			last_payment_date = ?, status = ?, actual_completion_date = COALESCE(?, actual_completion_date),
			updated_at = ?
		WHERE id = ?`,
		b.TotalPaid, b.BalanceRemaining, b.PaymentsRemaining, b.LastPaymentDate, b.Status, b.CompletedOn, now(), id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// SetTransfer rewrites renewal totals on a deal.
func (r *DealRepo) SetTransfer(ctx context.Context, id int64, total, netCash decimal.Decimal) error {
	n, err := exec(ctx, r.db, "set deal transfer", `
		UPDATE deals SET total_transfer_balance = ?, net_cash_to_merchant = ?, updated_at = ? WHERE id = ?`,
		total, netCash, now(), id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *DealRepo) Summary(ctx context.Context) (domain.DealSummary, error) {
	var row struct {
		Total       int             `db:"total"`
		Active      int             `db:"active"`
		Completed   int             `db:"completed"`
		Defaulted   int             `db:"defaulted"`
		Funded      decimal.Decimal `db:"funded"`
		Collected   decimal.Decimal `db:"collected"`
		Outstanding decimal.Decimal `db:"outstanding"`
		AvgFactor   decimal.Decimal `db:"avg_factor"`
		AvgSize     decimal.Decimal `db:"avg_size"`
	}
	err := get(ctx, r.db, "deal summary", &row, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS defaulted,
			COALESCE(SUM(funded_amount), 0) AS funded,
			COALESCE(SUM(total_paid), 0) AS collected,
			COALESCE(SUM(CASE WHEN status = ? THEN balance_remaining ELSE 0 END), 0) AS outstanding,
			COALESCE(AVG(factor_rate), 0) AS avg_factor,
			COALESCE(AVG(funded_amount), 0) AS avg_size
		FROM deals`, domain.DealActive, domain.DealCompleted, domain.DealDefaulted, domain.DealActive)
	if err != nil {
		return domain.DealSummary{}, err
	}
	s := domain.DealSummary{
		TotalDeals:       row.Total,
		ActiveDeals:      row.Active,
		CompletedDeals:   row.Completed,
		DefaultedDeals:   row.Defaulted,
		TotalFunded:      domain.Money(row.Funded),
		TotalCollected:   domain.Money(row.Collected),
		TotalOutstanding: domain.Money(row.Outstanding),
		AvgFactorRate:    row.AvgFactor.Round(4),
		AvgDealSize:      domain.Money(row.AvgSize),
		CompletionRate:   decimal.Zero,
	}
	if row.Total > 0 {
		s.CompletionRate = decimal.NewFromInt(int64(row.Completed)).
			Div(decimal.NewFromInt(int64(row.Total))).Mul(domain.Hundred).Round(2)
	}
	return s, nil
}
