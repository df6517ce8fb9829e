package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
)

type PaymentRepo struct{ db DBTX }

func NewPaymentRepo(db DBTX) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = `id, deal_id, payment_date, amount, payment_type, bounced, notes, created_at, updated_at`

// Collected holds the non-bounced totals of a deal.
type Collected struct {
	Count       int
	Total       decimal.Decimal
	LastPayment *time.Time
}

// aggTime scans aggregate timestamps, which SQLite returns as text.
type aggTime struct {
	t     time.Time
	valid bool
}

var aggLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (a *aggTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.valid = false
		return nil
	case time.Time:
		a.t, a.valid = v.UTC(), true
		return nil
	case []byte:
		return a.Scan(string(v))
	case string:
		for _, l := range aggLayouts {
			if t, err := time.Parse(l, v); err == nil {
				a.t, a.valid = t.UTC(), true
				return nil
			}
		}
		return fmt.Errorf("unrecognised timestamp %q", v)
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (a aggTime) ptr() *time.Time {
	if !a.valid {
		return nil
	}
	t := a.t
	return &t
}

func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts
	p.PaymentDate = p.PaymentDate.UTC()
	id, err := insertID(ctx, r.db, `
		INSERT INTO payments (deal_id, payment_date, amount, payment_type, bounced, notes, created_at, updated_at)
		VALUES (:deal_id, :payment_date, :amount, :payment_type, :bounced, :notes, :created_at, :updated_at)
		RETURNING id`, p)
	if err != nil {
		return dbErr("insert payment", err)
	}
	p.ID = id
	return nil
}

func (r *PaymentRepo) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := get(ctx, r.db, "get payment", &p, `SELECT `+paymentCols+` FROM payments WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) List(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	w := &where{}
	if f.DealID > 0 {
		w.add("deal_id = ?", f.DealID)
	}
	if f.DateFrom != nil {
		w.add("payment_date >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		w.add("payment_date <= ?", f.DateTo.UTC())
	}
	if f.PaymentType != "" {
		w.add("payment_type = ?", f.PaymentType)
	}
	if f.Bounced != nil {
		w.add("bounced = ?", *f.Bounced)
	}
	if f.MinAmount != nil {
		w.add("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		w.add("amount <= ?", *f.MaxAmount)
	}
	skip, limit := page(f.Skip, f.Limit)
	out := []domain.Payment{}
	err := selectAll(ctx, r.db, "list payments", &out,
		`SELECT `+paymentCols+` FROM payments`+w.String()+` ORDER BY payment_date DESC, id DESC LIMIT ? OFFSET ?`,
		append(w.args, limit, skip)...)
	return out, err
}

func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	p.UpdatedAt = now()
	p.PaymentDate = p.PaymentDate.UTC()
	return execOne(ctx, r.db, "update payment", `
		UPDATE payments SET payment_date = :payment_date, amount = :amount, payment_type = :payment_type,
			bounced = :bounced, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, p)
}

func (r *PaymentRepo) Delete(ctx context.Context, id int64) error {
	n, err := exec(ctx, r.db, "delete payment", `DELETE FROM payments WHERE id = ?`, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// Collected sums the payments of a deal that cleared.
func (r *PaymentRepo) Collected(ctx context.Context, dealID int64) (Collected, error) {
	var row struct {
		Count int             `db:"n"`
		Total decimal.Decimal `db:"total"`
		Last  aggTime         `db:"last_payment"`
	}
	err := get(ctx, r.db, "collected totals", &row, `
		SELECT COUNT(*) AS n, COALESCE(SUM(amount), 0) AS total, MAX(payment_date) AS last_payment
		FROM payments WHERE deal_id = ? AND bounced = FALSE`, dealID)
	if err != nil {
		return Collected{}, err
	}
	return Collected{Count: row.Count, Total: row.Total, LastPayment: row.Last.ptr()}, nil
}

func (r *PaymentRepo) SummaryByDeal(ctx context.Context, dealID int64) (domain.PaymentSummary, error) {
	var row struct {
		Count        int             `db:"n"`
		Total        decimal.Decimal `db:"total"`
		Bounced      int             `db:"bounced"`
		BouncedTotal decimal.Decimal `db:"bounced_total"`
		Last         aggTime         `db:"last_payment"`
	}
	err := get(ctx, r.db, "payment summary", &row, `
		SELECT COUNT(*) AS n,
			COALESCE(SUM(CASE WHEN bounced = FALSE THEN amount ELSE 0 END), 0) AS total,
			COALESCE(SUM(CASE WHEN bounced = TRUE THEN 1 ELSE 0 END), 0) AS bounced,
			COALESCE(SUM(CASE WHEN bounced = TRUE THEN amount ELSE 0 END), 0) AS bounced_total,
			MAX(payment_date) AS last_payment
		FROM payments WHERE deal_id = ?`, dealID)
	if err != nil {
		return domain.PaymentSummary{}, err
	}
	s := domain.PaymentSummary{
		DealID:          dealID,
		TotalPayments:   row.Count,
		TotalAmount:     domain.Money(row.Total),
		TotalBounced:    row.Bounced,
		BouncedAmount:   domain.Money(row.BouncedTotal),
		LastPaymentDate: row.Last.ptr(),
		AveragePayment:  decimal.Zero,
	}
	if cleared := row.Count - row.Bounced; cleared > 0 {
		s.AveragePayment = domain.Money(row.Total.Div(decimal.NewFromInt(int64(cleared))))
	}
	return s, nil
}

func (r *PaymentRepo) Recent(ctx context.Context, since time.Time, limit int) ([]domain.Payment, error) {
	_, limit = page(0, limit)
	out := []domain.Payment{}
	err := selectAll(ctx, r.db, "recent payments", &out, `
		SELECT `+paymentCols+` FROM payments WHERE payment_date >= ?
		ORDER BY payment_date DESC, id DESC LIMIT ?`, since.UTC(), limit)
	return out, err
}

// MarkBounced flags a payment and appends note on its own line.
func (r *PaymentRepo) MarkBounced(ctx context.Context, id int64, bounced bool, note string) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	notes := p.Notes
	if note != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += note
	}
	n, err := exec(ctx, r.db, "mark payment bounced",
		`UPDATE payments SET bounced = ?, notes = ?, updated_at = ? WHERE id = ?`, bounced, notes, now(), id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *PaymentRepo) StatsByType(ctx context.Context, dealID int64) ([]domain.PaymentTypeStat, error) {
	w := &where{}
	w.add("bounced = FALSE")
	if dealID > 0 {
		w.add("deal_id = ?", dealID)
	}
	out := []domain.PaymentTypeStat{}
	err := selectAll(ctx, r.db, "payment stats by type", &out, `
		SELECT payment_type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount,
			COALESCE(AVG(amount), 0) AS average_amount
		FROM payments`+w.String()+` GROUP BY payment_type ORDER BY payment_type`, w.args...)
	for i := range out {
		out[i].TotalAmount = domain.Money(out[i].TotalAmount)
		out[i].AverageAmount = domain.Money(out[i].AverageAmount)
	}
	return out, err
}
