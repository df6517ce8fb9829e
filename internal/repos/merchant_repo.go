package repos

import (
	"context"
	"strings"
	"time"

	"mcacrm/internal/domain"
)

type MerchantRepo struct{ db DBTX }

func NewMerchantRepo(db DBTX) *MerchantRepo { return &MerchantRepo{db: db} }

const merchantCols = `id, company_name, address, city, state, zip, fein, phone, entity_type,
	submitted_date, email, contact_person, status, notes, is_deleted, deleted_at, deleted_by,
	created_at, updated_at`

var merchantSorts = map[string]string{
	"company_name": "company_name",
	"status":       "status",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

// ValidMerchantSort reports whether col can be used as a sort key.
func ValidMerchantSort(col string) bool { _, ok := merchantSorts[col]; return ok }

func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	ts := now()
	m.CreatedAt, m.UpdatedAt = ts, ts
	id, err := insertID(ctx, r.db, `
		INSERT INTO merchants (company_name, address, city, state, zip, fein, phone, entity_type,
			submitted_date, email, contact_person, status, notes, is_deleted, deleted_by, created_at, updated_at)
		VALUES (:company_name, :address, :city, :state, :zip, :fein, :phone, :entity_type,
			:submitted_date, :email, :contact_person, :status, :notes, :is_deleted, :deleted_by, :created_at, :updated_at)
		RETURNING id`, m)
	if err != nil {
		return dbErr("insert merchant", err)
	}
	m.ID = id
	return nil
}

func (r *MerchantRepo) Get(ctx context.Context, id int64) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := get(ctx, r.db, "get merchant", &m, `SELECT `+merchantCols+` FROM merchants WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MerchantRepo) GetByFEIN(ctx context.Context, fein string) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := get(ctx, r.db, "get merchant by fein", &m, `SELECT `+merchantCols+` FROM merchants WHERE fein = ?`, fein); err != nil {
		return nil, err
	}
	return &m, nil
}

func merchantWhere(f domain.MerchantFilter) *where {
	w := &where{}
	if !f.IncludeDeleted {
		w.add("is_deleted = FALSE")
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		w.add(`(LOWER(company_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(contact_person) LIKE ? OR LOWER(COALESCE(fein, '')) LIKE ?)`,
			like, like, like, like)
	}
	return w
}

func (r *MerchantRepo) List(ctx context.Context, f domain.MerchantFilter) ([]domain.Merchant, error) {
	w := merchantWhere(f)
	col, ok := merchantSorts[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	skip, limit := page(f.Skip, f.Limit)
	out := []domain.Merchant{}
	err := selectAll(ctx, r.db, "list merchants", &out,
		`SELECT `+merchantCols+` FROM merchants`+w.String()+` ORDER BY `+col+` `+dir+`, id `+dir+` LIMIT ? OFFSET ?`,
		append(w.args, limit, skip)...)
	return out, err
}

func (r *MerchantRepo) Count(ctx context.Context, f domain.MerchantFilter) (int, error) {
	w := merchantWhere(f)
	var n int
	err := get(ctx, r.db, "count merchants", &n, `SELECT COUNT(*) FROM merchants`+w.String(), w.args...)
	return n, err
}

func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	m.UpdatedAt = now()
	return execOne(ctx, r.db, "update merchant", `
		UPDATE merchants SET company_name = :company_name, address = :address, city = :city,
			state = :state, zip = :zip, fein = :fein, phone = :phone, entity_type = :entity_type,
			submitted_date = :submitted_date, email = :email, contact_person = :contact_person,
			status = :status, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, m)
}

func (r *MerchantRepo) SetStatus(ctx context.Context, id int64, status string) error {
	n, err := exec(ctx, r.db, "set merchant status",
		`UPDATE merchants SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// SoftDelete closes the merchant and records who removed it.
func (r *MerchantRepo) SoftDelete(ctx context.Context, id int64, by string) error {
	ts := now()
	n, err := exec(ctx, r.db, "delete merchant", `
		UPDATE merchants SET status = ?, is_deleted = TRUE, deleted_at = ?, deleted_by = ?, updated_at = ?
		WHERE id = ?`, domain.MerchantClosed, ts, by, ts, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// HasOpenOffers reports live offers that block deletion.
func (r *MerchantRepo) HasOpenOffers(ctx context.Context, id int64) (bool, error) {
	var n int
	err := get(ctx, r.db, "count open offers", &n, `
		SELECT COUNT(*) FROM offers
		WHERE merchant_id = ? AND is_deleted = FALSE AND status IN (?, ?, ?)`,
		id, domain.OfferSent, domain.OfferSelected, domain.OfferFunded)
	return n > 0, err
}

func (r *MerchantRepo) Stats(ctx context.Context, since time.Time) (domain.MerchantStats, error) {
	st := domain.MerchantStats{ByStatus: map[string]int{}}
	if err := get(ctx, r.db, "count merchants", &st.Total, `SELECT COUNT(*) FROM merchants WHERE is_deleted = FALSE`); err != nil {
		return st, err
	}
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := selectAll(ctx, r.db, "merchant status counts", &rows,
		`SELECT status, COUNT(*) AS n FROM merchants WHERE is_deleted = FALSE GROUP BY status`); err != nil {
		return st, err
	}
	for _, row := range rows {
		st.ByStatus[row.Status] = row.N
	}
	err := get(ctx, r.db, "recent merchants", &st.RecentCount,
		`SELECT COUNT(*) FROM merchants WHERE is_deleted = FALSE AND created_at >= ?`, since.UTC())
	return st, err
}
