package repos

import (
	"context"

	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
)

type PrincipalRepo struct{ db DBTX }

func NewPrincipalRepo(db DBTX) *PrincipalRepo { return &PrincipalRepo{db: db} }

const principalCols = `id, merchant_id, first_name, last_name, ssn_sealed, ssn_index, ssn_masked,
	date_of_birth, ownership_percentage, home_address, city, state, zip, phone, email,
	is_primary_contact, is_guarantor, is_deleted, deleted_at, created_at, updated_at`

func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) error {
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts
	id, err := insertID(ctx, r.db, `
		INSERT INTO principals (merchant_id, first_name, last_name, ssn_sealed, ssn_index, ssn_masked,
			date_of_birth, ownership_percentage, home_address, city, state, zip, phone, email,
			is_primary_contact, is_guarantor, is_deleted, created_at, updated_at)
		VALUES (:merchant_id, :first_name, :last_name, :ssn_sealed, :ssn_index, :ssn_masked,
			:date_of_birth, :ownership_percentage, :home_address, :city, :state, :zip, :phone, :email,
			:is_primary_contact, :is_guarantor, :is_deleted, :created_at, :updated_at)
		RETURNING id`, p)
	if err != nil {
		return dbErr("insert principal", err)
	}
	p.ID = id
	return nil
}

func (r *PrincipalRepo) Get(ctx context.Context, id int64) (*domain.Principal, error) {
	var p domain.Principal
	err := get(ctx, r.db, "get principal", &p,
		`SELECT `+principalCols+` FROM principals WHERE id = ? AND is_deleted = FALSE`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PrincipalRepo) List(ctx context.Context, skip, limit int) ([]domain.Principal, error) {
	skip, limit = page(skip, limit)
	out := []domain.Principal{}
	err := selectAll(ctx, r.db, "list principals", &out,
		`SELECT `+principalCols+` FROM principals WHERE is_deleted = FALSE ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	return out, err
}

// ByMerchant lists primary contacts first, then by descending ownership.
func (r *PrincipalRepo) ByMerchant(ctx context.Context, merchantID int64, onlyGuarantors bool) ([]domain.Principal, error) {
	w := &where{}
	w.add("merchant_id = ?", merchantID)
	w.add("is_deleted = FALSE")
	if onlyGuarantors {
		w.add("is_guarantor = TRUE")
	}
	out := []domain.Principal{}
	err := selectAll(ctx, r.db, "list merchant principals", &out,
		`SELECT `+principalCols+` FROM principals`+w.String()+
			` ORDER BY is_primary_contact DESC, ownership_percentage DESC, id`, w.args...)
	return out, err
}

func (r *PrincipalRepo) FindBySSNIndex(ctx context.Context, index string) ([]domain.Principal, error) {
	out := []domain.Principal{}
	err := selectAll(ctx, r.db, "find principals by ssn", &out,
		`SELECT `+principalCols+` FROM principals WHERE ssn_index = ? AND is_deleted = FALSE ORDER BY id`, index)
	return out, err
}

// LockMerchant holds the merchant row until the transaction ends so
// principal checks and writes for one merchant do not interleave. SQLite
// runs a single writer connection and needs no lock.
func (r *PrincipalRepo) LockMerchant(ctx context.Context, merchantID int64) error {
	if r.db.DriverName() != "postgres" {
		return nil
	}
	var id int64
	return get(ctx, r.db, "lock merchant", &id,
		`SELECT id FROM merchants WHERE id = ? FOR UPDATE`, merchantID)
}

// SSNTaken reports whether another live principal of the merchant has the same SSN.
func (r *PrincipalRepo) SSNTaken(ctx context.Context, merchantID int64, index string, exceptID int64) (bool, error) {
	var n int
	err := get(ctx, r.db, "check principal ssn", &n, `
		SELECT COUNT(*) FROM principals
		WHERE merchant_id = ? AND ssn_index = ? AND id <> ? AND is_deleted = FALSE`, merchantID, index, exceptID)
	return n > 0, err
}

// OwnershipTotal sums live ownership for a merchant, skipping exceptID.
func (r *PrincipalRepo) OwnershipTotal(ctx context.Context, merchantID, exceptID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := get(ctx, r.db, "sum ownership", &total, `
		SELECT COALESCE(SUM(ownership_percentage), 0) FROM principals
		WHERE merchant_id = ? AND id <> ? AND is_deleted = FALSE`, merchantID, exceptID)
	return total, err
}

func (r *PrincipalRepo) ClearPrimary(ctx context.Context, merchantID, exceptID int64) error {
	_, err := exec(ctx, r.db, "clear primary contact", `
		UPDATE principals SET is_primary_contact = FALSE, updated_at = ?
		WHERE merchant_id = ? AND id <> ? AND is_primary_contact = TRUE`, now(), merchantID, exceptID)
	return err
}

func (r *PrincipalRepo) Update(ctx context.Context, p *domain.Principal) error {
	p.UpdatedAt = now()
	return execOne(ctx, r.db, "update principal", `
		UPDATE principals SET first_name = :first_name, last_name = :last_name,
			ssn_sealed = :ssn_sealed, ssn_index = :ssn_index, ssn_masked = :ssn_masked,
			date_of_birth = :date_of_birth, ownership_percentage = :ownership_percentage,
			home_address = :home_address, city = :city, state = :state, zip = :zip,
			phone = :phone, email = :email, is_primary_contact = :is_primary_contact,
			is_guarantor = :is_guarantor, updated_at = :updated_at
		WHERE id = :id AND is_deleted = FALSE`, p)
}

func (r *PrincipalRepo) SoftDelete(ctx context.Context, id int64) error {
	ts := now()
	n, err := exec(ctx, r.db, "delete principal", `
		UPDATE principals SET is_deleted = TRUE, is_primary_contact = FALSE, deleted_at = ?, updated_at = ?
		WHERE id = ? AND is_deleted = FALSE`, ts, ts, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *PrincipalRepo) CountByMerchant(ctx context.Context, merchantID int64) (int, error) {
	var n int
	err := get(ctx, r.db, "count principals", &n,
		`SELECT COUNT(*) FROM principals WHERE merchant_id = ? AND is_deleted = FALSE`, merchantID)
	return n, err
}
