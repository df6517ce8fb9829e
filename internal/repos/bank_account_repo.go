package repos

import (
	"context"

	"mcacrm/internal/domain"
)

type BankAccountRepo struct{ db DBTX }

func NewBankAccountRepo(db DBTX) *BankAccountRepo { return &BankAccountRepo{db: db} }

const bankAccountSelect = `SELECT b.id, b.merchant_id, m.company_name AS merchant_name, b.account_name,
	b.account_number, b.routing_number, b.bank_name, b.account_type, b.is_active, b.is_primary,
	b.created_at, b.updated_at
	FROM bank_accounts b JOIN merchants m ON m.id = b.merchant_id`

func (r *BankAccountRepo) Create(ctx context.Context, b *domain.BankAccount) error {
	ts := now()
	b.CreatedAt, b.UpdatedAt = ts, ts
	id, err := insertID(ctx, r.db, `
		INSERT INTO bank_accounts (merchant_id, account_name, account_number, routing_number,
			bank_name, account_type, is_active, is_primary, created_at, updated_at)
		VALUES (:merchant_id, :account_name, :account_number, :routing_number,
			:bank_name, :account_type, :is_active, :is_primary, :created_at, :updated_at)
		RETURNING id`, b)
	if err != nil {
		return dbErr("insert bank account", err)
	}
	b.ID = id
	return nil
}

func (r *BankAccountRepo) Get(ctx context.Context, id int64) (*domain.BankAccount, error) {
	var b domain.BankAccount
	if err := get(ctx, r.db, "get bank account", &b, bankAccountSelect+` WHERE b.id = ?`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BankAccountRepo) ByMerchant(ctx context.Context, merchantID int64, activeOnly bool, skip, limit int) ([]domain.BankAccount, error) {
	w := &where{}
	w.add("b.merchant_id = ?", merchantID)
	if activeOnly {
		w.add("b.is_active = TRUE")
	}
	skip, limit = page(skip, limit)
	out := []domain.BankAccount{}
	err := selectAll(ctx, r.db, "list bank accounts", &out,
		bankAccountSelect+w.String()+` ORDER BY b.is_primary DESC, b.id LIMIT ? OFFSET ?`, append(w.args, limit, skip)...)
	return out, err
}

func (r *BankAccountRepo) Update(ctx context.Context, b *domain.BankAccount) error {
	b.UpdatedAt = now()
	return execOne(ctx, r.db, "update bank account", `
		UPDATE bank_accounts SET account_name = :account_name, account_number = :account_number,
			routing_number = :routing_number, bank_name = :bank_name, account_type = :account_type,
			is_active = :is_active, is_primary = :is_primary, updated_at = :updated_at
		WHERE id = :id`, b)
}

// ClearPrimary unsets the primary flag on every other account of the merchant.
func (r *BankAccountRepo) ClearPrimary(ctx context.Context, merchantID, exceptID int64) error {
	_, err := exec(ctx, r.db, "clear primary account", `
		UPDATE bank_accounts SET is_primary = FALSE, updated_at = ?
		WHERE merchant_id = ? AND id <> ? AND is_primary = TRUE`, now(), merchantID, exceptID)
	return err
}

func (r *BankAccountRepo) SetPrimary(ctx context.Context, id int64) error {
	n, err := exec(ctx, r.db, "set primary account",
		`UPDATE bank_accounts SET is_primary = TRUE, updated_at = ? WHERE id = ?`, now(), id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// InUse reports whether any deal funds through the account.
func (r *BankAccountRepo) InUse(ctx context.Context, id int64) (bool, error) {
	var n int
	err := get(ctx, r.db, "bank account usage", &n, `SELECT COUNT(*) FROM deals WHERE bank_account_id = ?`, id)
	return n > 0, err
}

func (r *BankAccountRepo) Delete(ctx context.Context, id int64) error {
	n, err := exec(ctx, r.db, "delete bank account", `DELETE FROM bank_accounts WHERE id = ?`, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
