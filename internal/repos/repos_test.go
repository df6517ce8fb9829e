package repos

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcacrm/internal/domain"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func memDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenDB("sqlite", ":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDBErrMapsDriverErrors(t *testing.T) {
	assert.NoError(t, dbErr("op", nil))
	assert.ErrorIs(t, dbErr("op", sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, dbErr("op", errors.New("UNIQUE constraint failed: merchants.fein")), ErrDuplicate)
	assert.ErrorIs(t, dbErr("op", &pq.Error{Code: "23505"}), ErrDuplicate)

	err := dbErr("list merchants", errors.New("boom"))
	assert.EqualError(t, err, "list merchants: boom")
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_time_format=sqlite&_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	assert.Equal(t, "file:crm.db?cache=shared&_time_format=sqlite&_pragma=foreign_keys(1)", sqliteDSN("file:crm.db?cache=shared"))
	assert.Equal(t, "file:x.db?_time_format=sqlite&_pragma=foreign_keys(0)", sqliteDSN("file:x.db?_time_format=sqlite&_pragma=foreign_keys(0)"))
}

func TestMerchantGetNotFound(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM merchants WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewMerchantRepo(db).Get(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantCreateDuplicate(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(`INSERT INTO merchants`).
		WillReturnError(errors.New("UNIQUE constraint failed: merchants.fein"))

	err := NewMerchantRepo(db).Create(context.Background(), &domain.Merchant{CompanyName: "Acme"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantSetStatusNoRows(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec(`UPDATE merchants SET status = \?`).
		WithArgs(domain.MerchantApproved, sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewMerchantRepo(db).SetStatus(context.Background(), 3, domain.MerchantApproved)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWrapsQueryError(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM payments`).WillReturnError(errors.New("connection reset"))

	_, err := NewPaymentRepo(db).List(context.Background(), domain.PaymentFilter{DealID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	want := errors.New("rule broken")
	err := InTx(context.Background(), db, func(tx *sqlx.Tx) error { return want })
	assert.ErrorIs(t, err, want)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxCommits(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE deals SET status = \?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := InTx(context.Background(), db, func(tx *sqlx.Tx) error {
		return NewDealRepo(tx).SetStatus(context.Background(), 1, domain.DealRenewed)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggTimeScan(t *testing.T) {
	var a aggTime
	require.NoError(t, a.Scan(nil))
	assert.Nil(t, a.ptr())

	require.NoError(t, a.Scan("2025-02-03 10:11:12.5+00:00"))
	require.NotNil(t, a.ptr())
	assert.Equal(t, time.Date(2025, 2, 3, 10, 11, 12, 500000000, time.UTC), *a.ptr())

	require.NoError(t, a.Scan([]byte("2025-02-03")))
	assert.Equal(t, 3, a.ptr().Day())

	assert.Error(t, a.Scan("yesterday"))
	assert.Error(t, a.Scan(3.5))
}

func seedDeal(t *testing.T, db *sqlx.DB, number string) (*domain.Merchant, *domain.Deal) {
	t.Helper()
	ctx := context.Background()
	m := &domain.Merchant{CompanyName: "Acme Bakery", Status: domain.MerchantFunded}
	require.NoError(t, NewMerchantRepo(db).Create(ctx, m))

	o := &domain.Offer{
		MerchantID:       m.ID,
		Advance:          dec("10000"),
		Factor:           dec("1.3"),
		PaymentFrequency: domain.FreqDaily,
		NumberOfPeriods:  100,
		Status:           domain.OfferFunded,
	}
	o.Recalculate(true)
	require.NoError(t, NewOfferRepo(db).Create(ctx, o))

	d := &domain.Deal{
		DealNumber:        number,
		MerchantID:        m.ID,
		OfferID:           o.ID,
		FundedAmount:      o.Advance,
		FactorRate:        o.Factor,
		RTRAmount:         o.RTR,
		PaymentAmount:     o.PaymentAmount,
		PaymentFrequency:  o.PaymentFrequency,
		NumberOfPayments:  o.NumberOfPeriods,
		Status:            domain.DealActive,
		FundingDate:       domain.NewDate(2025, time.March, 3),
		BalanceRemaining:  o.RTR,
		PaymentsRemaining: o.NumberOfPeriods,
	}
	require.NoError(t, NewDealRepo(db).Create(ctx, d))
	return m, d
}

func TestMerchantRoundTripSqlite(t *testing.T) {
	db := memDB(t)
	ctx := context.Background()
	repo := NewMerchantRepo(db)

	fein := "12-3456789"
	m := &domain.Merchant{CompanyName: "Blue Fern Cafe", FEIN: &fein, Email: "owner@bluefern.com", Status: domain.MerchantLead}
	require.NoError(t, repo.Create(ctx, m))
	require.NotZero(t, m.ID)

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Fern Cafe", got.CompanyName)
	require.NotNil(t, got.FEIN)
	assert.Equal(t, fein, *got.FEIN)

	again, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	dup := &domain.Merchant{CompanyName: "Other", FEIN: &fein, Status: domain.MerchantLead}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

	byFEIN, err := repo.GetByFEIN(ctx, fein)
	require.NoError(t, err)
	assert.Equal(t, m.ID, byFEIN.ID)

	list, err := repo.List(ctx, domain.MerchantFilter{Search: "fern", Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.SoftDelete(ctx, m.ID, "tester"))
	n, err := repo.Count(ctx, domain.MerchantFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.Count(ctx, domain.MerchantFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	closed, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsDeleted)
	assert.Equal(t, domain.MerchantClosed, closed.Status)
}

func TestDealNextNumberSqlite(t *testing.T) {
	db := memDB(t)
	ctx := context.Background()
	deals := NewDealRepo(db)

	first, err := deals.NextNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "MCA-2025-0001", first)

	seedDeal(t, db, "MCA-2025-0041")
	next, err := deals.NextNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "MCA-2025-0042", next)

	other, err := deals.NextNumber(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, "MCA-2026-0001", other)
}

func TestDealNextNumberPastFourDigits(t *testing.T) {
	db := memDB(t)
	ctx := context.Background()
	deals := NewDealRepo(db)

	seedDeal(t, db, "MCA-2025-9999")
	n, err := deals.NextNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "MCA-2025-10000", n)

	seedDeal(t, db, n)
	n, err = deals.NextNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "MCA-2025-10001", n)
}

func TestPaymentCollectedSkipsBounced(t *testing.T) {
	db := memDB(t)
	ctx := context.Background()
	_, d := seedDeal(t, db, "MCA-2025-0001")
	payments := NewPaymentRepo(db)

	day := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	for i, amt := range []string{"130", "130", "130"} {
		p := &domain.Payment{DealID: d.ID, PaymentDate: day.AddDate(0, 0, i), Amount: dec(amt), PaymentType: "ACH"}
		require.NoError(t, payments.Create(ctx, p))
		if i == 2 {
			require.NoError(t, payments.MarkBounced(ctx, p.ID, true, "NSF"))
		}
	}

	c, err := payments.Collected(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count)
	assert.True(t, c.Total.Equal(dec("260")), "total %s", c.Total)
	require.NotNil(t, c.LastPayment)
	assert.Equal(t, 11, c.LastPayment.Day())

	bounced := true
	list, err := payments.List(ctx, domain.PaymentFilter{DealID: d.ID, Bounced: &bounced})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Notes, "NSF")
}

func TestPrincipalSSNUniquePerLiveMerchant(t *testing.T) {
	db := memDB(t)
	ctx := context.Background()
	m := &domain.Merchant{CompanyName: "Acme Bakery", Status: domain.MerchantLead}
	require.NoError(t, NewMerchantRepo(db).Create(ctx, m))
	other := &domain.Merchant{CompanyName: "Beta Deli", Status: domain.MerchantLead}
	require.NoError(t, NewMerchantRepo(db).Create(ctx, other))

	repo := NewPrincipalRepo(db)
	mk := func(merchantID int64) *domain.Principal {
		return &domain.Principal{
			MerchantID: merchantID, FirstName: "Ann", LastName: "Lee",
			SSNSealed: "sealed", SSNIndex: "idx-1", SSNMasked: "XXX-XX-6789",
			DateOfBirth: domain.NewDate(1980, time.May, 1), OwnershipPercentage: dec("50"),
		}
	}
	first := mk(m.ID)
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, mk(m.ID)), ErrDuplicate)
	require.NoError(t, repo.Create(ctx, mk(other.ID)))

	require.NoError(t, repo.SoftDelete(ctx, first.ID))
	require.NoError(t, repo.Create(ctx, mk(m.ID)))

	require.NoError(t, repo.LockMerchant(ctx, m.ID))
}

func TestPrincipalLockMerchantOnPostgres(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	db := sqlx.NewDb(raw, "postgres")

	mock.ExpectQuery(`SELECT id FROM merchants WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	require.NoError(t, NewPrincipalRepo(db).LockMerchant(context.Background(), 7))

	mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)
	assert.ErrorIs(t, NewPrincipalRepo(db).LockMerchant(context.Background(), 8), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
