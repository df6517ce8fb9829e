package migrations

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableNames(t *testing.T, db *sql.DB) map[string]bool {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	require.NoError(t, err)
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		out[n] = true
	}
	require.NoError(t, rows.Err())
	return out
}

func TestUpDownSqlite(t *testing.T) {
	db := memDB(t)
	mg, err := New("sqlite", db)
	require.NoError(t, err)
	defer mg.Close()

	_, _, ok, err := mg.Version()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mg.Up())
	v, dirty, ok, err := mg.Version()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.EqualValues(t, 4, v)

	tables := tableNames(t, db)
	for _, name := range []string{"merchants", "principals", "bank_accounts", "offers", "deals", "payments", "renewal_info", "deal_renewal_junction", "deal_renewal_relationships"} {
		assert.True(t, tables[name], "missing table %s", name)
	}

	// second Up is a no-op
	require.NoError(t, mg.Up())

	require.NoError(t, mg.Steps(-2))
	v, _, _, err = mg.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	assert.False(t, tableNames(t, db)["renewal_info"])

	require.NoError(t, mg.Down())
	assert.False(t, tableNames(t, db)["merchants"])
}

func TestApplyKeepsSharedPoolOpen(t *testing.T) {
	db := memDB(t)
	require.NoError(t, Apply("sqlite", ":memory:", db))
	require.NoError(t, db.Ping())
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM merchants`).Scan(&n))
	assert.Zero(t, n)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = New("oracle", db)
	assert.Error(t, err)
}
