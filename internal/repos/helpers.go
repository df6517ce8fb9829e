package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// insertID runs a named INSERT ... RETURNING id and scans the new id.
func insertID(ctx context.Context, db DBTX, query string, arg any) (int64, error) {
	rows, err := sqlx.NamedQueryContext(ctx, db, query, arg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, sql.ErrNoRows
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

// execOne runs a named statement and reports ErrNotFound when no row changed.
func execOne(ctx context.Context, db DBTX, op, query string, arg any) error {
	res, err := sqlx.NamedExecContext(ctx, db, query, arg)
	if err != nil {
		return dbErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func get(ctx context.Context, db DBTX, op string, dest any, query string, args ...any) error {
	return dbErr(op, db.GetContext(ctx, dest, db.Rebind(query), args...))
}

func selectAll(ctx context.Context, db DBTX, op string, dest any, query string, args ...any) error {
	return dbErr(op, db.SelectContext(ctx, dest, db.Rebind(query), args...))
}

func exec(ctx context.Context, db DBTX, op, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, dbErr(op, err)
	}
	n, err := res.RowsAffected()
	return n, dbErr(op, err)
}
