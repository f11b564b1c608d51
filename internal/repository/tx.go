// Package repository holds the data access layer.
// This file holds the transaction helper shared by multi-statement writes.
package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction. Any error from fn, or a cancelled
// ctx, rolls the whole transaction back.
func withTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%s: commit: %w", op, cerr)
		}
	}()
	return fn(tx)
}
