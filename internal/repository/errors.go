// Package repository holds the data access layer. Every query that reads or
// deletes exercises, routines or workout logs is scoped to the caller: a row
// is visible when it is a default row or when the caller owns it.
//
// Failures the client can act on are returned as *apperr.Error. Anything
// else is wrapped with the failing operation and left for the handler to log.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	sqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const mysqlDuplicateEntry = 1062

// mysqlUniqueKeys maps the schema's unique key names to their column.
var mysqlUniqueKeys = map[string]string{
	"uq_users_username": "username",
	"uq_users_email":    "email",
	"uq_exercises_name": "name",
	"uq_routines_name":  "name",
}

// uniqueViolation reports whether err is a unique constraint failure and,
// when the driver names it, which column was violated.
func uniqueViolation(err error) (column string, ok bool) {
	if err == nil {
		return "", false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != mysqlDuplicateEntry {
			return "", false
		}
		return mysqlUniqueKeys[mysqlKeyName(myErr.Message)], true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return sqliteColumn(liteErr.Error()), true
		}
		return "", false
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return sqliteColumn(msg), true
	}
	return "", false
}

// mysqlKeyName pulls the key out of "Duplicate entry 'x' for key 'tbl.key'".
// Servers before 8.0.19 omit the table prefix.
func mysqlKeyName(msg string) string {
	idx := strings.LastIndex(msg, "for key '")
	if idx == -1 {
		return ""
	}
	key := strings.TrimSuffix(msg[idx+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot != -1 {
		key = key[dot+1:]
	}
	return key
}

// sqliteColumn pulls the column out of "UNIQUE constraint failed: tbl.col".
// Composite keys list several columns; the first one is returned.
func sqliteColumn(msg string) string {
	idx := strings.Index(msg, "UNIQUE constraint failed: ")
	if idx == -1 {
		return ""
	}
	rest := msg[idx+len("UNIQUE constraint failed: "):]
	if comma := strings.IndexAny(rest, ", )"); comma != -1 {
		rest = rest[:comma]
	}
	if dot := strings.LastIndex(rest, "."); dot != -1 {
		rest = rest[dot+1:]
	}
	return rest
}
