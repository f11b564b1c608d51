package database

// Dialect names the SQL flavour behind a *sql.DB. Both dialects use "?"
// placeholders; they differ in locking reads and DDL.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// ForUpdate is appended to a SELECT that must lock the rows it reads until
// the surrounding transaction ends. SQLite serializes writers on its own.
func (d Dialect) ForUpdate() string {
	if d == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// ForShare is the shared-lock counterpart of ForUpdate.
func (d Dialect) ForShare() string {
	if d == MySQL {
		return " LOCK IN SHARE MODE"
	}
	return ""
}
