package driver

import (
	"database/sql"
	"fmt"
	"time"

	// pure go sqlite driver
	_ "modernc.org/sqlite"
)

const sqliteBusyTimeout = 5 * time.Second

// NewSQLiteConn opens an embedded database file, pragmas are carried in the DSN so they apply to every pooled connection
func NewSQLiteConn(path string, cfg *DBConfig) (ITransactionalDB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, sqliteBusyTimeout.Milliseconds())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	// single writer
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(time.Hour)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return &SQLWrapper{conn, DialectSQLite, sqliteAdapter}, nil
}

// sqlite understands double quoted identifiers, only placeholders need rewriting
func sqliteAdapter(query string) string {
	query = DollarPlaceholderPattern.ReplaceAllString(query, "?")
	query = SpacePattern.ReplaceAllString(query, " ")
	return query
}
