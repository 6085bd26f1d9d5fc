package driver

import (
	"context"
	"database/sql"
	"time"
)

// SQLWrapper Wraps a *sql.db object and provides the implementation of ITransactionalDB.
//
// it uses zap for default logging
type SQLWrapper struct {
	db      *sql.DB
	dialect string
	adapter func(string) string
}

// SQLWrapperTx transaction wrapper
type SQLWrapperTx struct {
	tx      *sql.Tx
	dialect string
	adapter func(string) string
}

var (
	_ ITransactionalDB = &SQLWrapper{}
	_ ITransactionalDB = &SQLWrapperTx{}
)

// BeginTx start a new transaction context
func (sw *SQLWrapper) BeginTx(ctx context.Context, opts *TxOptions) (ITransactionalDB, error) {
	startTime := time.Now()
	tx, err := sw.db.BeginTx(ctx, sqlTxOptionAdapter(opts))
	logStatement(ctx, "BeginTx", "", nil, startTime, err)
	if err != nil {
		return nil, err
	}
	return &SQLWrapperTx{tx, sw.dialect, sw.adapter}, nil
}

func sqlTxOptionAdapter(opts *TxOptions) *sql.TxOptions {
	if opts == nil {
		return nil
	}
	return &sql.TxOptions{
		Isolation: opts.Isolation,
		ReadOnly:  opts.AccessMode == AccessReadOnly,
	}
}

func (sw *SQLWrapper) Commit(ctx context.Context) error {
	return nil
}

func (sw *SQLWrapper) Rollback(ctx context.Context) error {
	return nil
}

func (sw *SQLWrapper) Close(ctx context.Context) error {
	return sw.db.Close()
}

func (sw *SQLWrapper) Ping(ctx context.Context) error {
	return sw.db.PingContext(ctx)
}

func (sw *SQLWrapper) Dialect() string {
	return sw.dialect
}

func (sw *SQLWrapper) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	startTime := time.Now()
	query = sw.adapter(query)
	res, err := sw.db.ExecContext(ctx, query, args...)
	logStatement(ctx, "Exec", query, args, startTime, err)
	return res, err
}

func (sw *SQLWrapper) QueryContext(ctx context.Context, query string, args ...interface{}) (ISQLRows, error) {
	startTime := time.Now()
	query = sw.adapter(query)
	rows, err := sw.db.QueryContext(ctx, query, args...)
	logStatement(ctx, "Query", query, args, startTime, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (swt *SQLWrapperTx) BeginTx(ctx context.Context, opts *TxOptions) (ITransactionalDB, error) {
	panic("create transaction inside a transaction")
}

func (swt *SQLWrapperTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	startTime := time.Now()
	query = swt.adapter(query)
	res, err := swt.tx.ExecContext(ctx, query, args...)
	logStatement(ctx, "Exec", query, args, startTime, err)
	return res, err
}

func (swt *SQLWrapperTx) QueryContext(ctx context.Context, query string, args ...interface{}) (ISQLRows, error) {
	startTime := time.Now()
	query = swt.adapter(query)
	rows, err := swt.tx.QueryContext(ctx, query, args...)
	logStatement(ctx, "Query", query, args, startTime, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (swt *SQLWrapperTx) Commit(ctx context.Context) error {
	startTime := time.Now()
	err := swt.tx.Commit()
	logStatement(ctx, "Commit", "", nil, startTime, err)
	return err
}

func (swt *SQLWrapperTx) Rollback(ctx context.Context) error {
	startTime := time.Now()
	err := swt.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	logStatement(ctx, "RollBack", "", nil, startTime, err)
	return err
}

func (swt *SQLWrapperTx) Close(ctx context.Context) error {
	return nil
}

func (swt *SQLWrapperTx) Ping(ctx context.Context) error {
	return nil
}

func (swt *SQLWrapperTx) Dialect() string {
	return swt.dialect
}
