package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LedgerStore hands out scoped balance transactions. The returned LedgerTx
// holds a row lock on the user from BalanceForUpdate until Commit or
// Rollback, which serializes concurrent debits on the same account.
type LedgerStore interface {
	Begin(ctx context.Context) (LedgerTx, error)
}

type LedgerTx interface {
	BalanceForUpdate(ctx context.Context, userID int64) (balance int64, found bool, err error)
	SetBalance(ctx context.Context, userID int64, balance int64) error
	Commit() error
	Rollback() error
}

type ledgerStore struct {
	db *Database
}

func NewLedgerStore(db *Database) LedgerStore {
	return &ledgerStore{db: db}
}

func (s *ledgerStore) Begin(ctx context.Context) (LedgerTx, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &ledgerTx{tx: tx}, nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) BalanceForUpdate(ctx context.Context, userID int64) (int64, bool, error) {
	var balance int64
	query := `SELECT balance FROM users WHERE id = $1 FOR UPDATE`
	err := t.tx.QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

func (t *ledgerTx) SetBalance(ctx context.Context, userID int64, balance int64) error {
	query := `UPDATE users SET balance = $1 WHERE id = $2`
	_, err := t.tx.ExecContext(ctx, query, balance, userID)
	return err
}

func (t *ledgerTx) Commit() error {
	return t.tx.Commit()
}

func (t *ledgerTx) Rollback() error {
	return t.tx.Rollback()
}
