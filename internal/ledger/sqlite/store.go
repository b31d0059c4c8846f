// Package sqlite implements the ledger contract on a local SQLite database for
// offline imports and rehearsals.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	currency TEXT NOT NULL,
	institution TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'cash',
	balance TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	external_id TEXT NOT NULL,
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	currency TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	payee TEXT NOT NULL DEFAULT '',
	debit_as_negative BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(account_id, external_id),
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);
`

var _ ledger.Ledger = (*Store)(nil)

// Store is a ledger backed by a SQLite file. A repeated (account, external id)
// pair inserts nothing, like the hosted ledger's duplicate rule.
type Store struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Open opens or creates the database at path and upserts the seed accounts.
func Open(ctx context.Context, path string, seed []domain.Account, log logrus.FieldLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// Single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	for _, acc := range seed {
		if err := s.UpsertAccount(ctx, acc); err != nil {
			db.Close()
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{"path": path, "seeded": len(seed)}).Debug("Opened sqlite ledger")
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertAccount creates or renames an account. The balance is left untouched.
func (s *Store) UpsertAccount(ctx context.Context, acc domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, institution, type) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			currency = excluded.currency,
			institution = excluded.institution,
			type = excluded.type`,
		acc.ID, acc.Name, acc.Currency, acc.Institution, string(acc.Type))
	if err != nil {
		return fmt.Errorf("failed to upsert account %d: %w", acc.ID, err)
	}
	return nil
}

// ListAccounts returns all accounts ordered by id
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, currency, institution, type FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var typ string
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.Institution, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Type = domain.AccountType(typ)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// InsertTransaction stores the transaction unless its external id is already
// known for the account, in which case it returns no ids.
func (s *Store) InsertTransaction(ctx context.Context, req ledger.InsertRequest) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	var balanceText string
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, req.AccountID).Scan(&balanceText)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown account %d", req.AccountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", req.AccountID, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions
			(account_id, external_id, date, amount, currency, notes, payee, debit_as_negative)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.AccountID, req.ExternalID, req.Date, req.Amount.String(), req.Currency,
		req.Notes, req.Payee, req.DebitAsNegative)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", req.ExternalID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		s.log.WithField("external_id", req.ExternalID).Debug("Duplicate external id ignored")
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if !req.SkipBalanceUpdate {
		balance, err := decimal.NewFromString(balanceText)
		if err != nil {
			return nil, fmt.Errorf("corrupt balance %q on account %d: %w", balanceText, req.AccountID, err)
		}
		if req.DebitAsNegative {
			balance = balance.Add(req.Amount)
		} else {
			balance = balance.Sub(req.Amount)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), req.AccountID); err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", req.ExternalID, err)
	}
	return []int64{id}, nil
}

// Balance returns the running balance of an account
func (s *Store) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var text string
	if err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&text); err != nil {
		return decimal.Zero, fmt.Errorf("failed to load balance of %d: %w", accountID, err)
	}
	return decimal.NewFromString(text)
}

// CountTransactions returns how many transactions an account holds
func (s *Store) CountTransactions(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
