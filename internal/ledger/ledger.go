// Package ledger defines the contract of the external ledger transactions are
// submitted to.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
)

// ErrNotInserted means the ledger accepted the call but stored nothing, which is
// how it reports an external id it has already seen.
var ErrNotInserted = errors.New("ledger inserted no transaction")

// Ledger is the remote store of accounts and transactions.
type Ledger interface {
	// ListAccounts returns every account transactions can target
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// InsertTransaction stores one transaction and returns the ids it created.
	// An empty result means nothing was stored.
	InsertTransaction(ctx context.Context, req InsertRequest) ([]int64, error)
}

// Options are the per-submission flags sent with every insert.
type Options struct {
	ApplyRules bool `yaml:"apply_rules" json:"apply_rules"`

	// SkipDuplicates asks the ledger for fuzzy duplicate matching. Keep it off:
	// the deterministic external id already makes resubmission a no-op.
	SkipDuplicates bool `yaml:"skip_duplicates" json:"skip_duplicates"`

	SkipBalanceUpdate bool `yaml:"skip_balance_update" json:"skip_balance_update"`
}

// DefaultOptions applies ledger rules and relies on external ids for idempotency.
func DefaultOptions() Options {
	return Options{ApplyRules: true}
}

// InsertRequest is one transaction submission.
type InsertRequest struct {
	Amount          decimal.Decimal
	AccountID       int64
	Currency        string
	Date            string // YYYY-MM-DD
	ExternalID      string
	Notes           string
	Payee           string
	DebitAsNegative bool
	Options
}

// NewInsertRequest builds the submission for an account-assigned transaction.
func NewInsertRequest(tx domain.Transaction, opts Options) (InsertRequest, error) {
	if tx.AccountID == 0 {
		return InsertRequest{}, fmt.Errorf("transaction %s has no account", tx.Fingerprint)
	}
	return InsertRequest{
		Amount:          tx.Amount,
		AccountID:       tx.AccountID,
		Currency:        strings.ToLower(tx.Currency),
		Date:            tx.ISODate(),
		ExternalID:      tx.Fingerprint,
		Notes:           tx.Notes,
		Payee:           tx.Payee,
		DebitAsNegative: tx.DebitAsNegative,
		Options:         opts,
	}, nil
}

// Insert submits req and reports an empty result as ErrNotInserted.
func Insert(ctx context.Context, l Ledger, req InsertRequest) ([]int64, error) {
	ids, err := l.InsertTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: external id %s", ErrNotInserted, req.ExternalID)
	}
	return ids, nil
}
