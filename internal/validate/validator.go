// Package validate checks a file's normalized transactions before they are
// offered for submission.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
)

// ValidationResult contains all validation errors and warnings for a batch
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning

	// Valid holds the transactions without errors, in input order.
	Valid []*domain.Transaction
}

// ValidationError represents a problem that drops the transaction
type ValidationError struct {
	Line    int
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %s", e.Line, e.Field, e.Value, e.Message)
}

// ValidationWarning represents a non-critical validation issue
type ValidationWarning struct {
	Line    int
	Field   string
	Value   string
	Message string
}

// HasErrors reports whether any transaction was dropped
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ValidateBatch checks each transaction on its own and then the batch as a
// whole. A transaction with any error is left out of Valid. Repeated
// fingerprints are warnings only: the ledger collapses them, the batch keeps them.
func ValidateBatch(txs []*domain.Transaction) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
		Valid:    make([]*domain.Transaction, 0, len(txs)),
	}

	seen := make(map[string]int)
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		errs := validateTransaction(tx)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}

		key := strconv.FormatInt(tx.AccountID, 10) + ":" + tx.Fingerprint
		if first, dup := seen[key]; dup {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Line:    tx.Line,
				Field:   "Fingerprint",
				Value:   tx.Fingerprint,
				Message: fmt.Sprintf("same fingerprint as line %d; the ledger will keep only one", first),
			})
		} else {
			seen[key] = tx.Line
		}
		result.Valid = append(result.Valid, tx)
	}

	return result
}

func validateTransaction(tx *domain.Transaction) []ValidationError {
	var errs []ValidationError
	add := func(field, value, msg string) {
		errs = append(errs, ValidationError{Line: tx.Line, Field: field, Value: value, Message: msg})
	}

	if tx.Date.IsZero() {
		add("Date", "", "date is missing")
	} else if tx.Date.Year() < 1900 || tx.Date.Year() > 9999 {
		add("Date", tx.ISODate(), "date is outside the ISO-8601 calendar range")
	}
	if tx.Amount.IsNegative() {
		add("Amount", tx.Amount.String(), "amount must be an unsigned magnitude")
	}
	if strings.TrimSpace(tx.Fingerprint) == "" {
		add("Fingerprint", "", "fingerprint cannot be empty")
	}
	if tx.AccountID <= 0 {
		add("AccountID", strconv.FormatInt(tx.AccountID, 10), "no ledger account resolved")
	}
	if tx.Currency == "" {
		add("Currency", "", "currency is missing")
	} else if _, err := currency.ParseISO(tx.Currency); err != nil {
		add("Currency", tx.Currency, "not an ISO 4217 currency code")
	}

	return errs
}
