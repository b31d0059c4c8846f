// Package parser defines the contract every statement format implements and the
// row reader they share.
package parser

import (
	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
)

// Format is the strategy interface for one institution-specific statement layout.
//
// Implementations are stateless and safe for concurrent use. None of the methods
// panics on malformed input: Identify answers nil, Clean answers false and
// Normalize answers an error.
type Format interface {
	// Name returns the format identifier (e.g., "bac-checking")
	Name() string

	// Descriptor returns the layout of the transaction region
	Descriptor() Descriptor

	// Identify reads the file's header region and returns the accounts it belongs to.
	// An empty result means the file is not in this format.
	Identify(path string, snap accounts.Snapshot) []domain.Account

	// Extract reads every record of the transaction region
	Extract(path string) ([]Row, error)

	// Clean reports whether row is a well-formed transaction row
	Clean(row Row) (Row, bool)

	// Normalize converts a cleaned row into a transaction. The returned transaction
	// has no account assigned yet.
	Normalize(row Row) (*domain.Transaction, error)

	// ResolveAccount picks the account a row belongs to among the accounts
	// Identify matched. ok is false when no account fits the row.
	ResolveAccount(row Row, matched []domain.Account) (acc domain.Account, ok bool)
}

// Descriptor is the static layout of a statement format.
type Descriptor struct {
	// Fields names the columns in order. Nil means rows are accessed by position.
	Fields []string

	// Encoding is a WHATWG encoding label such as "utf-8" or "windows-1252"
	Encoding string

	// Delimiter separates fields
	Delimiter rune

	// HeaderRows is the number of leading records that are not transactions
	HeaderRows int

	// MultiAccount is true when one file may feed several accounts (one per
	// currency or card). Single-account formats refuse ambiguous matches.
	MultiAccount bool
}

// Positional reports whether rows of this layout are accessed by column index.
func (d Descriptor) Positional() bool {
	return len(d.Fields) == 0
}
