// Package bac parses the CSV exports of BAC Credomatic checking accounts and credit cards.
//
// Both layouts are Windows-1252 encoded and open with a metadata block describing
// the product, followed by the transaction table.
package bac

import (
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/transform"
)

const encoding = "windows-1252"

// Account metadata block: a label record followed by a value record.
var assetFields = []string{
	"Number of customers",
	"Name",
	"Product",
	"Currency",
	"Initial balance",
	"Total balance",
	"Withheld and deferred funds",
	"Balance",
	"Date",
	"STBGAV",
	"STBUNC",
	"Message 1",
	"Message 2",
	"Message 3",
	"Message 4",
	"Message 5",
	"Message 6",
}

var checkingFields = []string{
	"Transaction date",
	"Transaction reference",
	"Transaction codes",
	"Description of transactions",
	"Transaction debit",
	"Transaction credit",
	"Transaction balance",
}

var _ parser.Format = (*Checking)(nil)

// Checking handles BAC checking and savings account statements.
// The account is identified by the product name declared in the metadata block,
// which must equal a ledger account name.
type Checking struct{}

// NewChecking returns the BAC checking account format
func NewChecking() *Checking {
	return &Checking{}
}

// Name returns the format identifier
func (c *Checking) Name() string {
	return "bac-checking"
}

// Descriptor: asset labels, asset values, a separator and the transaction labels
// precede the transactions.
func (c *Checking) Descriptor() parser.Descriptor {
	return parser.Descriptor{
		Fields:     checkingFields,
		Encoding:   encoding,
		Delimiter:  ',',
		HeaderRows: 4,
	}
}

// Identify matches the declared product against account names.
func (c *Checking) Identify(path string, snap accounts.Snapshot) []domain.Account {
	records, err := parser.ReadRecords(path, parser.Descriptor{Encoding: encoding, Delimiter: ','})
	if err != nil || len(records) < 2 {
		return nil
	}
	meta := parser.NewRow(1, records[1], parser.FieldIndex(assetFields))
	return snap.ByName(meta.Get("Product"))
}

// Extract returns the transaction rows
func (c *Checking) Extract(path string) ([]parser.Row, error) {
	return parser.ReadRows(path, c.Descriptor())
}

// Clean keeps rows with a valid date and a running balance. Footer and summary
// lines carry neither.
func (c *Checking) Clean(row parser.Row) (parser.Row, bool) {
	if strings.TrimSpace(row.Get("Transaction balance")) == "" {
		return row, false
	}
	if _, err := transform.ParseDate(row.Get("Transaction date"), transform.DayMonthYear); err != nil {
		return row, false
	}
	return row, true
}

// Normalize takes whichever of debit and credit is nonzero. Credits are flagged
// debit_as_negative so the ledger books them as inflows.
func (c *Checking) Normalize(row parser.Row) (*domain.Transaction, error) {
	date, err := transform.ParseDate(row.Get("Transaction date"), transform.DayMonthYear)
	if err != nil {
		return nil, err
	}
	debit, err := transform.ParseOptionalAmount(row.Get("Transaction debit"))
	if err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}
	credit, err := transform.ParseOptionalAmount(row.Get("Transaction credit"))
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}

	amount := debit
	if amount.IsZero() {
		amount = credit
	}
	amount = amount.Abs()

	reference := strings.TrimSpace(row.Get("Transaction reference"))
	notes := strings.TrimSpace(row.Get("Description of transactions"))
	fp := transform.Fingerprint(reference, date.Format(domain.DateLayout), notes, amount)

	tx, err := domain.NewTransaction(date, amount, credit.IsPositive(), notes, fp)
	if err != nil {
		return nil, err
	}
	tx.Reference = reference
	tx.Line = row.Line
	return tx, nil
}

// ResolveAccount returns the single identified account
func (c *Checking) ResolveAccount(row parser.Row, matched []domain.Account) (domain.Account, bool) {
	return accounts.Single(matched)
}
