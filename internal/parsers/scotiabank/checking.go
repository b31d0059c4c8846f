package scotiabank

import (
	"strings"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/transform"
)

// Institution is the institution name Scotiabank accounts carry in the ledger
const Institution = "Scotiabank"

// Column positions of the checking export, which has no usable header.
const (
	colReference = iota
	colDate
	colDescription
	colAmount
	colBalance
	colType
)

const (
	typeDebit  = "Débito"
	typeCredit = "Crédito"
)

var _ parser.Format = (*Checking)(nil)

// Checking handles Scotiabank checking account exports.
//
// The file says nothing about the account it belongs to. It is recognized by shape
// and attributed to the configured account names or, when none are configured, to
// the ledger's Scotiabank non-credit account.
type Checking struct {
	accountNames []string
}

// NewChecking returns the Scotiabank checking format routed to accountNames.
func NewChecking(accountNames ...string) *Checking {
	return &Checking{accountNames: accountNames}
}

// Name returns the format identifier
func (c *Checking) Name() string {
	return "scotiabank-checking"
}

// Descriptor returns the positional layout
func (c *Checking) Descriptor() parser.Descriptor {
	return parser.Descriptor{
		Encoding:   "utf-8",
		Delimiter:  ',',
		HeaderRows: 1,
	}
}

// Identify requires the first data row to be a well-formed movement.
func (c *Checking) Identify(path string, snap accounts.Snapshot) []domain.Account {
	rows, err := parser.ReadRows(path, c.Descriptor())
	if err != nil || len(rows) == 0 {
		return nil
	}
	if _, ok := c.Clean(rows[0]); !ok {
		return nil
	}

	if len(c.accountNames) > 0 {
		var matched []domain.Account
		for _, name := range c.accountNames {
			matched = append(matched, snap.ByName(name)...)
		}
		return accounts.Dedupe(matched)
	}

	var matched []domain.Account
	for _, a := range snap.ByInstitution(Institution) {
		if !a.IsCredit() {
			matched = append(matched, a)
		}
	}
	return matched
}

// Extract returns the movement rows
func (c *Checking) Extract(path string) ([]parser.Row, error) {
	return parser.ReadRows(path, c.Descriptor())
}

// Clean keeps rows with a date, amount, balance and a known movement type.
func (c *Checking) Clean(row parser.Row) (parser.Row, bool) {
	if _, err := transform.ParseDate(row.At(colDate), transform.DayMonthYear); err != nil {
		return row, false
	}
	if _, err := transform.ParseAmount(row.At(colAmount)); err != nil {
		return row, false
	}
	if _, err := transform.ParseAmount(row.At(colBalance)); err != nil {
		return row, false
	}
	switch strings.TrimSpace(row.At(colType)) {
	case typeDebit, typeCredit:
		return row, true
	default:
		return row, false
	}
}

// Normalize books Crédito movements as inflows.
func (c *Checking) Normalize(row parser.Row) (*domain.Transaction, error) {
	date, err := transform.ParseDate(row.At(colDate), transform.DayMonthYear)
	if err != nil {
		return nil, err
	}
	amount, err := transform.ParseAmount(row.At(colAmount))
	if err != nil {
		return nil, err
	}
	amount = amount.Abs()

	reference := strings.TrimSpace(row.At(colReference))
	notes := strings.TrimSpace(row.At(colDescription))
	fp := transform.Fingerprint(reference, date.Format(domain.DateLayout), notes, amount)

	credit := strings.TrimSpace(row.At(colType)) == typeCredit
	tx, err := domain.NewTransaction(date, amount, credit, notes, fp)
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
