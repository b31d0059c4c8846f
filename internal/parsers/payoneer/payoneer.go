// Package payoneer parses Payoneer account activity exports.
package payoneer

import (
	"strconv"
	"strings"

	"golang.org/x/text/currency"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/transform"
)

// Institution is the account name or institution that Payoneer statements feed
const Institution = "Payoneer"

var fields = []string{
	"Transaction Date",
	"Transaction Time",
	"Time Zone",
	"Transaction ID",
	"Description",
	"Credit Amount",
	"Debit Amount",
	"Currency",
	"Transfer Amount",
	"Transfer Amount Currency",
	"Status",
	"Additional Description",
	"Store Name",
	"Source",
	"Target",
	"Reference ID",
}

var _ parser.Format = (*Parser)(nil)

// Parser handles Payoneer exports. A Payoneer balance can hold several currencies,
// so rows are routed to the matched account in the row's currency.
type Parser struct{}

// NewParser returns the Payoneer format
func NewParser() *Parser {
	return &Parser{}
}

// Name returns the format identifier
func (p *Parser) Name() string {
	return "payoneer"
}

// Descriptor returns the layout: one label row, then transactions.
func (p *Parser) Descriptor() parser.Descriptor {
	return parser.Descriptor{
		Fields:       fields,
		Encoding:     "utf-8",
		Delimiter:    ',',
		HeaderRows:   1,
		MultiAccount: true,
	}
}

// Identify requires the first transaction to carry a numeric transaction id,
// then returns the accounts named or held at Payoneer.
func (p *Parser) Identify(path string, snap accounts.Snapshot) []domain.Account {
	rows, err := parser.ReadRows(path, p.Descriptor())
	if err != nil || len(rows) == 0 {
		return nil
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(rows[0].Get("Transaction ID")), 10, 64); err != nil {
		return nil
	}
	matched := append(snap.ByNameFold(Institution), snap.ByInstitution(Institution)...)
	return accounts.Dedupe(matched)
}

// Extract returns transactions oldest first. Payoneer lists the newest first,
// so reversing keeps same-day entries in the order they happened.
func (p *Parser) Extract(path string) ([]parser.Row, error) {
	rows, err := parser.ReadRows(path, p.Descriptor())
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// Clean keeps dated rows in a recognized currency that carry an amount.
func (p *Parser) Clean(row parser.Row) (parser.Row, bool) {
	if _, err := transform.ParseDate(row.Get("Transaction Date"), transform.MonthDayYear); err != nil {
		return row, false
	}
	if _, err := currency.ParseISO(strings.TrimSpace(row.Get("Currency"))); err != nil {
		return row, false
	}
	if _, _, err := amount(row); err != nil {
		return row, false
	}
	return row, true
}

// amount returns the magnitude and whether it came from the credit column.
func amount(row parser.Row) (value string, credit bool, err error) {
	if c := strings.TrimSpace(row.Get("Credit Amount")); c != "" {
		_, err := transform.ParseAmount(c)
		return c, true, err
	}
	d := strings.TrimSpace(row.Get("Debit Amount"))
	_, err = transform.ParseAmount(d)
	return d, false, err
}

// Normalize flags credits as debit_as_negative so the ledger books them as inflows.
func (p *Parser) Normalize(row parser.Row) (*domain.Transaction, error) {
	id, err := row.Require("Transaction ID")
	if err != nil {
		return nil, err
	}
	code, err := row.Require("Currency")
	if err != nil {
		return nil, err
	}
	date, err := transform.ParseDate(row.Get("Transaction Date"), transform.MonthDayYear)
	if err != nil {
		return nil, err
	}
	raw, credit, err := amount(row)
	if err != nil {
		return nil, err
	}
	value, err := transform.ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	value = value.Abs()

	id = strings.TrimSpace(id)
	notes := strings.TrimSpace(row.Get("Description"))
	fp := transform.Fingerprint(id, date.Format(domain.DateLayout), notes, value)

	tx, err := domain.NewTransaction(date, value, credit, notes, fp)
	if err != nil {
		return nil, err
	}
	tx.Reference = id
	tx.Currency = strings.ToLower(strings.TrimSpace(code))
	tx.Line = row.Line
	return tx, nil
}

// ResolveAccount picks the matched account in the row's currency.
func (p *Parser) ResolveAccount(row parser.Row, matched []domain.Account) (domain.Account, bool) {
	return accounts.Single(accounts.WithCurrency(matched, row.Get("Currency")))
}
