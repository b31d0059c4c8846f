// Package scotiabank parses Scotiabank Costa Rica checking and credit card exports.
package scotiabank

import (
	"strings"

	"golang.org/x/text/currency"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/transform"
)

const (
	fieldReference   = "Número de Referencia"
	fieldDate        = "Fecha de Movimiento"
	fieldDescription = "Descripción"
	fieldAmount      = "Monto"
	fieldCurrency    = "Moneda"
	fieldType        = "Tipo"
)

var cardFields = []string{fieldReference, fieldDate, fieldDescription, fieldAmount, fieldCurrency, fieldType}

var _ parser.Format = (*CreditCard)(nil)

// CreditCard handles Scotiabank credit card exports.
//
// The export groups movements under marker rows whose date column holds the card
// number instead of a date. A file can cover several cards and both currencies.
type CreditCard struct{}

// NewCreditCard returns the Scotiabank credit card format
func NewCreditCard() *CreditCard {
	return &CreditCard{}
}

// Name returns the format identifier
func (c *CreditCard) Name() string {
	return "scotiabank-credit-card"
}

// Descriptor returns the layout: one label row, then markers and movements.
func (c *CreditCard) Descriptor() parser.Descriptor {
	return parser.Descriptor{
		Fields:       cardFields,
		Encoding:     "utf-8",
		Delimiter:    ';',
		HeaderRows:   1,
		MultiAccount: true,
	}
}

// cardMarker returns the last four digits of a marker row, or "" for movements.
func cardMarker(row parser.Row) string {
	value := row.Get(fieldDate)
	if _, err := transform.ParseDate(value, transform.DayMonthYear); err == nil {
		return ""
	}
	return transform.ExtractLast4(value)
}

// Identify requires a card marker on the second record and a movement date on the
// third, then matches every card in the file against account name suffixes.
func (c *CreditCard) Identify(path string, snap accounts.Snapshot) []domain.Account {
	records, err := parser.ReadRecords(path, c.Descriptor())
	if err != nil || len(records) < 3 {
		return nil
	}
	idx := parser.FieldIndex(cardFields)
	if cardMarker(parser.NewRow(1, records[1], idx)) == "" {
		return nil
	}
	if _, err := transform.ParseDate(parser.NewRow(2, records[2], idx).Get(fieldDate), transform.DayMonthYear); err != nil {
		return nil
	}

	var matched []domain.Account
	for i := 1; i < len(records); i++ {
		if digits := cardMarker(parser.NewRow(i, records[i], idx)); digits != "" {
			matched = append(matched, snap.ByNameSuffix(digits)...)
		}
	}
	return accounts.Dedupe(matched)
}

// Extract returns every row after the label row, each tagged with the digits of
// the nearest preceding card marker. Markers are located in one forward pass.
func (c *CreditCard) Extract(path string) ([]parser.Row, error) {
	rows, err := parser.ReadRows(path, c.Descriptor())
	if err != nil {
		return nil, err
	}
	card := ""
	for i, row := range rows {
		if digits := cardMarker(row); digits != "" {
			card = digits
		}
		rows[i] = row.WithSection(card)
	}
	return rows, nil
}

// Clean keeps dated movements in a recognized currency with a parseable amount.
// Marker rows fail the date check.
func (c *CreditCard) Clean(row parser.Row) (parser.Row, bool) {
	if _, err := transform.ParseDate(row.Get(fieldDate), transform.DayMonthYear); err != nil {
		return row, false
	}
	if _, err := currency.ParseISO(strings.TrimSpace(row.Get(fieldCurrency))); err != nil {
		return row, false
	}
	if _, err := transform.ParseAmount(row.Get(fieldAmount)); err != nil {
		return row, false
	}
	return row, true
}

// Normalize books CREDITO movements (payments, refunds) as inflows.
func (c *CreditCard) Normalize(row parser.Row) (*domain.Transaction, error) {
	date, err := transform.ParseDate(row.Get(fieldDate), transform.DayMonthYear)
	if err != nil {
		return nil, err
	}
	amount, err := transform.ParseAmount(row.Get(fieldAmount))
	if err != nil {
		return nil, err
	}
	amount = amount.Abs()

	reference := strings.TrimSpace(row.Get(fieldReference))
	notes := strings.TrimSpace(row.Get(fieldDescription))
	fp := transform.Fingerprint(reference, date.Format(domain.DateLayout), notes, amount)

	credit := strings.EqualFold(strings.TrimSpace(row.Get(fieldType)), "CREDITO")
	tx, err := domain.NewTransaction(date, amount, credit, notes, fp)
	if err != nil {
		return nil, err
	}
	tx.Reference = reference
	tx.Currency = strings.ToLower(strings.TrimSpace(row.Get(fieldCurrency)))
	tx.Line = row.Line
	return tx, nil
}

// ResolveAccount narrows the matched accounts to the row's card, then to its currency.
func (c *CreditCard) ResolveAccount(row parser.Row, matched []domain.Account) (domain.Account, bool) {
	candidates := matched
	if row.Section != "" {
		candidates = accounts.WithNameSuffix(matched, row.Section)
	}
	return accounts.Single(accounts.WithCurrency(candidates, row.Get(fieldCurrency)))
}
