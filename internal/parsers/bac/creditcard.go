package bac

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/transform"
)

var cardFields = []string{
	"Card holder",
	"Card number",
	"Statement date",
	"Due date",
	"Minimum payment CRC",
	"Minimum payment USD",
}

var cardTransactionFields = []string{
	"Date",
	"Reference",
	"Description",
	"Local amount",
	"Dollar amount",
}

var _ parser.Format = (*CreditCard)(nil)

// CreditCard handles BAC credit card statements. A card statement carries colones
// and dollar movements in parallel columns, so one file feeds up to two ledger
// accounts whose names end with the card's last four digits.
type CreditCard struct{}

// NewCreditCard returns the BAC credit card format
func NewCreditCard() *CreditCard {
	return &CreditCard{}
}

// Name returns the format identifier
func (c *CreditCard) Name() string {
	return "bac-credit-card"
}

// Descriptor: card labels, card values and the transaction labels precede the transactions.
func (c *CreditCard) Descriptor() parser.Descriptor {
	return parser.Descriptor{
		Fields:       cardTransactionFields,
		Encoding:     encoding,
		Delimiter:    ',',
		HeaderRows:   3,
		MultiAccount: true,
	}
}

// Identify checks the statement's shape before matching the card's last four
// digits against account name suffixes. The third record must hold the
// transaction labels and the card number must be a full or masked PAN. A first
// movement, when present, must carry a day-first date.
func (c *CreditCard) Identify(path string, snap accounts.Snapshot) []domain.Account {
	records, err := parser.ReadRecords(path, parser.Descriptor{Encoding: encoding, Delimiter: ','})
	if err != nil || len(records) < 3 {
		return nil
	}
	if !hasLabels(records[2], cardTransactionFields) {
		return nil
	}
	number := parser.NewRow(1, records[1], parser.FieldIndex(cardFields)).Get("Card number")
	if !isCardNumber(number) {
		return nil
	}
	if len(records) > 3 {
		first := parser.NewRow(3, records[3], parser.FieldIndex(cardTransactionFields))
		if _, err := transform.ParseDate(first.Get("Date"), transform.DayMonthYear); err != nil {
			return nil
		}
	}
	return snap.ByNameSuffix(transform.ExtractLast4(number))
}

// hasLabels reports whether record starts with labels, ignoring surrounding space.
func hasLabels(record, labels []string) bool {
	if len(record) < len(labels) {
		return false
	}
	for i, l := range labels {
		if strings.TrimSpace(record[i]) != l {
			return false
		}
	}
	return true
}

// isCardNumber accepts digits, mask characters and group separators, with at
// least twelve digit or mask positions.
func isCardNumber(value string) bool {
	positions := 0
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9', r == 'X', r == 'x', r == '*':
			positions++
		case r == '-', r == ' ':
		default:
			return false
		}
	}
	return positions >= 12 && transform.ExtractLast4(value) != ""
}

// Extract returns the transaction rows
func (c *CreditCard) Extract(path string) ([]parser.Row, error) {
	return parser.ReadRows(path, c.Descriptor())
}

// Clean keeps dated rows with a movement in exactly one currency column.
func (c *CreditCard) Clean(row parser.Row) (parser.Row, bool) {
	if _, err := transform.ParseDate(row.Get("Date"), transform.DayMonthYear); err != nil {
		return row, false
	}
	if _, _, err := c.movement(row); err != nil {
		return row, false
	}
	return row, true
}

// movement returns the nonzero amount and the currency column it came from.
// Local and dollar columns are mutually exclusive.
func (c *CreditCard) movement(row parser.Row) (decimal.Decimal, string, error) {
	local, err := transform.ParseOptionalAmount(row.Get("Local amount"))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("local amount: %w", err)
	}
	dollar, err := transform.ParseOptionalAmount(row.Get("Dollar amount"))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("dollar amount: %w", err)
	}

	switch {
	case !local.IsZero() && !dollar.IsZero():
		return decimal.Zero, "", fmt.Errorf("record %d has both local and dollar amounts", row.Line)
	case !local.IsZero():
		return local, "crc", nil
	case !dollar.IsZero():
		return dollar, "usd", nil
	default:
		return decimal.Zero, "", fmt.Errorf("record %d has no amount", row.Line)
	}
}

// Normalize books negative movements (payments and refunds) as inflows.
func (c *CreditCard) Normalize(row parser.Row) (*domain.Transaction, error) {
	date, err := transform.ParseDate(row.Get("Date"), transform.DayMonthYear)
	if err != nil {
		return nil, err
	}
	value, currency, err := c.movement(row)
	if err != nil {
		return nil, err
	}

	amount := value.Abs()
	reference := strings.TrimSpace(row.Get("Reference"))
	notes := strings.TrimSpace(row.Get("Description"))
	fp := transform.Fingerprint(reference, date.Format(domain.DateLayout), notes, amount)

	tx, err := domain.NewTransaction(date, amount, value.IsNegative(), notes, fp)
	if err != nil {
		return nil, err
	}
	tx.Reference = reference
	tx.Currency = currency
	tx.Line = row.Line
	return tx, nil
}

// ResolveAccount picks the matched account in the row's currency.
func (c *CreditCard) ResolveAccount(row parser.Row, matched []domain.Account) (domain.Account, bool) {
	_, currency, err := c.movement(row)
	if err != nil {
		return domain.Account{}, false
	}
	return accounts.Single(accounts.WithCurrency(matched, currency))
}
