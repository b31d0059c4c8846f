package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

// AccountType represents the ledger's account type.
// Values mirror the ledger's own type names; unknown values are kept as-is.
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeOther      AccountType = "other"
)

var validAccountTypes = map[AccountType]struct{}{
	AccountTypeCash: {}, AccountTypeCredit: {},
	AccountTypeInvestment: {}, AccountTypeOther: {},
}

// Account is a ledger-side target account. It is owned by the external ledger
// and treated as read-only for the duration of a run.
type Account struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Currency    string      `json:"currency"` // lower-case ISO 4217 code
	Institution string      `json:"institution"`
	Type        AccountType `json:"type"`
}

// NewAccount creates a validated account. Currency is normalized to lower case.
func NewAccount(id int64, name, currency, institution string, accountType AccountType) (*Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid account: id must be positive, got %d", id)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("invalid account %d: name is required", id)
	}
	if strings.TrimSpace(currency) == "" {
		return nil, fmt.Errorf("invalid account %d: currency is required", id)
	}
	return &Account{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Currency:    strings.ToLower(strings.TrimSpace(currency)),
		Institution: strings.TrimSpace(institution),
		Type:        accountType,
	}, nil
}

// IsCredit reports whether the account is a credit card/line.
func (a Account) IsCredit() bool {
	return a.Type == AccountTypeCredit
}

// String returns a short human readable label for logs
func (a Account) String() string {
	return fmt.Sprintf("%s (#%d, %s)", a.Name, a.ID, strings.ToUpper(a.Currency))
}

// Transaction is the canonical normalized transaction produced from one statement row.
//
// Amount is always an unsigned magnitude. The direction of the money flow is carried
// by DebitAsNegative, whose meaning is defined per statement format.
type Transaction struct {
	Date            time.Time       `json:"-"`
	Amount          decimal.Decimal `json:"amount"`
	DebitAsNegative bool            `json:"debitAsNegative"`
	Notes           string          `json:"notes"`
	Payee           string          `json:"payee,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Fingerprint     string          `json:"externalId"`

	// Currency starts as the row's own currency hint (empty for single-currency
	// formats) and is replaced by the resolved account's currency.
	Currency  string `json:"currency"`
	AccountID int64  `json:"accountId,omitempty"`

	// Line is the zero-based record index in the source file.
	Line int `json:"line"`
}

// NewTransaction creates a validated transaction with an unsigned amount.
func NewTransaction(date time.Time, amount decimal.Decimal, debitAsNegative bool, notes, fingerprint string) (*Transaction, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("transaction date cannot be zero")
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("transaction amount must be unsigned, got %s", amount)
	}
	if fingerprint == "" {
		return nil, fmt.Errorf("transaction fingerprint cannot be empty")
	}
	return &Transaction{
		Date:            date,
		Amount:          amount,
		DebitAsNegative: debitAsNegative,
		Notes:           strings.TrimSpace(notes),
		Fingerprint:     fingerprint,
	}, nil
}

// ISODate returns the transaction date formatted as YYYY-MM-DD.
func (t Transaction) ISODate() string {
	return t.Date.Format(DateLayout)
}

// Assign attributes the transaction to acc and inherits its currency.
func (t *Transaction) Assign(acc Account) {
	t.AccountID = acc.ID
	t.Currency = acc.Currency
}

// ValidateAccountType reports whether t is one of the known ledger account types.
func ValidateAccountType(t AccountType) bool {
	_, ok := validAccountTypes[t]
	return ok
}
