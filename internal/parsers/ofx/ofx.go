// Package ofx provides OFX/QFX statement parsing as the lowest priority format.
package ofx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/transform"
)

// Synthetic field names of the rows built from OFX transactions.
const (
	FieldID       = "FITID"
	FieldDate     = "DATE"
	FieldName     = "NAME"
	FieldMemo     = "MEMO"
	FieldAmount   = "AMOUNT"
	FieldCurrency = "CURRENCY"
	FieldAccount  = "ACCTID"
)

var fields = []string{FieldID, FieldDate, FieldName, FieldMemo, FieldAmount, FieldCurrency, FieldAccount}

var _ parser.Format = (*Parser)(nil)

// Parser handles bank and credit card OFX/QFX statements. It is stateless and
// safe for concurrent use.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared OFX parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "ofx"
}

// Descriptor describes the synthetic rows Extract produces.
func (p *Parser) Descriptor() parser.Descriptor {
	return parser.Descriptor{
		Fields:       fields,
		Encoding:     "utf-8",
		MultiAccount: true,
	}
}

// CanParse checks the extension and the header for OFX markers
func (p *Parser) CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}

	// v1 SGML and v2 XML headers
	headerUpper := strings.ToUpper(string(header))
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

// statement is the part of a bank or credit card statement response we use
type statement struct {
	accountID string
	currency  string
	txns      []ofxgo.Transaction
}

// load parses the file and flattens its bank and credit card statements.
func (p *Parser) load(path string) ([]statement, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content from %s: %w", path, err)
	}
	if !p.CanParse(path, content) {
		return nil, fmt.Errorf("%s is not an OFX file", path)
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file from %s (%d bytes): %w", path, len(content), err)
	}

	var stmts []statement
	for _, msg := range response.Bank {
		bankStmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("failed to type assert bank statement: expected *ofxgo.StatementResponse, got %T", msg)
		}
		s := statement{
			accountID: bankStmt.BankAcctFrom.AcctID.String(),
			currency:  currencyCode(bankStmt.CurDef),
		}
		if bankStmt.BankTranList != nil {
			s.txns = bankStmt.BankTranList.Transactions
		}
		stmts = append(stmts, s)
	}
	for _, msg := range response.CreditCard {
		ccStmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("failed to type assert credit card statement: expected *ofxgo.CCStatementResponse, got %T", msg)
		}
		s := statement{
			accountID: ccStmt.CCAcctFrom.AcctID.String(),
			currency:  currencyCode(ccStmt.CurDef),
		}
		if ccStmt.BankTranList != nil {
			s.txns = ccStmt.BankTranList.Transactions
		}
		stmts = append(stmts, s)
	}

	if len(stmts) == 0 {
		return nil, fmt.Errorf("no bank or credit card statement found in %s (investment: %d)", path, len(response.InvStmt))
	}
	return stmts, nil
}

// currencyCode returns the lower-case ISO code, or "" when the statement omits it.
func currencyCode(sym ofxgo.CurrSymbol) string {
	if ok, _ := sym.Valid(); !ok {
		return ""
	}
	return strings.ToLower(sym.String())
}

// Identify matches the last four digits of every statement's ACCTID against
// account name suffixes.
func (p *Parser) Identify(path string, snap accounts.Snapshot) []domain.Account {
	stmts, err := p.load(path)
	if err != nil {
		return nil
	}
	var matched []domain.Account
	for _, s := range stmts {
		matched = append(matched, snap.ByNameSuffix(transform.ExtractLast4(s.accountID))...)
	}
	return accounts.Dedupe(matched)
}

// Extract flattens every statement's transactions into rows. Section holds the
// last four digits of the statement's account.
func (p *Parser) Extract(path string) ([]parser.Row, error) {
	stmts, err := p.load(path)
	if err != nil {
		return nil, err
	}

	idx := parser.FieldIndex(fields)
	var rows []parser.Row
	for _, s := range stmts {
		last4 := transform.ExtractLast4(s.accountID)
		for _, txn := range s.txns {
			iso := ""
			if date := txn.DtPosted.Time; !date.IsZero() {
				iso = date.Format(domain.DateLayout)
			}
			values := []string{
				txn.FiTID.String(),
				iso,
				strings.TrimSpace(txn.Name.String()),
				strings.TrimSpace(txn.Memo.String()),
				txn.TrnAmt.Rat.FloatString(4),
				s.currency,
				s.accountID,
			}
			rows = append(rows, parser.NewRow(len(rows), values, idx).WithSection(last4))
		}
	}
	return rows, nil
}

// Clean keeps rows with an id, a date and an amount
func (p *Parser) Clean(row parser.Row) (parser.Row, bool) {
	if strings.TrimSpace(row.Get(FieldID)) == "" {
		return row, false
	}
	if _, err := time.Parse(domain.DateLayout, row.Get(FieldDate)); err != nil {
		return row, false
	}
	if _, err := transform.ParseAmount(row.Get(FieldAmount)); err != nil {
		return row, false
	}
	return row, true
}

// Normalize books positive amounts (money in) as inflows.
func (p *Parser) Normalize(row parser.Row) (*domain.Transaction, error) {
	date, err := time.Parse(domain.DateLayout, row.Get(FieldDate))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", row.Get(FieldDate), err)
	}
	value, err := transform.ParseAmount(row.Get(FieldAmount))
	if err != nil {
		return nil, err
	}

	// Name first, memo as fallback
	notes := row.Get(FieldName)
	if notes == "" {
		notes = row.Get(FieldMemo)
	}

	id := row.Get(FieldID)
	amount := value.Abs()
	fp := transform.Fingerprint(id, date.Format(domain.DateLayout), notes, amount)

	tx, err := domain.NewTransaction(date, amount, value.IsPositive(), notes, fp)
	if err != nil {
		return nil, err
	}
	tx.Reference = id
	tx.Currency = row.Get(FieldCurrency)
	tx.Line = row.Line
	return tx, nil
}

// ResolveAccount picks the matched account of the row's statement. Currency
// breaks ties between accounts sharing the same digits.
func (p *Parser) ResolveAccount(row parser.Row, matched []domain.Account) (domain.Account, bool) {
	candidates := accounts.WithNameSuffix(matched, row.Section)
	if acc, ok := accounts.Single(candidates); ok {
		return acc, true
	}
	return accounts.Single(accounts.WithCurrency(candidates, row.Get(FieldCurrency)))
}
