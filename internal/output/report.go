// Package output writes the JSON run report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/pipeline"
)

// Stdout is the report path that means standard output
const Stdout = "-"

// Report summarises one run.
type Report struct {
	Run         string       `json:"run"`
	GeneratedAt time.Time    `json:"generatedAt"`
	DryRun      bool         `json:"dryRun"`
	Files       []FileReport `json:"files"`
	Totals      Totals       `json:"totals"`
}

// Totals adds up the per-file counters
type Totals struct {
	Files        int `json:"files"`
	Unidentified int `json:"unidentified"`
	Aborted      int `json:"aborted"`
	Applied      int `json:"applied"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
}

// FileReport is the report entry of one file
type FileReport struct {
	File         string              `json:"file"`
	Format       string              `json:"format,omitempty"`
	State        pipeline.State      `json:"state"`
	Accounts     []string            `json:"accounts,omitempty"`
	Raw          int                 `json:"raw"`
	Cleaned      int                 `json:"cleaned"`
	Dropped      int                 `json:"dropped"`
	Applied      int                 `json:"applied"`
	Failed       int                 `json:"failed"`
	Skipped      int                 `json:"skipped"`
	From         string              `json:"from,omitempty"`
	To           string              `json:"to,omitempty"`
	Declined     bool                `json:"declined,omitempty"`
	Error        string              `json:"error,omitempty"`
	Transactions []TransactionReport `json:"transactions,omitempty"`
}

// TransactionReport is one normalized transaction as it was (or would be) submitted
type TransactionReport struct {
	Line            int             `json:"line"`
	Date            string          `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	AccountID       int64           `json:"accountId"`
	DebitAsNegative bool            `json:"debitAsNegative"`
	Notes           string          `json:"notes"`
	Payee           string          `json:"payee,omitempty"`
	ExternalID      string          `json:"externalId"`
}

// NewReport builds a report from the outcomes of a run
func NewReport(runID string, dryRun bool, outcomes []*pipeline.Outcome, now time.Time) *Report {
	r := &Report{
		Run:         runID,
		GeneratedAt: now.UTC(),
		DryRun:      dryRun,
		Files:       make([]FileReport, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		fr := FileReport{
			File:     o.File,
			Format:   o.Format,
			State:    o.State,
			Raw:      o.Raw,
			Cleaned:  o.Cleaned,
			Dropped:  o.Dropped,
			Applied:  o.Applied,
			Failed:   o.Failed,
			Skipped:  o.Skipped,
			From:     o.From,
			To:       o.To,
			Declined: o.Declined,
		}
		for _, a := range o.Accounts {
			fr.Accounts = append(fr.Accounts, a.Name)
		}
		if o.Err != nil {
			fr.Error = o.Err.Error()
			r.Totals.Aborted++
		}
		if !o.Identified() {
			r.Totals.Unidentified++
		}
		for _, tx := range o.Transactions {
			fr.Transactions = append(fr.Transactions, TransactionReport{
				Line:            tx.Line,
				Date:            tx.ISODate(),
				Amount:          tx.Amount,
				Currency:        tx.Currency,
				AccountID:       tx.AccountID,
				DebitAsNegative: tx.DebitAsNegative,
				Notes:           tx.Notes,
				Payee:           tx.Payee,
				ExternalID:      tx.Fingerprint,
			})
		}

		r.Totals.Files++
		r.Totals.Applied += o.Applied
		r.Totals.Failed += o.Failed
		r.Totals.Skipped += o.Skipped
		r.Files = append(r.Files, fr)
	}
	return r
}

// WriteReport serializes the report to JSON with 2-space indentation
func WriteReport(report *Report, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report as JSON: %w", err)
	}
	return nil
}

// WriteReportToFile writes the report to path, or to stdout when path is "-".
func WriteReportToFile(report *Report, path string) (err error) {
	if path == "" {
		return fmt.Errorf("report path cannot be empty")
	}
	if path == Stdout {
		return WriteReport(report, os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close report file %s: %w", path, closeErr)
		}
	}()

	if err = WriteReport(report, f); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}
