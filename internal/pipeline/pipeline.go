// Package pipeline drives one statement file from detection to submission.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/confirm"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/dedup"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/rules"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/validate"
)

// ErrAmbiguousAccount aborts a single-account file that matched several accounts.
var ErrAmbiguousAccount = errors.New("statement matches more than one account")

// Detector picks the format and accounts of a file.
type Detector interface {
	Detect(path string, snap accounts.Snapshot) (parser.Format, []domain.Account)
}

// Config wires a Pipeline. Ledger, Detector and Confirmer are required.
type Config struct {
	Detector  Detector
	Ledger    ledger.Ledger
	Confirmer confirm.Confirmer
	Log       logrus.FieldLogger

	// Options are sent with every insert
	Options ledger.Options

	// Payees fills the payee from the notes when set
	Payees *rules.Engine

	// Journal skips fingerprints already accepted. JournalPath, when set, is
	// where the journal is saved after each submitted file.
	Journal     *dedup.State
	JournalPath string

	// DryRun stops every file after sorting
	DryRun bool
}

// Pipeline processes statement files one at a time.
type Pipeline struct {
	cfg Config
	log logrus.FieldLogger
	now func() time.Time
}

// New creates a pipeline
func New(cfg Config) (*Pipeline, error) {
	if cfg.Detector == nil {
		return nil, fmt.Errorf("pipeline requires a detector")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("pipeline requires a ledger")
	}
	if cfg.Confirmer == nil {
		return nil, fmt.Errorf("pipeline requires a confirmer")
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{cfg: cfg, log: log, now: time.Now}, nil
}

// Run processes files in order. A file that fails is logged and the run moves on.
func (p *Pipeline) Run(ctx context.Context, paths []string, snap accounts.Snapshot) []*Outcome {
	outcomes := make([]*Outcome, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		out, err := p.ProcessFile(ctx, path, snap)
		if err != nil {
			p.log.WithError(err).WithField("file", path).Error("File aborted")
			out.Err = err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// ProcessFile takes one file through detection, extraction, cleaning, sorting,
// confirmation and submission. The returned outcome is never nil. An error
// means the file was aborted; per-row problems are counted, never returned.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, snap accounts.Snapshot) (*Outcome, error) {
	out := &Outcome{File: path, State: StateUnidentified}
	log := p.log.WithField("file", path)

	format, matched := p.cfg.Detector.Detect(path, snap)
	if format == nil {
		log.Info("No statement format matched, skipping")
		return out, nil
	}
	out.Format = format.Name()
	out.Accounts = matched
	out.State = StateDetected
	log = log.WithField("format", out.Format)

	if !format.Descriptor().MultiAccount && len(matched) > 1 {
		names := make([]string, len(matched))
		for i, a := range matched {
			names[i] = a.Name
		}
		log.WithField("accounts", strings.Join(names, ", ")).Warn("Statement matches several accounts")
		return out, fmt.Errorf("%w: %s matched %d accounts", ErrAmbiguousAccount, path, len(matched))
	}

	rows, err := format.Extract(path)
	if err != nil {
		return out, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	out.Raw = len(rows)
	out.State = StateExtracted

	txs := p.normalize(format, rows, matched, out, log)
	out.State = StateCleaned

	result := validate.ValidateBatch(txs)
	for _, e := range result.Errors {
		log.WithField("line", e.Line).Warnf("Dropping invalid transaction: %s", e.Error())
	}
	for _, w := range result.Warnings {
		log.WithField("line", w.Line).Warn(w.Message)
	}
	if result.HasErrors() {
		out.Dropped += len(txs) - len(result.Valid)
	}
	txs = result.Valid

	// Stable so equal dates keep file order.
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
	out.Transactions = txs
	out.State = StateSorted
	if len(txs) > 0 {
		out.From = txs[0].ISODate()
		out.To = txs[len(txs)-1].ISODate()
	}

	log.WithFields(logrus.Fields{
		"raw":     out.Raw,
		"cleaned": out.Cleaned,
		"from":    out.From,
		"to":      out.To,
		"count":   len(txs),
	}).Info("Statement parsed")

	if len(txs) == 0 {
		out.State = StateDone
		return out, nil
	}
	if p.cfg.DryRun {
		out.DryRun = true
		return out, nil
	}

	question := fmt.Sprintf("Submit %d transactions from %s to %s (%s)?", len(txs), out.From, out.To, out.Format)
	ok, err := p.cfg.Confirmer.Confirm(question)
	if err != nil {
		return out, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		out.Declined = true
		log.Info("Submission declined")
		return out, nil
	}
	out.State = StateConfirmed

	if err := p.submit(ctx, out, log); err != nil {
		return out, err
	}
	out.State = StateDone

	if p.cfg.Journal != nil && p.cfg.JournalPath != "" {
		if err := dedup.SaveState(p.cfg.Journal, p.cfg.JournalPath); err != nil {
			return out, fmt.Errorf("failed to save journal: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"raw":     out.Raw,
		"cleaned": out.Cleaned,
		"from":    out.From,
		"to":      out.To,
		"applied": out.Applied,
		"failed":  out.Failed,
		"skipped": out.Skipped,
	}).Infof("Applied %d of %d transactions", out.Applied, len(txs))
	return out, nil
}

// normalize cleans each row, converts it and attributes it to an account.
// Rows that fail any step are dropped without affecting the others.
func (p *Pipeline) normalize(format parser.Format, rows []parser.Row, matched []domain.Account, out *Outcome, log logrus.FieldLogger) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0, len(rows))
	for _, raw := range rows {
		if raw.IsBlank() {
			continue
		}
		row, ok := format.Clean(raw)
		if !ok {
			continue
		}
		out.Cleaned++

		tx, err := format.Normalize(row)
		if err != nil {
			out.Dropped++
			log.WithError(err).WithField("line", row.Line).Warn("Could not normalize row")
			continue
		}
		acc, ok := format.ResolveAccount(row, matched)
		if !ok {
			out.Dropped++
			log.WithFields(logrus.Fields{"line": row.Line, "currency": tx.Currency}).
				Warn("No account for row")
			continue
		}
		tx.Line = row.Line
		tx.Assign(acc)
		p.cfg.Payees.Apply(tx)
		txs = append(txs, tx)
	}
	return txs
}

// submit sends each transaction individually, in order. A failed row is logged
// and counted; the remaining rows are still sent.
func (p *Pipeline) submit(ctx context.Context, out *Outcome, log logrus.FieldLogger) error {
	out.State = StateSubmitting
	for _, tx := range out.Transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		rowLog := log.WithFields(logrus.Fields{"line": tx.Line, "external_id": tx.Fingerprint})

		if p.cfg.Journal.Contains(tx.AccountID, tx.Fingerprint) {
			out.Skipped++
			rowLog.Debug("Already submitted, skipping")
			continue
		}

		req, err := ledger.NewInsertRequest(*tx, p.cfg.Options)
		if err != nil {
			out.Failed++
			rowLog.WithError(err).Warn("Could not build submission")
			continue
		}
		ids, err := ledger.Insert(ctx, p.cfg.Ledger, req)
		if errors.Is(err, ledger.ErrNotInserted) {
			out.Skipped++
			rowLog.Info("Ledger already has this transaction")
			continue
		}
		if err != nil {
			out.Failed++
			rowLog.WithError(err).Warn("Submission failed")
			continue
		}

		out.Applied++
		if p.cfg.Journal != nil {
			if err := p.cfg.Journal.Record(tx.AccountID, tx.Fingerprint, ids[0], p.now()); err != nil {
				rowLog.WithError(err).Warn("Could not journal submission")
			}
		}
	}
	return nil
}
