// Package registry holds the statement formats in detection priority order.
package registry

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parsers/bac"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parsers/ofx"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parsers/payoneer"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parsers/scotiabank"
)

// Options configures the built-in formats
type Options struct {
	// ScotiabankCheckingAccounts names the ledger accounts Scotiabank checking
	// exports belong to. Empty means the institution's non-credit accounts.
	ScotiabankCheckingAccounts []string
}

// Registry holds formats in a fixed priority order. Earlier formats win: layouts
// can be structurally ambiguous, so the order is the disambiguation policy.
type Registry struct {
	formats []parser.Format
	log     logrus.FieldLogger
}

// New creates a registry with all built-in formats in priority order.
// A nil log falls back to the standard logger.
func New(opts Options, log logrus.FieldLogger) (*Registry, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Registry{log: log}
	builtin := []parser.Format{
		bac.NewChecking(),
		bac.NewCreditCard(),
		payoneer.NewParser(),
		scotiabank.NewCreditCard(),
		scotiabank.NewChecking(opts.ScotiabankCheckingAccounts...),
		ofx.NewParser(),
	}
	for _, f := range builtin {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a format with the lowest priority so far.
func (r *Registry) Register(f parser.Format) error {
	for _, existing := range r.formats {
		if existing.Name() == f.Name() {
			return fmt.Errorf("format %q already registered", f.Name())
		}
	}
	r.formats = append(r.formats, f)
	return nil
}

// Detect returns the first format that identifies at least one account for the
// file, with the accounts it matched. Later formats are not tried. A nil format
// means the file is unidentified.
func (r *Registry) Detect(path string, snap accounts.Snapshot) (parser.Format, []domain.Account) {
	for _, f := range r.formats {
		matched := r.identify(f, path, snap)
		if len(matched) == 0 {
			r.log.WithFields(logrus.Fields{"file": path, "format": f.Name()}).Debug("format did not match")
			continue
		}
		r.log.WithFields(logrus.Fields{
			"file":     path,
			"format":   f.Name(),
			"accounts": len(matched),
		}).Debug("format matched")
		return f, matched
	}
	return nil, nil
}

// identify runs one format's Identify, treating a panic as a negative match.
func (r *Registry) identify(f parser.Format, path string, snap accounts.Snapshot) (matched []domain.Account) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{"file": path, "format": f.Name()}).
				Warnf("identify panicked: %v", rec)
			matched = nil
		}
	}()
	return f.Identify(path, snap)
}

// ListFormats returns the format names in priority order
func (r *Registry) ListFormats() []string {
	names := make([]string, len(r.formats))
	for i, f := range r.formats {
		names[i] = f.Name()
	}
	return names
}
