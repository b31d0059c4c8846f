// Package accounts holds the run-scoped, read-only view of the ledger's accounts
// and the matching helpers statement formats use to pick their targets.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
)

// Lister is the part of the ledger API needed to build a Snapshot.
type Lister interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

// Snapshot is an immutable copy of the ledger's account list, fetched once per run.
// The zero value is an empty snapshot; every match against it fails closed.
type Snapshot struct {
	accounts []domain.Account
}

// NewSnapshot copies accounts into a new snapshot.
func NewSnapshot(accounts []domain.Account) Snapshot {
	cp := make([]domain.Account, len(accounts))
	copy(cp, accounts)
	return Snapshot{accounts: cp}
}

// Fetch lists the ledger's accounts once and freezes them.
func Fetch(ctx context.Context, l Lister) (Snapshot, error) {
	list, err := l.ListAccounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list ledger accounts: %w", err)
	}
	return NewSnapshot(list), nil
}

// All returns a copy of every account in the snapshot.
func (s Snapshot) All() []domain.Account {
	cp := make([]domain.Account, len(s.accounts))
	copy(cp, s.accounts)
	return cp
}

// Len returns the number of accounts
func (s Snapshot) Len() int { return len(s.accounts) }

// Filter returns the accounts satisfying keep, in snapshot order.
func (s Snapshot) Filter(keep func(domain.Account) bool) []domain.Account {
	var out []domain.Account
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// ByName returns accounts whose name equals name exactly (after trimming).
func (s Snapshot) ByName(name string) []domain.Account {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return s.Filter(func(a domain.Account) bool { return a.Name == name })
}

// ByNameFold is ByName with case-insensitive comparison.
func (s Snapshot) ByNameFold(name string) []domain.Account {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return s.Filter(func(a domain.Account) bool { return strings.EqualFold(a.Name, name) })
}

// ByNameSuffix returns accounts whose name ends with suffix, e.g. the trailing
// digits of a card number. An empty suffix matches nothing.
func (s Snapshot) ByNameSuffix(suffix string) []domain.Account {
	if suffix == "" {
		return nil
	}
	return s.Filter(func(a domain.Account) bool { return strings.HasSuffix(a.Name, suffix) })
}

// ByInstitution returns accounts held at institution (case-insensitive).
func (s Snapshot) ByInstitution(institution string) []domain.Account {
	if strings.TrimSpace(institution) == "" {
		return nil
	}
	return s.Filter(func(a domain.Account) bool {
		return strings.EqualFold(a.Institution, strings.TrimSpace(institution))
	})
}

// WithCurrency narrows accounts to those in currency (case-insensitive).
func WithCurrency(accounts []domain.Account, currency string) []domain.Account {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return nil
	}
	var out []domain.Account
	for _, a := range accounts {
		if strings.EqualFold(a.Currency, currency) {
			out = append(out, a)
		}
	}
	return out
}

// WithNameSuffix narrows accounts to those whose name ends with suffix.
func WithNameSuffix(accounts []domain.Account, suffix string) []domain.Account {
	if suffix == "" {
		return nil
	}
	var out []domain.Account
	for _, a := range accounts {
		if strings.HasSuffix(a.Name, suffix) {
			out = append(out, a)
		}
	}
	return out
}

// Single returns the only element of accounts. ok is false for zero or many.
func Single(accounts []domain.Account) (domain.Account, bool) {
	if len(accounts) != 1 {
		return domain.Account{}, false
	}
	return accounts[0], true
}

// Dedupe removes repeated account ids while keeping first-seen order.
func Dedupe(accounts []domain.Account) []domain.Account {
	seen := make(map[int64]bool, len(accounts))
	var out []domain.Account
	for _, a := range accounts {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out
}
