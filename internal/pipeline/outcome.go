package pipeline

import (
	"fmt"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
)

// State is how far a file got through the pipeline.
type State int

const (
	StateUnidentified State = iota
	StateDetected
	StateExtracted
	StateCleaned
	StateSorted
	StateConfirmed
	StateSubmitting
	StateDone
)

var stateNames = [...]string{
	StateUnidentified: "unidentified",
	StateDetected:     "detected",
	StateExtracted:    "extracted",
	StateCleaned:      "cleaned",
	StateSorted:       "sorted",
	StateConfirmed:    "confirmed",
	StateSubmitting:   "submitting",
	StateDone:         "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of processing one file.
type Outcome struct {
	File   string
	Format string
	State  State

	// Accounts are the accounts the format identified for the file.
	Accounts []domain.Account

	// Transactions are the normalized, validated transactions in submission order.
	Transactions []*domain.Transaction

	Raw     int // records in the transaction region
	Cleaned int // records that passed Clean
	Dropped int // cleaned records lost to normalization, account resolution or validation
	Applied int // submissions the ledger stored
	Failed  int // submissions that errored
	Skipped int // submissions not sent or not stored because they were already known

	// From and To are the first and last transaction dates (YYYY-MM-DD).
	From string
	To   string

	// Declined is set when the operator refused the submission.
	Declined bool

	// DryRun is set when the file stopped after sorting on request.
	DryRun bool

	// Err records why the file was aborted, if it was.
	Err error
}

// Identified reports whether any format matched the file
func (o *Outcome) Identified() bool {
	return o.State != StateUnidentified
}
