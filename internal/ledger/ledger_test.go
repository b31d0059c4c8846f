package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
)

type stubLedger struct {
	ids []int64
	err error
	got InsertRequest
}

func (s *stubLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) { return nil, nil }

func (s *stubLedger) InsertTransaction(ctx context.Context, req InsertRequest) ([]int64, error) {
	s.got = req
	return s.ids, s.err
}

func TestNewInsertRequest(t *testing.T) {
	tx := domain.Transaction{
		Date:            time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.RequireFromString("120.50"),
		DebitAsNegative: true,
		Notes:           "SINPE",
		Payee:           "Juan",
		Fingerprint:     "fp-1",
		Currency:        "CRC",
		AccountID:       7,
	}

	req, err := NewInsertRequest(tx, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", req.Date)
	assert.Equal(t, "crc", req.Currency)
	assert.Equal(t, "fp-1", req.ExternalID)
	assert.True(t, req.DebitAsNegative)
	assert.True(t, req.ApplyRules)
	assert.False(t, req.SkipDuplicates)

	tx.AccountID = 0
	_, err = NewInsertRequest(tx, DefaultOptions())
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	ctx := context.Background()

	ids, err := Insert(ctx, &stubLedger{ids: []int64{9}}, InsertRequest{ExternalID: "a"})
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ids)

	_, err = Insert(ctx, &stubLedger{}, InsertRequest{ExternalID: "a"})
	assert.True(t, errors.Is(err, ErrNotInserted))

	boom := errors.New("boom")
	_, err = Insert(ctx, &stubLedger{err: boom}, InsertRequest{})
	assert.True(t, errors.Is(err, boom))
}
