package scotiabank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
)

func writeFixture(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scotiabank.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func snapshot() accounts.Snapshot {
	return accounts.NewSnapshot([]domain.Account{
		{ID: 20, Name: "SCOTIA VISA CRC 1111", Currency: "crc", Institution: "Scotiabank", Type: domain.AccountTypeCredit},
		{ID: 21, Name: "SCOTIA VISA USD 1111", Currency: "usd", Institution: "Scotiabank", Type: domain.AccountTypeCredit},
		{ID: 22, Name: "SCOTIA AMEX USD 2222", Currency: "usd", Institution: "Scotiabank", Type: domain.AccountTypeCredit},
		{ID: 23, Name: "CR79012300120123397016", Currency: "usd", Institution: "Scotiabank", Type: domain.AccountTypeCash},
	})
}

var cardHeader = strings.Join(cardFields, ";")

func cardFixture(t *testing.T) string {
	return writeFixture(t,
		cardHeader,
		";Tarjeta ****1111;;;;",
		"R1;05/03/2024;SUPERMERCADO;12,500.00;CRC;DEBITO",
		"R2;05/03/2024;AMAZON;35.00;USD;DEBITO",
		";Tarjeta ****2222;;;;",
		"R3;06/03/2024;PAGO;100.00;USD;CREDITO",
		"R4;07/03/2024;CAFE;2.00;EUR;DEBITO",
	)
}

func TestCreditCard_Identify(t *testing.T) {
	c := NewCreditCard()

	matched := c.Identify(cardFixture(t), snapshot())
	require.Len(t, matched, 3)
	ids := []int64{matched[0].ID, matched[1].ID, matched[2].ID}
	assert.ElementsMatch(t, []int64{20, 21, 22}, ids)
}

func TestCreditCard_IdentifyRequiresDateOnThirdRecord(t *testing.T) {
	c := NewCreditCard()

	noDate := writeFixture(t,
		cardHeader,
		";Tarjeta ****1111;;;;",
		"R1;not a date;SUPERMERCADO;1.00;CRC;DEBITO",
	)
	assert.Empty(t, c.Identify(noDate, snapshot()))

	assert.Empty(t, c.Identify(writeFixture(t, cardHeader), snapshot()), "too short")
	assert.Empty(t, c.Identify(writeFixture(t, ""), snapshot()), "empty")

	noMarker := writeFixture(t,
		cardHeader,
		"R0;04/03/2024;X;1.00;CRC;DEBITO",
		"R1;05/03/2024;X;1.00;CRC;DEBITO",
	)
	assert.Empty(t, c.Identify(noMarker, snapshot()))
}

func TestCreditCard_RoundTrip(t *testing.T) {
	c := NewCreditCard()
	path := cardFixture(t)
	matched := c.Identify(path, snapshot())

	rows, err := c.Extract(path)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "1111", rows[0].Section)
	assert.Equal(t, "1111", rows[2].Section)
	assert.Equal(t, "2222", rows[4].Section)

	var cleaned []parser.Row
	for _, r := range rows {
		if r, ok := c.Clean(r); ok {
			cleaned = append(cleaned, r)
		}
	}
	require.Len(t, cleaned, 4, "markers are dropped")

	groceries, err := c.Normalize(cleaned[0])
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), groceries.Date)
	assert.True(t, groceries.Amount.Equal(decimal.NewFromInt(12500)))
	assert.False(t, groceries.DebitAsNegative)
	assert.Equal(t, "crc", groceries.Currency)

	acc, ok := c.ResolveAccount(cleaned[0], matched)
	require.True(t, ok)
	assert.Equal(t, int64(20), acc.ID)

	acc, ok = c.ResolveAccount(cleaned[1], matched)
	require.True(t, ok)
	assert.Equal(t, int64(21), acc.ID)

	payment, err := c.Normalize(cleaned[2])
	require.NoError(t, err)
	assert.True(t, payment.DebitAsNegative)
	acc, ok = c.ResolveAccount(cleaned[2], matched)
	require.True(t, ok)
	assert.Equal(t, int64(22), acc.ID, "second card block")

	// No EUR account behind card 2222
	_, ok = c.ResolveAccount(cleaned[3], matched)
	assert.False(t, ok)
}

func checkingFixture(t *testing.T) string {
	return writeFixture(t,
		"Referencia,Fecha,Descripcion,Monto,Saldo,Tipo",
		`0001,01/03/2024,SALARIO,"2,500.00","3,000.00",Crédito`,
		"0002,02/03/2024,SUPER,45.10,2954.90,Débito",
		"0003,bad,OOPS,1.00,1.00,Débito",
		"0004,03/03/2024,UNKNOWN TYPE,1.00,1.00,Otro",
	)
}

func TestChecking_Identify(t *testing.T) {
	snap := snapshot()

	byInstitution := NewChecking().Identify(checkingFixture(t), snap)
	require.Len(t, byInstitution, 1)
	assert.Equal(t, int64(23), byInstitution[0].ID)

	configured := NewChecking("SCOTIA AMEX USD 2222").Identify(checkingFixture(t), snap)
	require.Len(t, configured, 1)
	assert.Equal(t, int64(22), configured[0].ID)

	assert.Empty(t, NewChecking("MISSING").Identify(checkingFixture(t), snap))
}

func TestChecking_IdentifyRejectsOtherShapes(t *testing.T) {
	c := NewChecking()
	assert.Empty(t, c.Identify(cardFixture(t), snapshot()))
	assert.Empty(t, c.Identify(writeFixture(t, "only a header"), snapshot()))
	assert.Empty(t, c.Identify(writeFixture(t, "h", "0001,01/03/2024,SALARIO,2500.00,3000.00,Deposito"), snapshot()))
}

func TestChecking_RoundTrip(t *testing.T) {
	c := NewChecking()
	path := checkingFixture(t)
	matched := c.Identify(path, snapshot())

	rows, err := c.Extract(path)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	var cleaned []parser.Row
	for _, r := range rows {
		if r, ok := c.Clean(r); ok {
			cleaned = append(cleaned, r)
		}
	}
	require.Len(t, cleaned, 2)

	salary, err := c.Normalize(cleaned[0])
	require.NoError(t, err)
	assert.True(t, salary.Amount.Equal(decimal.NewFromInt(2500)))
	assert.True(t, salary.DebitAsNegative, "Crédito is an inflow")
	assert.Equal(t, "0001-2024-03-01-salario-2500", salary.Fingerprint)

	groceries, err := c.Normalize(cleaned[1])
	require.NoError(t, err)
	assert.False(t, groceries.DebitAsNegative)

	acc, ok := c.ResolveAccount(cleaned[1], matched)
	require.True(t, ok)
	assert.Equal(t, int64(23), acc.ID)
}
