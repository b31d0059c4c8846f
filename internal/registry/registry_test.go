package registry

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/accounts"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/parser"
)

// mockFormat implements parser.Format for testing
type mockFormat struct {
	name     string
	matches  []domain.Account
	panics   bool
	identify int
}

func (m *mockFormat) Name() string                  { return m.name }
func (m *mockFormat) Descriptor() parser.Descriptor { return parser.Descriptor{} }
func (m *mockFormat) Identify(path string, snap accounts.Snapshot) []domain.Account {
	m.identify++
	if m.panics {
		panic("index out of range")
	}
	return m.matches
}
func (m *mockFormat) Extract(path string) ([]parser.Row, error)          { return nil, nil }
func (m *mockFormat) Clean(row parser.Row) (parser.Row, bool)            { return row, false }
func (m *mockFormat) Normalize(row parser.Row) (*domain.Transaction, error) { return nil, nil }
func (m *mockFormat) ResolveAccount(row parser.Row, matched []domain.Account) (domain.Account, bool) {
	return domain.Account{}, false
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func emptyRegistry() *Registry {
	return &Registry{log: quietLogger()}
}

func TestRegistry_New(t *testing.T) {
	reg, err := New(Options{}, quietLogger())
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	want := []string{"bac-checking", "bac-credit-card", "payoneer", "scotiabank-credit-card", "scotiabank-checking", "ofx"}
	got := reg.ListFormats()
	if len(got) != len(want) {
		t.Fatalf("ListFormats() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("priority %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := emptyRegistry()
	if err := reg.Register(&mockFormat{name: "a"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(&mockFormat{name: "a"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistry_DetectFirstMatchWins(t *testing.T) {
	acc := domain.Account{ID: 1, Name: "A"}
	first := &mockFormat{name: "first"}
	second := &mockFormat{name: "second", matches: []domain.Account{acc}}
	third := &mockFormat{name: "third", matches: []domain.Account{acc}}

	reg := emptyRegistry()
	for _, f := range []*mockFormat{first, second, third} {
		if err := reg.Register(f); err != nil {
			t.Fatal(err)
		}
	}

	f, matched := reg.Detect("statement.csv", accounts.Snapshot{})
	if f == nil || f.Name() != "second" {
		t.Fatalf("Detect() = %v, want second", f)
	}
	if len(matched) != 1 {
		t.Errorf("matched = %v, want 1 account", matched)
	}
	if third.identify != 0 {
		t.Error("formats after the winner must not be tried")
	}
}

func TestRegistry_DetectIndependentOfNonMatchingPositions(t *testing.T) {
	acc := domain.Account{ID: 1, Name: "A"}
	orders := [][]*mockFormat{
		{{name: "x"}, {name: "y"}, {name: "match", matches: []domain.Account{acc}}},
		{{name: "match", matches: []domain.Account{acc}}, {name: "x"}, {name: "y"}},
		{{name: "x"}, {name: "match", matches: []domain.Account{acc}}, {name: "y"}},
	}
	for _, order := range orders {
		reg := emptyRegistry()
		for _, f := range order {
			if err := reg.Register(f); err != nil {
				t.Fatal(err)
			}
		}
		if f, _ := reg.Detect("s.csv", accounts.Snapshot{}); f == nil || f.Name() != "match" {
			t.Errorf("order %v: Detect() = %v, want match", reg.ListFormats(), f)
		}
	}
}

func TestRegistry_DetectNoMatch(t *testing.T) {
	reg := emptyRegistry()
	_ = reg.Register(&mockFormat{name: "a"})
	_ = reg.Register(&mockFormat{name: "boom", panics: true})

	f, matched := reg.Detect("s.csv", accounts.Snapshot{})
	if f != nil || matched != nil {
		t.Errorf("Detect() = %v, %v; want nothing", f, matched)
	}
}

const ofxStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240101120000
<LANGUAGE>ENG
<FI>
<ORG>TESTBANK
<FID>12345
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>9876543210
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000
<DTEND>20240131235959
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105120000
<TRNAMT>-50.00
<FITID>TXN001
<NAME>Coffee Shop
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2000.00
<DTASOF>20240131235959
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

// builtinSnapshot holds accounts for every built-in format, including card
// accounts whose last four digits look like a year or a clock time.
func builtinSnapshot() accounts.Snapshot {
	return accounts.NewSnapshot([]domain.Account{
		{ID: 1, Name: "PAYONEER", Currency: "usd", Institution: "Payoneer"},
		{ID: 2, Name: "CUENTA USD", Currency: "usd", Institution: "Scotiabank", Type: domain.AccountTypeCash},
		{ID: 3, Name: "AHORRO COLONES", Currency: "crc", Institution: "BAC", Type: domain.AccountTypeCash},
		{ID: 4, Name: "VISA CRC 4321", Currency: "crc", Institution: "BAC", Type: domain.AccountTypeCredit},
		{ID: 5, Name: "VISA USD 4321", Currency: "usd", Institution: "BAC", Type: domain.AccountTypeCredit},
		{ID: 6, Name: "VISA 2024", Currency: "usd", Institution: "BAC", Type: domain.AccountTypeCredit},
		{ID: 7, Name: "MC 0000", Currency: "usd", Institution: "BAC", Type: domain.AccountTypeCredit},
		{ID: 8, Name: "SCOTIA VISA USD 1111", Currency: "usd", Institution: "Scotiabank", Type: domain.AccountTypeCredit},
		{ID: 9, Name: "CHECKING 3210", Currency: "usd", Institution: "Test Bank", Type: domain.AccountTypeCash},
	})
}

func TestRegistry_DetectBuiltinFormats(t *testing.T) {
	dir := t.TempDir()
	snap := builtinSnapshot()
	reg, err := New(Options{}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		file    string
		lines   []string
		want    string
		wantIDs []int64
	}{
		{
			name: "bac checking",
			file: "bac-checking.csv",
			lines: []string{
				"Number of customers,Name,Product,Currency,Initial balance,Total balance,Withheld and deferred funds,Balance,Date,STBGAV,STBUNC,Message 1,Message 2,Message 3,Message 4,Message 5,Message 6",
				"1,JUAN PEREZ,AHORRO COLONES,CRC,1000.00,1250.50,0.00,1250.50,31/03/2024,0,0,,,,,,",
				",,,,,,",
				"Transaction date,Transaction reference,Transaction codes,Description of transactions,Transaction debit,Transaction credit,Transaction balance",
				"05/03/2024,000123,TF,TRANSFERENCIA SINPE,,120.50,1120.50",
				"07/03/2024,000124,CP,COMPRA AUTOMERCADO,45.25,,1075.25",
			},
			want:    "bac-checking",
			wantIDs: []int64{3},
		},
		{
			name: "bac credit card",
			file: "bac-card.csv",
			lines: []string{
				"Card holder,Card number,Statement date,Due date,Minimum payment CRC,Minimum payment USD",
				"JUAN PEREZ,4111-XXXX-XXXX-4321,31/03/2024,20/04/2024,15000.00,25.00",
				"Date,Reference,Description,Local amount,Dollar amount",
				"02/03/2024,REF1,NETFLIX.COM,,15.99",
				"03/03/2024,REF2,AUTOMERCADO,\"12,500.00\",",
			},
			want:    "bac-credit-card",
			wantIDs: []int64{4, 5},
		},
		{
			name: "payoneer",
			file: "payoneer.csv",
			lines: []string{
				"Transaction Date,Transaction Time,Time Zone,Transaction ID,Description,Credit Amount,Debit Amount,Currency",
				"03/15/2024,10:00:00,UTC,900003,Charge,,25.10,USD",
				"03/15/2024,09:30:00,UTC,900002,Payment from ACME,1500.00,,USD",
				"03/14/2024,08:00:00,UTC,900001,Fee,,3.00,USD",
			},
			want:    "payoneer",
			wantIDs: []int64{1},
		},
		{
			name: "scotiabank credit card",
			file: "scotia-card.csv",
			lines: []string{
				"Número de Referencia;Fecha de Movimiento;Descripción;Monto;Moneda;Tipo",
				";Tarjeta ****1111;;;;",
				"R1;05/03/2024;AMAZON;35.00;USD;DEBITO",
				"R2;06/03/2024;PAGO;100.00;USD;CREDITO",
			},
			want:    "scotiabank-credit-card",
			wantIDs: []int64{8},
		},
		{
			name: "scotiabank checking",
			file: "scotia-checking.csv",
			lines: []string{
				"Ref,Fecha,Desc,Monto,Saldo,Tipo",
				"0001,01/03/2024,SALARIO,2500.00,3000.00,Crédito",
				"0002,02/03/2024,AUTOMERCADO,45.00,2955.00,Débito",
				"0003,05/03/2024,SINPE,100.00,2855.00,Débito",
			},
			want:    "scotiabank-checking",
			wantIDs: []int64{2},
		},
		{
			name:    "ofx",
			file:    "bank.ofx",
			lines:   []string{ofxStatement},
			want:    "ofx",
			wantIDs: []int64{9},
		},
		{
			name:  "garbage",
			file:  "garbage.csv",
			lines: []string{"hello", "world", "again", "and again"},
		},
		{
			name: "empty",
			file: "empty.csv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			content := ""
			if len(tt.lines) > 0 {
				content = strings.Join(tt.lines, "\n") + "\n"
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			f, matched := reg.Detect(path, snap)
			got := ""
			if f != nil {
				got = f.Name()
			}
			if got != tt.want {
				t.Fatalf("Detect() = %q, want %q", got, tt.want)
			}
			var ids []int64
			for _, a := range matched {
				ids = append(ids, a.ID)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("matched accounts = %v, want %v", ids, tt.wantIDs)
			}

			// No other format may claim the file, whatever its priority.
			for _, other := range reg.formats {
				if other.Name() == tt.want {
					continue
				}
				if claimed := other.Identify(path, snap); len(claimed) > 0 {
					t.Errorf("%s also identifies %s: %v", other.Name(), tt.file, claimed)
				}
			}
		})
	}
}

func TestRegistry_NilLogger(t *testing.T) {
	reg, err := New(Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "unknown.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if f, _ := reg.Detect(path, accounts.Snapshot{}); f != nil {
		t.Errorf("Detect() = %s, want nil", f.Name())
	}
}
