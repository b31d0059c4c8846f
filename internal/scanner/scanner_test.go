package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
}

func TestScanner_Scan(t *testing.T) {
	tmpDir := t.TempDir()

	// tmpDir/
	//   scotiabank/4242/2024-03/movimientos.csv
	//   bac/ahorro/estado.CSV
	//   payoneer.csv
	//   bank/export.qfx
	//   notes/readme.txt
	//   .cache/old.csv
	writeFile(t, filepath.Join(tmpDir, "scotiabank", "4242", "2024-03", "movimientos.csv"))
	writeFile(t, filepath.Join(tmpDir, "bac", "ahorro", "estado.CSV"))
	writeFile(t, filepath.Join(tmpDir, "payoneer.csv"))
	writeFile(t, filepath.Join(tmpDir, "bank", "export.qfx"))
	writeFile(t, filepath.Join(tmpDir, "notes", "readme.txt"))
	writeFile(t, filepath.Join(tmpDir, ".cache", "old.csv"))

	results, err := New(tmpDir).Scan()
	require.NoError(t, err)
	require.Len(t, results, 4)

	paths := make([]string, len(results))
	for i, r := range results {
		paths[i], _ = filepath.Rel(tmpDir, r.Path)
	}
	assert.Equal(t, []string{
		filepath.Join("bac", "ahorro", "estado.CSV"),
		filepath.Join("bank", "export.qfx"),
		"payoneer.csv",
		filepath.Join("scotiabank", "4242", "2024-03", "movimientos.csv"),
	}, paths, "results are in lexical order")

	scotia := results[3].Metadata
	assert.Equal(t, "Scotiabank", scotia.Institution)
	assert.Equal(t, "4242", scotia.Account)
	assert.Equal(t, "2024-03", scotia.Period)
	assert.False(t, scotia.DetectedAt.IsZero())

	bac := results[0].Metadata
	assert.Equal(t, "Bac", bac.Institution)
	assert.Equal(t, "ahorro", bac.Account)
	assert.Empty(t, bac.Period)

	assert.Empty(t, results[2].Metadata.Institution, "root files carry no hints")
}

func TestScanner_Scan_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.ofx")
	writeFile(t, path)

	results, err := New(path).Scan()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
}

func TestScanner_Scan_SingleUnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.pdf")
	writeFile(t, path)

	_, err := New(path).Scan()
	assert.Error(t, err)
}

func TestScanner_Scan_NonExistentDirectory(t *testing.T) {
	_, err := New("/nonexistent/directory/path").Scan()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}

func TestScanner_Scan_EmptyDirectory(t *testing.T) {
	results, err := New(t.TempDir()).Scan()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNormalizeInstitutionName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"scotiabank", "Scotiabank"},
		{"banco_nacional", "Banco Nacional"},
		{"bac-credomatic", "Bac Credomatic"},
		{"a__b", "A B"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeInstitutionName(tt.input))
		})
	}
}

func TestIsStatementFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.csv", true},
		{"a.CSV", true},
		{"a.ofx", true},
		{"a.QFX", true},
		{"a.txt", false},
		{"a.csv.bak", false},
		{"csv", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isStatementFile(tt.path))
		})
	}
}

func TestLooksLikePeriod(t *testing.T) {
	assert.True(t, looksLikePeriod("2024-03"))
	assert.True(t, looksLikePeriod("2024-03-01"))
	assert.False(t, looksLikePeriod("checking"))
	assert.False(t, looksLikePeriod("abcd-ef"))
	assert.False(t, looksLikePeriod("2024"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	s := New("")
	assert.Equal(t, filepath.Join(home, "statements"), s.expandHome("~/statements"))
	assert.Equal(t, "/abs/path", s.expandHome("/abs/path"))
	assert.Equal(t, "~user/x", s.expandHome("~user/x"))
}
