// Package scanner finds statement files under a data path.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Metadata holds the hints a file's location gives about its origin.
// They are only used for logs; detection never trusts them.
type Metadata struct {
	FilePath    string
	Institution string
	Account     string
	Period      string
	DetectedAt  time.Time
}

// ScanResult represents a found file with metadata
type ScanResult struct {
	Path     string
	Metadata Metadata
}

// Scanner walks a directory tree and finds statement files
type Scanner struct {
	rootDir string
	now     func() time.Time
}

// New creates a new scanner for the given root directory or file
func New(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir, now: time.Now}
}

// Scan returns every statement file under the root in lexical path order.
// A root that is itself a statement file yields just that file.
func (s *Scanner) Scan() ([]ScanResult, error) {
	rootDir := s.expandHome(s.rootDir)

	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if !info.IsDir() {
		if !isStatementFile(rootDir) {
			return nil, fmt.Errorf("scan failed: %s is not a statement file", rootDir)
		}
		return []ScanResult{{Path: rootDir, Metadata: Metadata{FilePath: rootDir, DetectedAt: s.now()}}}, nil
	}

	var results []ScanResult
	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isStatementFile(path) {
			return nil
		}
		results = append(results, ScanResult{
			Path:     path,
			Metadata: s.extractMetadata(path, rootDir),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

func isStatementFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".ofx", ".qfx":
		return true
	}
	return false
}

// extractMetadata reads hints from {root}/{institution}/{account}/{period?}/file.ext
func (s *Scanner) extractMetadata(filePath, rootDir string) Metadata {
	relPath, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		relPath = filePath
	}
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	meta := Metadata{
		FilePath:   filePath,
		DetectedAt: s.now(),
	}
	if len(parts) >= 2 {
		meta.Institution = normalizeInstitutionName(parts[0])
	}
	if len(parts) >= 3 {
		meta.Account = parts[1]
	}
	if len(parts) >= 4 && looksLikePeriod(parts[2]) {
		meta.Period = parts[2]
	}
	return meta
}

// normalizeInstitutionName converts "banco_nacional" to "Banco Nacional"
func normalizeInstitutionName(dirName string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(dirName))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// looksLikePeriod matches YYYY-MM
func looksLikePeriod(str string) bool {
	if len(str) < 7 || str[4] != '-' {
		return false
	}
	for _, c := range str[:4] + str[5:7] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *Scanner) expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
