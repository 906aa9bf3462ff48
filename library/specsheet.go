package library

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const SpecSheetDir = "library"

var (
	unsafeNameChars = regexp.MustCompile(`[^\w\s-]`)
	nameSpaces      = regexp.MustCompile(`\s+`)
	nameUnderscores = regexp.MustCompile(`_+`)
)

// SpecSheets keeps one plain-text description file per catalog entry.
type SpecSheets struct {
	dir string
}

func NewSpecSheets(dataDir string) *SpecSheets {
	return &SpecSheets{dir: filepath.Join(dataDir, SpecSheetDir)}
}

func (s *SpecSheets) Dir() string { return s.dir }

// SanitizeFileName strips characters that are not word characters, spaces or
// dashes and joins the words with underscores.
func SanitizeFileName(text string) string {
	text = unsafeNameChars.ReplaceAllString(text, "")
	text = nameSpaces.ReplaceAllString(strings.TrimSpace(text), "_")
	return nameUnderscores.ReplaceAllString(text, "_")
}

// FileName returns <Title>_<code>_<Author>.txt for b.
func (s *SpecSheets) FileName(b Book) string {
	return fmt.Sprintf("%s_%s_%s.txt", SanitizeFileName(b.Title), b.ISBN, SanitizeFileName(b.Author))
}

func (s *SpecSheets) Path(b Book) string { return filepath.Join(s.dir, s.FileName(b)) }

// Write creates or replaces the sheet of b. A sheet left under an older
// title or author is removed first.
func (s *SpecSheets) Write(b Book) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create spec sheet dir: %w", err)
	}
	if err := s.Remove(b.ISBN); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(b), []byte(renderSpecSheet(b)), 0o644); err != nil {
		return fmt.Errorf("write spec sheet: %w", err)
	}
	return nil
}

// Remove deletes every sheet belonging to isbn.
func (s *SpecSheets) Remove(isbn string) error {
	matches, err := s.Find(isbn)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove spec sheet: %w", err)
		}
	}
	return nil
}

// Find lists the sheets on disk for isbn.
func (s *SpecSheets) Find(isbn string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*_"+isbn+"_*.txt"))
	if err != nil {
		return nil, fmt.Errorf("glob spec sheets: %w", err)
	}
	return matches, nil
}

func renderSpecSheet(b Book) string {
	rule := strings.Repeat("=", 76)
	var sb strings.Builder
	section := func(name string) {
		fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", rule, name, rule)
	}
	section("BOOK DETAILS")
	fmt.Fprintf(&sb, "Code: %s\n", b.ISBN)
	fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	fmt.Fprintf(&sb, "Author: %s\n", b.Author)
	fmt.Fprintf(&sb, "Status: %s\n", b.Status)
	fmt.Fprintf(&sb, "Total copies: %d\n", b.TotalCopies)
	fmt.Fprintf(&sb, "Available copies: %d\n", b.AvailableCopies)
	fmt.Fprintf(&sb, "Times borrowed: %d\n\n", b.LoanCount)
	section("SUMMARY")
	sb.WriteString(b.Summary)
	sb.WriteString("\n")
	return sb.String()
}
