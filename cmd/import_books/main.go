package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-circulation/library"
)

const defaultSummary = "No summary available."

// record is one line of the import file:
// title<TAB>author<TAB>copies<TAB>summary
type record struct {
	line    int
	title   string
	author  string
	copies  int
	summary string
}

func parseRecords(r io.Reader) ([]record, []error) {
	var (
		records []record
		errs    []error
	)
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 2 {
			errs = append(errs, fmt.Errorf("line %d: want title and author separated by a tab", n))
			continue
		}
		rec := record{line: n, title: strings.TrimSpace(fields[0]), author: strings.TrimSpace(fields[1]), copies: 1, summary: defaultSummary}
		if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
			c, err := strconv.Atoi(strings.TrimSpace(fields[2]))
			if err != nil {
				errs = append(errs, fmt.Errorf("line %d: invalid copies %q", n, fields[2]))
				continue
			}
			rec.copies = c
		}
		if len(fields) > 3 {
			if s := strings.TrimSpace(strings.Join(fields[3:], " ")); s != "" {
				rec.summary = s
			}
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return records, errs
}

// errUsage is returned when the command line is malformed.
var errUsage = errors.New("usage: import_books [-data-dir dir] [-store json|sqlite] <catalog.tsv>")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg := library.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("import_books", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the collections")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "record store backend (json, sqlite)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	manager, err := library.NewLibraryManager(cfg)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	defer manager.Close()

	records, parseErrs := parseRecords(f)
	for _, err := range parseErrs {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}

	fmt.Fprintf(out, "Importing %d titles into %s...\n", len(records), cfg.DataDir)
	successCount := 0
	errorCount := len(parseErrs)
	for _, rec := range records {
		fmt.Fprintf(out, "Importing: %s by %s... ", rec.title, rec.author)
		b, err := manager.AddBook(rec.title, rec.author, rec.summary, rec.copies)
		if err != nil {
			fmt.Fprintf(out, "ERROR - line %d: %v\n", rec.line, err)
			errorCount++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (code: %s)\n", b.ISBN)
		successCount++
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(out, "Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Fprintln(out, "\nCatalog:")
		fmt.Fprintf(out, "%-8s %-50s %-30s\n", "Code", "Title", "Author")
		fmt.Fprintln(out, strings.Repeat("-", 90))
		for _, book := range manager.Books() {
			fmt.Fprintf(out, "%-8s %-50s %-30s\n", book.ISBN, truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
