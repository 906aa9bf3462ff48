package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-circulation/library"
)

func TestParseRecords(t *testing.T) {
	in := strings.Join([]string{
		"# title\tauthor\tcopies\tsummary",
		"Dune\tFrank Herbert\t3\tDesert planet",
		"",
		"Emma\tJane Austen",
		"broken line",
		"Ulysses\tJames Joyce\tmany",
	}, "\n")

	records, errs := parseRecords(strings.NewReader(in))
	require.Len(t, records, 2)
	assert.Len(t, errs, 2)

	assert.Equal(t, record{line: 2, title: "Dune", author: "Frank Herbert", copies: 3, summary: "Desert planet"}, records[0])
	assert.Equal(t, 1, records[1].copies)
	assert.Equal(t, defaultSummary, records[1].summary)
	assert.Equal(t, "Emma", records[1].title)
}

func TestRunImportsCatalog(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "catalog.tsv")
	require.NoError(t, os.WriteFile(src, []byte("Dune\tFrank Herbert\t3\tSpice\nEmma\tJane Austen\t0\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-data-dir", dir, src}, &out))
	assert.Contains(t, out.String(), "Successfully imported: 1 books")
	assert.Contains(t, out.String(), "Errors: 1")

	cfg := library.DefaultConfig()
	cfg.DataDir = dir
	mgr, err := library.NewLibraryManager(cfg)
	require.NoError(t, err)
	defer mgr.Close()
	books := mgr.Books()
	require.Len(t, books, 1)
	assert.Equal(t, 3, books[0].TotalCopies)
}

func TestRunReportsUsage(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run(nil, &out), errUsage)
	assert.ErrorIs(t, run([]string{"-bogus", "x"}, &out), errUsage)

	err := run([]string{"-data-dir", t.TempDir(), filepath.Join(t.TempDir(), "missing.tsv")}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
