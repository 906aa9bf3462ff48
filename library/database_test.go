package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	db, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaVersion(t *testing.T) {
	db := tempDB(t)
	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	db := tempDB(t)

	var empty []Book
	require.NoError(t, db.Load(CollectionBooks, &empty))
	assert.Empty(t, empty)

	books := []Book{testBook("Ab123", 2), testBook("Cd456", 1), testBook("Ef789", 4)}
	books[1].AvailableCopies = 0
	books[1].Status = StatusOnLoan
	require.NoError(t, db.Save(CollectionBooks, books))

	var got []Book
	require.NoError(t, db.Load(CollectionBooks, &got))
	assert.Equal(t, books, got, "order and fields survive")

	// a save replaces the whole collection
	require.NoError(t, db.Save(CollectionBooks, books[2:]))
	got = nil
	require.NoError(t, db.Load(CollectionBooks, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ef789", got[0].ISBN)

	// collections are independent
	var patrons []Patron
	require.NoError(t, db.Load(CollectionPatrons, &patrons))
	assert.Empty(t, patrons)
}

func TestSQLiteStoreDocument(t *testing.T) {
	db := tempDB(t)
	st := Statistics{GeneratedOn: MustParseDate("15/01/2025"), Books: BookStats{Titles: 3}}
	require.NoError(t, db.Save(CollectionStatistics, st))

	var got Statistics
	require.NoError(t, db.Load(CollectionStatistics, &got))
	assert.Equal(t, 3, got.Books.Titles)
	assert.Equal(t, "15/01/2025", got.GeneratedOn.String())
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewSQLiteStore(path)
	require.NoError(t, err)
	loans := []Loan{{ID: "loanAa001", ISBN: "Ab123", PatronID: "userAa001", DueDate: MustParseDate("10/01/2025")}}
	require.NoError(t, db.Save(CollectionLoans, loans))
	require.NoError(t, db.Close())

	db, err = NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	var got []Loan
	require.NoError(t, db.Load(CollectionLoans, &got))
	assert.Equal(t, loans, got)
}
