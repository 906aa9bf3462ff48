package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	return s
}

func TestJSONStoreMissingCollectionIsEmpty(t *testing.T) {
	s := tempJSONStore(t)
	var books []Book
	require.NoError(t, s.Load(CollectionBooks, &books))
	assert.Empty(t, books)

	path := filepath.Join(s.Dir(), CollectionBooks, CollectionBooks+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	require.NoError(t, s.Load(CollectionBooks, &books))
	assert.Empty(t, books)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	s := tempJSONStore(t)
	in := []Patron{
		{ID: "userAa001", Name: "Alice", Role: RoleStudent, LifetimeLoans: 3, ActiveLoans: []LoanSummary{
			{LoanID: "loanAa001", BorrowDate: MustParseDate("01/01/2025"), DueDate: MustParseDate("31/01/2025"), Title: "Dune"},
		}},
		{ID: "userBb002", Name: "Bob", Role: RoleTeacher, ActiveLoans: []LoanSummary{}},
	}
	require.NoError(t, s.Save(CollectionPatrons, in))

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "users", "users.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"due_date": "31/01/2025"`)

	var out []Patron
	require.NoError(t, s.Load(CollectionPatrons, &out))
	assert.Equal(t, in, out)

	require.NoError(t, s.Save(CollectionPatrons, in[:1]))
	out = nil
	require.NoError(t, s.Load(CollectionPatrons, &out))
	assert.Len(t, out, 1)

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "users"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestJSONStoreCorruptFile(t *testing.T) {
	s := tempJSONStore(t)
	path := filepath.Join(s.Dir(), CollectionLoans, CollectionLoans+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "loanAa001",`), 0o644))

	var loans []Loan
	err := s.Load(CollectionLoans, &loans)
	assert.ErrorIs(t, err, ErrCorruptStore)
}
