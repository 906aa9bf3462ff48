package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newLoanEngine(t *testing.T, today string) *LoanEngine {
	t.Helper()
	return NewLoanEngine(nil,
		WithLoanDates(FixedDate(MustParseDate(today))),
		WithLoanIDs(NewSeededIDGenerator(3)),
	)
}

func testBook(isbn string, copies int) Book {
	return Book{ISBN: isbn, Title: "Title " + isbn, Author: "Author", Summary: "S", Status: StatusAvailable, TotalCopies: copies, AvailableCopies: copies}
}

func testPatron(id string, role Role) Patron {
	return Patron{ID: id, Name: "Patron " + id, Role: role, ActiveLoans: []LoanSummary{}}
}

func TestBorrowIssuesOneLoanPerCopy(t *testing.T) {
	e := newLoanEngine(t, "01/03/2025")
	book, patron := testBook("Ab123", 3), testPatron("userAa001", RoleStudent)

	res, err := e.Borrow(book, patron, 2)
	require.NoError(t, err)
	require.Len(t, res.Loans, 2)

	assert.Equal(t, 1, res.Book.AvailableCopies)
	assert.Equal(t, 2, res.Book.LoanCount)
	assert.Equal(t, StatusAvailable, res.Book.Status)
	assert.Equal(t, 2, res.Patron.ActiveLoanCount())
	assert.Equal(t, 2, res.Patron.LifetimeLoans)
	for _, l := range res.Loans {
		assert.Equal(t, "01/03/2025", l.BorrowDate.String())
		assert.Equal(t, "31/03/2025", l.DueDate.String())
		_, ok := res.Patron.Loan(l.ID)
		assert.True(t, ok)
	}
	assert.NotEqual(t, res.Loans[0].ID, res.Loans[1].ID)
	assert.Len(t, e.Loans(), 2)

	// inputs are untouched
	assert.Equal(t, 3, book.AvailableCopies)
	assert.Empty(t, patron.ActiveLoans)
}

func TestBorrowLastCopyMarksOnLoan(t *testing.T) {
	e := newLoanEngine(t, "01/03/2025")
	res, err := e.Borrow(testBook("Ab123", 1), testPatron("userAa001", RoleTeacher), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Book.AvailableCopies)
	assert.Equal(t, StatusOnLoan, res.Book.Status)
}

func TestBorrowFailures(t *testing.T) {
	e := newLoanEngine(t, "01/03/2025")

	full := testPatron("userAa001", RoleStudent)
	for _, id := range []string{"a", "b", "c", "d"} {
		full.ActiveLoans = append(full.ActiveLoans, LoanSummary{LoanID: id})
	}
	_, err := e.Borrow(testBook("Ab123", 3), full, 1)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = e.Borrow(testBook("Ab123", 3), testPatron("userAa002", RoleStaff), 1)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	// the limit is checked before stock
	_, err = e.Borrow(testBook("Ab123", 0), full, 1)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = e.Borrow(testBook("Ab123", 1), testPatron("userAa003", RoleStudent), 2)
	assert.ErrorIs(t, err, ErrInsufficientCopies)

	_, err = e.Borrow(testBook("Ab123", 1), testPatron("userAa003", RoleStudent), 0)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, e.Loans())
}

func TestReturn(t *testing.T) {
	e := newLoanEngine(t, "01/03/2025")
	res, err := e.Borrow(testBook("Ab123", 1), testPatron("userAa001", RoleStudent), 1)
	require.NoError(t, err)
	loan := res.Loans[0]

	_, err = e.Return(loan.ID, testBook("Zz999", 1), res.Patron)
	assert.ErrorIs(t, err, ErrValidation)

	back, err := e.Return(loan.ID, res.Book, res.Patron)
	require.NoError(t, err)
	assert.Equal(t, 1, back.Book.AvailableCopies)
	assert.Equal(t, StatusAvailable, back.Book.Status)
	assert.Equal(t, 1, back.Book.LoanCount)
	assert.Empty(t, back.Patron.ActiveLoans)
	assert.Equal(t, 1, back.Patron.LifetimeLoans)
	assert.Equal(t, loan, back.Loan)
	_, ok := e.Loan(loan.ID)
	assert.False(t, ok)

	_, err = e.Return(loan.ID, back.Book, back.Patron)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnPatronWithoutSummary(t *testing.T) {
	e := newLoanEngine(t, "01/03/2025")
	res, err := e.Borrow(testBook("Ab123", 1), testPatron("userAa001", RoleStudent), 1)
	require.NoError(t, err)

	_, err = e.Return(res.Loans[0].ID, res.Book, testPatron("userAa001", RoleStudent))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, e.Loans(), 1, "loan survives a failed return")
}

func TestRenewAddsOneDay(t *testing.T) {
	e := newLoanEngine(t, "01/03/2025")
	res, err := e.Borrow(testBook("Ab123", 1), testPatron("userAa001", RoleStudent), 1)
	require.NoError(t, err)
	id := res.Loans[0].ID

	r, err := e.Renew(id, res.Patron)
	require.NoError(t, err)
	assert.Equal(t, "01/04/2025", r.Loan.DueDate.String())
	s, _ := r.Patron.Loan(id)
	assert.Equal(t, "01/04/2025", s.DueDate.String())

	l, _ := e.Loan(id)
	assert.Equal(t, r.Loan.DueDate, l.DueDate)

	_, err = e.Renew(id, testPatron("userZz999", RoleStudent))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.Renew("loanXx000", res.Patron)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLateness(t *testing.T) {
	loan := Loan{DueDate: MustParseDate("10/01/2025")}

	assert.Equal(t, 5, Lateness(loan, MustParseDate("15/01/2025")))
	assert.Equal(t, 2.5, Penalty(loan, MustParseDate("15/01/2025"), DefaultPenaltyRate))
	assert.Equal(t, 5.0, Penalty(loan, MustParseDate("15/01/2025"), 1))

	assert.Equal(t, DueTomorrow, Lateness(loan, MustParseDate("09/01/2025")))
	assert.Equal(t, 0.0, Penalty(loan, MustParseDate("09/01/2025"), DefaultPenaltyRate))

	assert.Equal(t, 0, Lateness(loan, MustParseDate("10/01/2025")))
	assert.Equal(t, 0, Lateness(loan, MustParseDate("01/01/2025")))
}

func TestOverdueAndReminders(t *testing.T) {
	e := NewLoanEngine([]Loan{
		{ID: "loanAa001", ISBN: "Ab123", PatronID: "userAa001", DueDate: MustParseDate("10/01/2025")},
		{ID: "loanAa002", ISBN: "Ab123", PatronID: "userAa002", DueDate: MustParseDate("16/01/2025")},
		{ID: "loanAa003", ISBN: "Cd456", PatronID: "userAa001", DueDate: MustParseDate("20/01/2025")},
	}, WithLoanDates(FixedDate(MustParseDate("15/01/2025"))))

	late := e.Overdue(0.5)
	require.Len(t, late, 1)
	assert.Equal(t, "loanAa001", late[0].ID)
	assert.Equal(t, 2.5, late[0].Penalty)

	soon := e.Reminders()
	require.Len(t, soon, 1)
	assert.Equal(t, "loanAa002", soon[0].ID)

	assert.Len(t, e.LoansFor("userAa001"), 2)
	assert.Len(t, e.LoansOf("Ab123"), 2)

	e.RefreshPenalties(1)
	l, _ := e.Loan("loanAa001")
	assert.Equal(t, 5.0, l.Penalty)
}

func TestNewLoanEngineSkipsDuplicates(t *testing.T) {
	e := NewLoanEngine([]Loan{
		{ID: "loanAa001", BorrowDate: MustParseDate("01/01/2025")},
		{ID: "loanAa001"},
		{ID: ""},
	})
	require.Len(t, e.Loans(), 1)
	l, _ := e.Loan("loanAa001")
	assert.Equal(t, "31/01/2025", l.DueDate.String(), "missing due date derived from the term")
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 8).Draw(t, "total")
		avail := rapid.IntRange(0, total).Draw(t, "avail")
		role := rapid.SampledFrom([]Role{RoleStudent, RoleTeacher}).Draw(t, "role")
		held := rapid.IntRange(0, LimitFor(role)).Draw(t, "held")
		n := rapid.IntRange(1, 6).Draw(t, "n")

		e := NewLoanEngine(nil, WithLoanDates(FixedDate(MustParseDate("01/06/2025"))))
		book := testBook("Ab123", total)
		book.AvailableCopies = avail
		patron := testPatron("userAa001", role)
		for i := 0; i < held; i++ {
			patron.ActiveLoans = append(patron.ActiveLoans, LoanSummary{LoanID: "old" + string(rune('a'+i))})
		}

		res, err := e.Borrow(book, patron, n)
		if err != nil {
			if n > LimitFor(role)-held {
				assert.ErrorIs(t, err, ErrLimitExceeded)
			} else {
				assert.ErrorIs(t, err, ErrInsufficientCopies)
			}
			assert.Empty(t, e.Loans())
			return
		}
		assert.Equal(t, avail-n, res.Book.AvailableCopies)
		assert.Equal(t, held+n, res.Patron.ActiveLoanCount())
		for _, l := range res.Loans {
			assert.Equal(t, l.BorrowDate.AddDays(DefaultLoanTermDays), l.DueDate)
		}

		b, p := res.Book, res.Patron
		for _, l := range res.Loans {
			back, err := e.Return(l.ID, b, p)
			if err != nil {
				t.Fatalf("return %s: %v", l.ID, err)
			}
			b, p = back.Book, back.Patron
		}
		assert.Equal(t, avail, b.AvailableCopies)
		assert.Equal(t, held, p.ActiveLoanCount())
		assert.Empty(t, e.Loans())
	})
}
