package library

import (
	"slices"

	"github.com/pkg/errors"
)

const (
	DefaultLoanTermDays = 30
	// RenewalDays is the increment applied by Renew.
	RenewalDays        = 1
	DefaultPenaltyRate = 0.5

	// DueTomorrow is the lateness reported for a loan due the next day.
	DueTomorrow = -1
)

// LoanEngine issues, renews and closes loans. It owns the active loan set;
// books and patrons are passed in by value and handed back updated, the
// caller replaces and persists them.
type LoanEngine struct {
	loans     []*Loan
	byID      map[string]*Loan
	dates     DateSource
	ids       *IDGenerator
	termDays  int
	renewDays int
}

type LoanOption func(*LoanEngine)

func WithLoanDates(ds DateSource) LoanOption { return func(e *LoanEngine) { e.dates = ds } }
func WithLoanIDs(g *IDGenerator) LoanOption  { return func(e *LoanEngine) { e.ids = g } }
func WithLoanTerm(days int) LoanOption       { return func(e *LoanEngine) { e.termDays = days } }
func WithRenewalDays(days int) LoanOption    { return func(e *LoanEngine) { e.renewDays = days } }

// NewLoanEngine builds an engine over the loans loaded from the store.
func NewLoanEngine(active []Loan, opts ...LoanOption) *LoanEngine {
	e := &LoanEngine{
		byID:      make(map[string]*Loan, len(active)),
		dates:     EnvDateSource{},
		termDays:  DefaultLoanTermDays,
		renewDays: RenewalDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ids == nil {
		e.ids = NewIDGenerator()
	}
	for _, l := range active {
		if _, dup := e.byID[l.ID]; dup || l.ID == "" {
			continue
		}
		l := l
		if l.DueDate.IsZero() && !l.BorrowDate.IsZero() {
			l.DueDate = l.BorrowDate.AddDays(e.termDays)
		}
		e.loans = append(e.loans, &l)
		e.byID[l.ID] = &l
	}
	return e
}

// BorrowResult carries the updated book and patron plus the new loans.
type BorrowResult struct {
	Book   Book
	Patron Patron
	Loans  []Loan
}

// Borrow lends count copies of book to patron, dated today. Either every
// copy is issued or none is.
func (e *LoanEngine) Borrow(book Book, patron Patron, count int) (BorrowResult, error) {
	today := e.dates.Today()
	return e.borrow(book, patron, count, today, today.AddDays(e.termDays))
}

func (e *LoanEngine) borrow(book Book, patron Patron, count int, borrowOn, due Date) (BorrowResult, error) {
	if count < 1 {
		return BorrowResult{}, errors.Wrapf(ErrValidation, "copy count must be at least 1, got %d", count)
	}
	if !patron.CanBorrow(count) {
		return BorrowResult{}, errors.Wrapf(ErrLimitExceeded,
			"%s (%s) holds %d/%d loans, cannot take %d more", patron.Name, patron.Role, patron.ActiveLoanCount(), patron.Limit(), count)
	}
	if count > book.AvailableCopies {
		return BorrowResult{}, errors.Wrapf(ErrInsufficientCopies,
			"'%s' has %d copies available, %d requested", book.Title, book.AvailableCopies, count)
	}

	p := patron.clone()
	created := make([]Loan, 0, count)
	issued := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		id, err := e.ids.Unique(PrefixLoan, func(id string) bool {
			_, used := e.byID[id]
			return used || issued[id]
		})
		if err != nil {
			return BorrowResult{}, errors.Wrap(err, "allocate loan id")
		}
		loan := Loan{
			ID:         id,
			ISBN:       book.ISBN,
			BookTitle:  book.Title,
			PatronID:   p.ID,
			PatronName: p.Name,
			BorrowDate: borrowOn,
			DueDate:    due,
		}
		if err := p.addLoan(LoanSummary{LoanID: id, BorrowDate: borrowOn, DueDate: due, Title: book.Title}); err != nil {
			return BorrowResult{}, err
		}
		book.takeCopy()
		issued[id] = true
		created = append(created, loan)
	}

	for i := range created {
		l := created[i]
		e.loans = append(e.loans, &l)
		e.byID[l.ID] = &l
	}
	return BorrowResult{Book: book, Patron: p, Loans: created}, nil
}

// ReturnResult carries the updated book and patron plus the closed loan.
type ReturnResult struct {
	Book   Book
	Patron Patron
	Loan   Loan
}

// Return closes loanID. It does not look at the reservation queue.
func (e *LoanEngine) Return(loanID string, book Book, patron Patron) (ReturnResult, error) {
	l, ok := e.byID[loanID]
	if !ok {
		return ReturnResult{}, errors.Wrapf(ErrNotFound, "loan %s", loanID)
	}
	if l.ISBN != book.ISBN {
		return ReturnResult{}, errors.Wrapf(ErrValidation, "loan %s is for title %s, not %s", loanID, l.ISBN, book.ISBN)
	}
	p := patron.clone()
	if !p.removeLoan(loanID) {
		return ReturnResult{}, errors.Wrapf(ErrNotFound, "patron %s holds no loan %s", patron.ID, loanID)
	}
	book.putBackCopy()
	closed := *l
	e.drop(loanID)
	return ReturnResult{Book: book, Patron: p, Loan: closed}, nil
}

// RenewResult carries the extended loan and the patron with the new due date.
type RenewResult struct {
	Loan   Loan
	Patron Patron
}

// Renew pushes the due date of loanID back by the renewal increment.
func (e *LoanEngine) Renew(loanID string, patron Patron) (RenewResult, error) {
	l, ok := e.byID[loanID]
	if !ok {
		return RenewResult{}, errors.Wrapf(ErrNotFound, "loan %s", loanID)
	}
	if l.PatronID != patron.ID {
		return RenewResult{}, errors.Wrapf(ErrValidation, "loan %s belongs to %s, not %s", loanID, l.PatronID, patron.ID)
	}
	due := l.DueDate.AddDays(e.renewDays)
	p := patron.clone()
	if !p.setDueDate(loanID, due) {
		return RenewResult{}, errors.Wrapf(ErrNotFound, "patron %s holds no loan %s", patron.ID, loanID)
	}
	l.DueDate = due
	return RenewResult{Loan: *l, Patron: p}, nil
}

func (e *LoanEngine) drop(loanID string) {
	delete(e.byID, loanID)
	e.loans = slices.DeleteFunc(e.loans, func(l *Loan) bool { return l.ID == loanID })
}

// Loan returns the active loan with id.
func (e *LoanEngine) Loan(id string) (Loan, bool) {
	l, ok := e.byID[id]
	if !ok {
		return Loan{}, false
	}
	return *l, true
}

// Loans returns the active set in issue order.
func (e *LoanEngine) Loans() []Loan {
	return e.filter(func(*Loan) bool { return true })
}

// LoansFor returns the active loans of one patron.
func (e *LoanEngine) LoansFor(patronID string) []Loan {
	return e.filter(func(l *Loan) bool { return l.PatronID == patronID })
}

// LoansOf returns the active loans of one title.
func (e *LoanEngine) LoansOf(isbn string) []Loan {
	return e.filter(func(l *Loan) bool { return l.ISBN == isbn })
}

// Overdue returns the late loans with their penalty computed at rate.
func (e *LoanEngine) Overdue(rate float64) []Loan {
	today := e.dates.Today()
	late := e.filter(func(l *Loan) bool { return Lateness(*l, today) > 0 })
	for i := range late {
		late[i].Penalty = Penalty(late[i], today, rate)
	}
	return late
}

// Reminders returns the loans whose due date is the next day.
func (e *LoanEngine) Reminders() []Loan {
	today := e.dates.Today()
	return e.filter(func(l *Loan) bool { return Lateness(*l, today) == DueTomorrow })
}

// RefreshPenalties recomputes the cached penalty of every active loan.
func (e *LoanEngine) RefreshPenalties(rate float64) {
	today := e.dates.Today()
	for _, l := range e.loans {
		l.Penalty = Penalty(*l, today, rate)
	}
}

// Lateness of l as of the engine's today.
func (e *LoanEngine) Lateness(l Loan) int { return Lateness(l, e.dates.Today()) }

// Penalty of l as of the engine's today.
func (e *LoanEngine) Penalty(l Loan, rate float64) float64 { return Penalty(l, e.dates.Today(), rate) }

func (e *LoanEngine) filter(keep func(*Loan) bool) []Loan {
	out := make([]Loan, 0, len(e.loans))
	for _, l := range e.loans {
		if keep(l) {
			out = append(out, *l)
		}
	}
	return out
}

// Lateness returns the whole days l is overdue on today, 0 when it is not
// late, or DueTomorrow when it falls due the next day.
func Lateness(l Loan, today Date) int {
	days := l.DueDate.DaysUntil(today)
	switch {
	case days == -1:
		return DueTomorrow
	case days < 0:
		return 0
	}
	return days
}

// Penalty is the days late times the per-day rate.
func Penalty(l Loan, today Date, rate float64) float64 {
	days := Lateness(l, today)
	if days <= 0 {
		return 0
	}
	return float64(days) * rate
}
