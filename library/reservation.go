package library

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ReservationEngine manages the reservation queues of unavailable titles and
// promotes queued reservations into loans through a LoanEngine.
type ReservationEngine struct {
	index    *ReservationQueueIndex
	loans    *LoanEngine
	sink     NotificationSink
	dates    DateSource
	ids      *IDGenerator
	now      func() time.Time
	termDays int
}

type ReservationOption func(*ReservationEngine)

func WithReservationDates(ds DateSource) ReservationOption {
	return func(e *ReservationEngine) { e.dates = ds }
}

func WithReservationIDs(g *IDGenerator) ReservationOption {
	return func(e *ReservationEngine) { e.ids = g }
}

func WithClock(now func() time.Time) ReservationOption {
	return func(e *ReservationEngine) { e.now = now }
}

func NewReservationEngine(records []Reservation, loans *LoanEngine, sink NotificationSink, opts ...ReservationOption) *ReservationEngine {
	e := &ReservationEngine{
		index:    NewReservationQueueIndex(records),
		loans:    loans,
		sink:     sink,
		dates:    EnvDateSource{},
		now:      time.Now,
		termDays: DefaultLoanTermDays,
	}
	if loans != nil {
		e.dates = loans.dates
		e.termDays = loans.termDays
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ids == nil {
		e.ids = NewIDGenerator()
	}
	return e
}

func (e *ReservationEngine) Index() *ReservationQueueIndex { return e.index }

// ReserveResult carries the book with its new status and the queued
// reservation.
type ReserveResult struct {
	Book        Book
	Reservation Reservation
}

// Reserve queues patron for book. A zero borrowOn defaults to today and a
// zero dueOn to borrowOn plus the loan term.
func (e *ReservationEngine) Reserve(book Book, patron Patron, borrowOn, dueOn Date) (ReserveResult, error) {
	if book.AvailableCopies > 0 {
		return ReserveResult{}, errors.Wrapf(ErrAlreadyAvailable,
			"'%s' has %d copies available, borrow it instead", book.Title, book.AvailableCopies)
	}
	if e.index.Has(book.ISBN, patron.ID) {
		return ReserveResult{}, errors.Wrapf(ErrDuplicateReservation,
			"%s already queues for '%s'", patron.Name, book.Title)
	}

	today := e.dates.Today()
	if borrowOn.IsZero() {
		borrowOn = today
	}
	if dueOn.IsZero() {
		dueOn = borrowOn.AddDays(e.termDays)
	}
	if dueOn.Before(borrowOn) {
		return ReserveResult{}, errors.Wrapf(ErrValidation, "due date %s precedes borrow date %s", dueOn, borrowOn)
	}

	id, err := e.ids.Unique(PrefixReservation, func(id string) bool {
		_, used := e.index.Get(id)
		return used
	})
	if err != nil {
		return ReserveResult{}, errors.Wrap(err, "allocate reservation id")
	}
	r := e.index.Enqueue(Reservation{
		ID:                id,
		ISBN:              book.ISBN,
		BookTitle:         book.Title,
		PatronID:          patron.ID,
		PatronName:        patron.Name,
		ReservedOn:        today,
		DesiredBorrowDate: borrowOn,
		DesiredDueDate:    dueOn,
	})
	book.Status = StatusReserved
	return ReserveResult{Book: book, Reservation: r}, nil
}

// CancelResult carries the book with its settled status and the removed
// reservation.
type CancelResult struct {
	Book        Book
	Reservation Reservation
}

// Cancel removes reservationID from book's queue. Once the queue is empty the
// book goes back to available or on loan depending on its copies.
func (e *ReservationEngine) Cancel(reservationID string, book Book) (CancelResult, error) {
	r, ok := e.index.Get(reservationID)
	if !ok {
		return CancelResult{}, errors.Wrapf(ErrNotFound, "reservation %s", reservationID)
	}
	if r.ISBN != book.ISBN {
		return CancelResult{}, errors.Wrapf(ErrValidation, "reservation %s is for title %s, not %s", reservationID, r.ISBN, book.ISBN)
	}
	e.index.Remove(reservationID)
	e.settle(&book)
	return CancelResult{Book: book, Reservation: r}, nil
}

// NotifyAvailability tells the head of book's queue that it can be
// collected. It reports false when nobody is waiting.
func (e *ReservationEngine) NotifyAvailability(book Book) (bool, error) {
	head, ok := e.index.Head(book.ISBN)
	if !ok {
		return false, nil
	}
	if e.sink == nil {
		return false, errors.New("no notification sink configured")
	}
	err := e.sink.Notify(Notification{
		ID:            uuid.NewString(),
		At:            e.now(),
		ISBN:          book.ISBN,
		Title:         book.Title,
		ReservationID: head.ID,
		PatronID:      head.PatronID,
		PatronName:    head.PatronName,
		Position:      head.Position,
		ReservedOn:    head.ReservedOn,
	})
	if err != nil {
		return false, errors.Wrapf(err, "notify %s for '%s'", head.PatronID, book.Title)
	}
	return true, nil
}

// PromoteResult carries everything a promotion touched.
type PromoteResult struct {
	Book        Book
	Patron      Patron
	Loan        Loan
	Reservation Reservation
}

// PromoteToLoan turns reservationID into a loan dated with the reservation's
// desired dates. If the loan cannot be issued the reservation stays queued.
func (e *ReservationEngine) PromoteToLoan(reservationID string, book Book, patron Patron) (PromoteResult, error) {
	r, ok := e.index.Get(reservationID)
	if !ok {
		return PromoteResult{}, errors.Wrapf(ErrNotFound, "reservation %s", reservationID)
	}
	if r.ISBN != book.ISBN {
		return PromoteResult{}, errors.Wrapf(ErrValidation, "reservation %s is for title %s, not %s", reservationID, r.ISBN, book.ISBN)
	}
	if r.PatronID != patron.ID {
		return PromoteResult{}, errors.Wrapf(ErrValidation, "reservation %s belongs to %s, not %s", reservationID, r.PatronID, patron.ID)
	}
	if book.AvailableCopies == 0 {
		return PromoteResult{}, errors.Wrapf(ErrInsufficientCopies, "'%s' has no copy to hand over", book.Title)
	}
	if e.loans == nil {
		return PromoteResult{}, errors.New("no loan engine configured")
	}

	due := r.DesiredDueDate
	if due.IsZero() {
		due = r.DesiredBorrowDate.AddDays(e.termDays)
	}
	res, err := e.loans.borrow(book, patron, 1, r.DesiredBorrowDate, due)
	if err != nil {
		return PromoteResult{}, errors.Wrapf(err, "promote reservation %s", reservationID)
	}
	e.index.Remove(reservationID)
	b := res.Book
	if e.index.Len(b.ISBN) > 0 {
		if b.AvailableCopies == 0 {
			b.Status = StatusReserved
		}
	} else {
		e.settle(&b)
	}
	return PromoteResult{Book: b, Patron: res.Patron, Loan: res.Loans[0], Reservation: r}, nil
}

// settle restores a book whose queue just emptied.
func (e *ReservationEngine) settle(b *Book) {
	if e.index.Len(b.ISBN) > 0 {
		return
	}
	if b.AvailableCopies > 0 {
		b.Status = StatusAvailable
	} else {
		b.Status = StatusOnLoan
	}
}

func (e *ReservationEngine) Get(id string) (Reservation, bool) { return e.index.Get(id) }
func (e *ReservationEngine) Queue(isbn string) []Reservation   { return e.index.Queue(isbn) }
func (e *ReservationEngine) Reservations() []Reservation       { return e.index.All() }
