package library

import (
	"io"
	"log/slog"
	"slices"

	"github.com/pkg/errors"
)

// LibraryManager is the façade the CLI talks to. It owns the collections and
// the engines, and persists every mutation before returning.
type LibraryManager struct {
	cfg    Config
	store  RecordStore
	log    *slog.Logger
	dates  DateSource
	ids    *IDGenerator
	sheets *SpecSheets
	sink   NotificationSink

	books     []*Book
	bookIdx   map[string]*Book
	patrons   []*Patron
	patronIdx map[string]*Patron

	loans        *LoanEngine
	reservations *ReservationEngine
}

type Option func(*LibraryManager)

func WithLogger(l *slog.Logger) Option      { return func(m *LibraryManager) { m.log = l } }
func WithDateSource(ds DateSource) Option   { return func(m *LibraryManager) { m.dates = ds } }
func WithIDGenerator(g *IDGenerator) Option { return func(m *LibraryManager) { m.ids = g } }
func WithStore(s RecordStore) Option        { return func(m *LibraryManager) { m.store = s } }
func WithNotifications(s NotificationSink) Option {
	return func(m *LibraryManager) { m.sink = s }
}

// NewLibraryManager opens the configured store and loads every collection.
// A collection that cannot be decoded aborts start-up.
func NewLibraryManager(cfg Config, opts ...Option) (*LibraryManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &LibraryManager{
		cfg:       cfg,
		dates:     EnvDateSource{},
		bookIdx:   make(map[string]*Book),
		patronIdx: make(map[string]*Patron),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.ids == nil {
		m.ids = NewIDGenerator()
	}
	if m.sink == nil {
		m.sink = NewNotificationLog(cfg.DataDir)
	}
	m.sheets = NewSpecSheets(cfg.DataDir)
	if m.store == nil {
		s, err := cfg.OpenStore()
		if err != nil {
			return nil, errors.Wrap(err, "open record store")
		}
		m.store = s
	}

	if err := m.load(); err != nil {
		m.store.Close()
		return nil, err
	}
	return m, nil
}

func (m *LibraryManager) load() error {
	var (
		books        []Book
		patrons      []Patron
		loans        []Loan
		reservations []Reservation
	)
	for _, c := range []struct {
		name string
		out  any
	}{
		{CollectionBooks, &books},
		{CollectionPatrons, &patrons},
		{CollectionLoans, &loans},
		{CollectionReservations, &reservations},
	} {
		if err := m.store.Load(c.name, c.out); err != nil {
			return errors.Wrapf(err, "load %s", c.name)
		}
	}

	for i := range books {
		b := books[i]
		if b.ISBN == "" || m.bookIdx[b.ISBN] != nil {
			continue
		}
		m.books = append(m.books, &b)
		m.bookIdx[b.ISBN] = &b
	}
	for i := range patrons {
		p := patrons[i]
		if p.ID == "" || m.patronIdx[p.ID] != nil {
			continue
		}
		p.normalize()
		m.patrons = append(m.patrons, &p)
		m.patronIdx[p.ID] = &p
	}

	m.loans = NewLoanEngine(loans,
		WithLoanDates(m.dates),
		WithLoanIDs(m.ids),
		WithLoanTerm(m.cfg.LoanTermDays),
		WithRenewalDays(m.cfg.RenewalDays),
	)
	m.reservations = NewReservationEngine(reservations, m.loans, m.sink, WithReservationIDs(m.ids))

	m.log.Info("collections loaded",
		"books", len(m.books), "patrons", len(m.patrons),
		"loans", len(loans), "reservations", len(reservations))
	return nil
}

// Close closes the record store.
func (m *LibraryManager) Close() error { return m.store.Close() }

func (m *LibraryManager) Config() Config { return m.cfg }
func (m *LibraryManager) Today() Date    { return m.dates.Today() }

// ------------------ Persistence ------------------

func (m *LibraryManager) snapshot(collection string) any {
	switch collection {
	case CollectionBooks:
		return m.Books()
	case CollectionPatrons:
		return m.Patrons()
	case CollectionLoans:
		m.loans.RefreshPenalties(m.cfg.PenaltyRate)
		return m.loans.Loans()
	case CollectionReservations:
		return m.reservations.Reservations()
	}
	return nil
}

// persist saves the named collections. The in-memory state is kept when a
// save fails; the caller gets ErrNotPersisted.
func (m *LibraryManager) persist(collections ...string) error {
	var failed []string
	for _, c := range collections {
		if err := m.store.Save(c, m.snapshot(c)); err != nil {
			m.log.Error("save failed", "collection", c, "err", err)
			failed = append(failed, c)
		}
	}
	if len(failed) > 0 {
		return errors.Wrapf(ErrNotPersisted, "collections %v", failed)
	}
	return nil
}

// Save writes every collection.
func (m *LibraryManager) Save() error {
	return m.persist(CollectionBooks, CollectionPatrons, CollectionLoans, CollectionReservations)
}

// ------------------ Catalog ------------------

func (m *LibraryManager) AddBook(title, author, summary string, copies int) (Book, error) {
	b, err := NewBook(title, author, summary, copies)
	if err != nil {
		return Book{}, err
	}
	b.ISBN, err = m.ids.Unique(PrefixBook, func(id string) bool { return m.bookIdx[id] != nil })
	if err != nil {
		return Book{}, errors.Wrap(err, "allocate book code")
	}
	m.books = append(m.books, b)
	m.bookIdx[b.ISBN] = b
	m.writeSheet(*b)
	m.log.Info("book added", "entity", "book", "action", "add", "isbn", b.ISBN, "title", b.Title, "copies", b.TotalCopies)
	return *b, m.persist(CollectionBooks)
}

// BookUpdate lists the fields to change. Nil fields are left alone.
type BookUpdate struct {
	Title   *string
	Author  *string
	Summary *string
	Copies  *int
	Status  *BookStatus
}

// UpdateBook applies u atomically: if any field is invalid nothing changes.
func (m *LibraryManager) UpdateBook(isbn string, u BookUpdate) (Book, error) {
	cur, err := m.book(isbn)
	if err != nil {
		return Book{}, err
	}
	next := *cur
	steps := []struct {
		set   bool
		apply func() error
	}{
		{u.Title != nil, func() error { return next.SetTitle(*u.Title) }},
		{u.Author != nil, func() error { return next.SetAuthor(*u.Author) }},
		{u.Summary != nil, func() error { return next.SetSummary(*u.Summary) }},
		{u.Copies != nil, func() error { return next.SetTotalCopies(*u.Copies) }},
		{u.Status != nil, func() error { return next.SetStatus(*u.Status) }},
	}
	for _, s := range steps {
		if !s.set {
			continue
		}
		if err := s.apply(); err != nil {
			return Book{}, err
		}
	}
	*cur = next
	m.writeSheet(next)
	m.log.Info("book updated", "entity", "book", "action", "update", "isbn", isbn)
	return next, m.persist(CollectionBooks)
}

// DeleteBook removes a title that nobody holds or waits for.
func (m *LibraryManager) DeleteBook(isbn string) error {
	b, err := m.book(isbn)
	if err != nil {
		return err
	}
	if n := len(m.loans.LoansOf(isbn)); n > 0 {
		return errors.Wrapf(ErrValidation, "'%s' has %d copies on loan", b.Title, n)
	}
	if n := m.reservations.Index().Len(isbn); n > 0 {
		return errors.Wrapf(ErrValidation, "'%s' has %d reservations", b.Title, n)
	}
	delete(m.bookIdx, isbn)
	m.books = slices.DeleteFunc(m.books, func(x *Book) bool { return x.ISBN == isbn })
	if err := m.sheets.Remove(isbn); err != nil {
		m.log.Warn("spec sheet not removed", "isbn", isbn, "err", err)
	}
	m.log.Info("book deleted", "entity", "book", "action", "delete", "isbn", isbn)
	return m.persist(CollectionBooks)
}

func (m *LibraryManager) GetBook(isbn string) (Book, error) {
	b, err := m.book(isbn)
	if err != nil {
		return Book{}, err
	}
	return *b, nil
}

// Books returns the catalog in insertion order.
func (m *LibraryManager) Books() []Book {
	out := make([]Book, len(m.books))
	for i, b := range m.books {
		out[i] = *b
	}
	return out
}

func (m *LibraryManager) book(isbn string) (*Book, error) {
	b, ok := m.bookIdx[isbn]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "book %s", isbn)
	}
	return b, nil
}

func (m *LibraryManager) writeSheet(b Book) {
	if err := m.sheets.Write(b); err != nil {
		m.log.Warn("spec sheet not written", "isbn", b.ISBN, "err", err)
	}
}

// SpecSheets exposes the per-title description files.
func (m *LibraryManager) SpecSheets() *SpecSheets { return m.sheets }

// ------------------ Patrons ------------------

func (m *LibraryManager) AddPatron(name string, role Role) (Patron, error) {
	p, err := NewPatron(name, role)
	if err != nil {
		return Patron{}, err
	}
	p.ID, err = m.ids.Unique(PrefixPatron, func(id string) bool { return m.patronIdx[id] != nil })
	if err != nil {
		return Patron{}, errors.Wrap(err, "allocate patron id")
	}
	m.patrons = append(m.patrons, p)
	m.patronIdx[p.ID] = p
	m.log.Info("patron added", "entity", "patron", "action", "add", "patron", p.ID, "role", p.Role)
	return p.clone(), m.persist(CollectionPatrons)
}

func (m *LibraryManager) RenamePatron(id, name string) (Patron, error) {
	p, err := m.patron(id)
	if err != nil {
		return Patron{}, err
	}
	if err := p.SetName(name); err != nil {
		return Patron{}, err
	}
	m.log.Info("patron renamed", "entity", "patron", "action", "update", "patron", id)
	return p.clone(), m.persist(CollectionPatrons)
}

// DeletePatron removes a patron and drops their reservations. hadLoans
// reports loans still outstanding; those stay active and can be returned.
func (m *LibraryManager) DeletePatron(id string) (hadLoans bool, err error) {
	p, err := m.patron(id)
	if err != nil {
		return false, err
	}
	hadLoans = p.ActiveLoanCount() > 0

	touched := []string{CollectionPatrons}
	held := m.reservations.Index().For(id)
	if len(held) > 0 {
		touched = append(touched, CollectionBooks, CollectionReservations)
	}
	for _, r := range held {
		b, err := m.book(r.ISBN)
		if err != nil {
			m.reservations.Index().Remove(r.ID)
			continue
		}
		res, err := m.reservations.Cancel(r.ID, *b)
		if err != nil {
			return hadLoans, err
		}
		*b = res.Book
	}

	delete(m.patronIdx, id)
	m.patrons = slices.DeleteFunc(m.patrons, func(x *Patron) bool { return x.ID == id })
	m.log.Info("patron deleted", "entity", "patron", "action", "delete", "patron", id, "outstanding_loans", hadLoans)
	return hadLoans, m.persist(touched...)
}

func (m *LibraryManager) GetPatron(id string) (Patron, error) {
	p, err := m.patron(id)
	if err != nil {
		return Patron{}, err
	}
	return p.clone(), nil
}

func (m *LibraryManager) Patrons() []Patron {
	out := make([]Patron, len(m.patrons))
	for i, p := range m.patrons {
		out[i] = p.clone()
	}
	return out
}

func (m *LibraryManager) patron(id string) (*Patron, error) {
	p, ok := m.patronIdx[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "patron %s", id)
	}
	return p, nil
}

// ------------------ Circulation ------------------

// Borrow lends count copies of isbn to patronID.
func (m *LibraryManager) Borrow(isbn, patronID string, count int) ([]Loan, error) {
	b, err := m.book(isbn)
	if err != nil {
		return nil, err
	}
	p, err := m.patron(patronID)
	if err != nil {
		return nil, err
	}
	res, err := m.loans.Borrow(*b, *p, count)
	if err != nil {
		return nil, err
	}
	*b, *p = res.Book, res.Patron
	for _, l := range res.Loans {
		m.log.Info("loan issued", "entity", "loan", "action", "borrow",
			"loan", l.ID, "isbn", isbn, "patron", patronID, "due", l.DueDate.String())
	}
	return res.Loans, m.persist(CollectionBooks, CollectionPatrons, CollectionLoans)
}

// ReturnOutcome reports a return and whether the next patron in line was
// told the title is back.
type ReturnOutcome struct {
	Loan     Loan
	Book     Book
	Notified bool
}

// Return closes loanID, then notifies the head of the title's queue.
func (m *LibraryManager) Return(loanID string) (ReturnOutcome, error) {
	l, ok := m.loans.Loan(loanID)
	if !ok {
		return ReturnOutcome{}, errors.Wrapf(ErrNotFound, "loan %s", loanID)
	}
	b, err := m.book(l.ISBN)
	if err != nil {
		return ReturnOutcome{}, err
	}
	p, known := m.patronIdx[l.PatronID]
	holder := Patron{ID: l.PatronID, ActiveLoans: []LoanSummary{{LoanID: l.ID}}}
	if known {
		holder = *p
	}

	res, err := m.loans.Return(loanID, *b, holder)
	if err != nil {
		return ReturnOutcome{}, err
	}
	*b = res.Book
	if known {
		*p = res.Patron
	}
	m.log.Info("loan returned", "entity", "loan", "action", "return",
		"loan", loanID, "isbn", l.ISBN, "patron", l.PatronID, "late_days", max(0, m.loans.Lateness(l)))

	out := ReturnOutcome{Loan: res.Loan, Book: *b}
	if m.reservations.Index().Len(b.ISBN) > 0 {
		notified, err := m.reservations.NotifyAvailability(*b)
		if err != nil {
			m.log.Error("notification failed", "isbn", b.ISBN, "err", err)
		}
		out.Notified = notified
	}
	return out, m.persist(CollectionBooks, CollectionPatrons, CollectionLoans)
}

func (m *LibraryManager) Renew(loanID string) (Loan, error) {
	l, ok := m.loans.Loan(loanID)
	if !ok {
		return Loan{}, errors.Wrapf(ErrNotFound, "loan %s", loanID)
	}
	p, err := m.patron(l.PatronID)
	if err != nil {
		return Loan{}, err
	}
	res, err := m.loans.Renew(loanID, *p)
	if err != nil {
		return Loan{}, err
	}
	*p = res.Patron
	m.log.Info("loan renewed", "entity", "loan", "action", "renew", "loan", loanID, "due", res.Loan.DueDate.String())
	return res.Loan, m.persist(CollectionPatrons, CollectionLoans)
}

// Loans returns the active loans with penalties as of today.
func (m *LibraryManager) Loans() []Loan {
	m.loans.RefreshPenalties(m.cfg.PenaltyRate)
	return m.loans.Loans()
}

func (m *LibraryManager) LoansFor(patronID string) []Loan {
	m.loans.RefreshPenalties(m.cfg.PenaltyRate)
	return m.loans.LoansFor(patronID)
}

// Overdue returns the late loans priced at the configured rate.
func (m *LibraryManager) Overdue() []Loan { return m.loans.Overdue(m.cfg.PenaltyRate) }

// DueTomorrow returns the loans that fall due the next day.
func (m *LibraryManager) DueTomorrow() []Loan { return m.loans.Reminders() }

// Lateness of loanID as of today.
func (m *LibraryManager) Lateness(loanID string) (int, error) {
	l, ok := m.loans.Loan(loanID)
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "loan %s", loanID)
	}
	return m.loans.Lateness(l), nil
}

// ------------------ Reservations ------------------

// Reserve queues patronID for isbn. Zero dates take their defaults.
func (m *LibraryManager) Reserve(isbn, patronID string, borrowOn, dueOn Date) (Reservation, error) {
	b, err := m.book(isbn)
	if err != nil {
		return Reservation{}, err
	}
	p, err := m.patron(patronID)
	if err != nil {
		return Reservation{}, err
	}
	res, err := m.reservations.Reserve(*b, *p, borrowOn, dueOn)
	if err != nil {
		return Reservation{}, err
	}
	*b = res.Book
	r := res.Reservation
	m.log.Info("reservation queued", "entity", "reservation", "action", "reserve",
		"reservation", r.ID, "isbn", isbn, "patron", patronID, "position", r.Position)
	return r, m.persist(CollectionBooks, CollectionReservations)
}

func (m *LibraryManager) CancelReservation(reservationID string) (Reservation, error) {
	r, ok := m.reservations.Get(reservationID)
	if !ok {
		return Reservation{}, errors.Wrapf(ErrNotFound, "reservation %s", reservationID)
	}
	b, err := m.book(r.ISBN)
	if err != nil {
		return Reservation{}, err
	}
	res, err := m.reservations.Cancel(reservationID, *b)
	if err != nil {
		return Reservation{}, err
	}
	*b = res.Book
	m.log.Info("reservation cancelled", "entity", "reservation", "action", "cancel",
		"reservation", reservationID, "isbn", r.ISBN, "patron", r.PatronID)
	return res.Reservation, m.persist(CollectionBooks, CollectionReservations)
}

// NotifyAvailability tells the head of isbn's queue the title is back.
func (m *LibraryManager) NotifyAvailability(isbn string) (bool, error) {
	b, err := m.book(isbn)
	if err != nil {
		return false, err
	}
	ok, err := m.reservations.NotifyAvailability(*b)
	if err != nil {
		return false, err
	}
	if ok {
		m.log.Info("availability notified", "entity", "reservation", "action", "notify", "isbn", isbn)
	}
	return ok, nil
}

// Promote turns a reservation into a loan.
func (m *LibraryManager) Promote(reservationID string) (Loan, error) {
	r, ok := m.reservations.Get(reservationID)
	if !ok {
		return Loan{}, errors.Wrapf(ErrNotFound, "reservation %s", reservationID)
	}
	b, err := m.book(r.ISBN)
	if err != nil {
		return Loan{}, err
	}
	p, err := m.patron(r.PatronID)
	if err != nil {
		return Loan{}, err
	}
	res, err := m.reservations.PromoteToLoan(reservationID, *b, *p)
	if err != nil {
		return Loan{}, err
	}
	*b, *p = res.Book, res.Patron
	m.log.Info("reservation promoted", "entity", "reservation", "action", "promote",
		"reservation", reservationID, "loan", res.Loan.ID, "isbn", r.ISBN, "patron", r.PatronID)
	return res.Loan, m.persist(CollectionBooks, CollectionPatrons, CollectionLoans, CollectionReservations)
}

// Queue returns isbn's waiting list in position order.
func (m *LibraryManager) Queue(isbn string) ([]Reservation, error) {
	if _, err := m.book(isbn); err != nil {
		return nil, err
	}
	return m.reservations.Queue(isbn), nil
}

func (m *LibraryManager) Reservations() []Reservation { return m.reservations.Reservations() }

func (m *LibraryManager) ReservationsFor(patronID string) []Reservation {
	return m.reservations.Index().For(patronID)
}

// ------------------ Search & statistics ------------------

func (m *LibraryManager) Search(q Query) []Book { return Search(m.Books(), q) }

func (m *LibraryManager) Statistics() Statistics {
	return ComputeStatistics(m.Books(), m.Patrons(), m.loans.Loans(), m.Reservations(), m.Today(), m.cfg.PenaltyRate)
}

// SaveStats computes a snapshot and stores it in the statistics collection.
func (m *LibraryManager) SaveStats() (Statistics, error) {
	st := m.Statistics()
	if err := m.store.Save(CollectionStatistics, st); err != nil {
		m.log.Error("save failed", "collection", CollectionStatistics, "err", err)
		return st, errors.Wrapf(ErrNotPersisted, "collections [%s]", CollectionStatistics)
	}
	m.log.Info("statistics saved", "entity", "statistics", "action", "save")
	return st, nil
}
