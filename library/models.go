package library

// BookStatus is advisory metadata. AvailableCopies decides whether a title
// can be borrowed.
type BookStatus string

const (
	StatusAvailable BookStatus = "available"
	StatusOnLoan    BookStatus = "on_loan"
	StatusReserved  BookStatus = "reserved"
	StatusLost      BookStatus = "lost"
	StatusDamaged   BookStatus = "damaged"
)

// Role selects a patron's borrowing limit.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleStaff   Role = "staff"
)

// Book is a catalog entry: one title with a number of identical copies.
type Book struct {
	ISBN            string     `json:"isbn"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Summary         string     `json:"summary"`
	Status          BookStatus `json:"status"`
	LoanCount       int        `json:"loan_count"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
}

// LoanSummary is the copy of an active loan embedded in its patron.
type LoanSummary struct {
	LoanID     string `json:"loan_id"`
	BorrowDate Date   `json:"borrow_date"`
	DueDate    Date   `json:"due_date"`
	Title      string `json:"title"`
}

// Patron is a registered library user.
type Patron struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Role          Role          `json:"role"`
	LifetimeLoans int           `json:"lifetime_loans"`
	ActiveLoans   []LoanSummary `json:"active_loans"`
}

// Loan is one copy currently out. Returned loans are dropped.
type Loan struct {
	ID         string  `json:"id"`
	ISBN       string  `json:"isbn"`
	BookTitle  string  `json:"book_title"`
	PatronID   string  `json:"patron_id"`
	PatronName string  `json:"patron_name"`
	BorrowDate Date    `json:"borrow_date"`
	DueDate    Date    `json:"due_date"`
	Penalty    float64 `json:"penalty"`
}

// Reservation is one patron's place in a title's waiting list.
type Reservation struct {
	ID                string `json:"id"`
	ISBN              string `json:"isbn"`
	BookTitle         string `json:"book_title"`
	PatronID          string `json:"patron_id"`
	PatronName        string `json:"patron_name"`
	ReservedOn        Date   `json:"reserved_on"`
	DesiredBorrowDate Date   `json:"desired_borrow_date"`
	DesiredDueDate    Date   `json:"desired_due_date"`
	Position          int    `json:"position"`
}
