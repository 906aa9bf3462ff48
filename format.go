package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"library-circulation/library"
)

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-8s %-30s %-25s %-10s %-9s %s\n", "Code", "Title", "Author", "Status", "Copies", "Loans")
	fmt.Fprintln(w, strings.Repeat("-", 95))
	for _, b := range books {
		fmt.Fprintf(w, "%-8s %-30s %-25s %-10s %-9s %d\n",
			b.ISBN,
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			b.Status,
			fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies),
			b.LoanCount)
	}
}

func printBook(w io.Writer, b library.Book) {
	fmt.Fprintf(w, "%s  %s by %s\n", b.ISBN, b.Title, b.Author)
	fmt.Fprintf(w, "  status %s, %d of %d copies available, borrowed %d times\n",
		b.Status, b.AvailableCopies, b.TotalCopies, b.LoanCount)
	if b.Summary != "" {
		fmt.Fprintf(w, "  %s\n", b.Summary)
	}
}

func printPatrons(w io.Writer, patrons []library.Patron) {
	if len(patrons) == 0 {
		fmt.Fprintln(w, "No patrons registered.")
		return
	}
	fmt.Fprintf(w, "%-9s %-30s %-8s %-8s %s\n", "ID", "Name", "Role", "Active", "Lifetime")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, p := range patrons {
		fmt.Fprintf(w, "%-9s %-30s %-8s %-8s %d\n",
			p.ID, truncateString(p.Name, 30), p.Role,
			fmt.Sprintf("%d/%d", p.ActiveLoanCount(), p.Limit()),
			p.LifetimeLoans)
	}
}

func printLoans(w io.Writer, loans []library.Loan) {
	if len(loans) == 0 {
		fmt.Fprintln(w, "No active loans.")
		return
	}
	fmt.Fprintf(w, "%-9s %-8s %-25s %-20s %-11s %-11s %s\n", "Loan", "Code", "Title", "Patron", "Borrowed", "Due", "Penalty")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, l := range loans {
		fmt.Fprintf(w, "%-9s %-8s %-25s %-20s %-11s %-11s %.2f\n",
			l.ID, l.ISBN, truncateString(l.BookTitle, 25), truncateString(l.PatronName, 20),
			l.BorrowDate, l.DueDate, l.Penalty)
	}
}

func printQueue(w io.Writer, queue []library.Reservation) {
	if len(queue) == 0 {
		fmt.Fprintln(w, "Nobody is waiting for this title.")
		return
	}
	fmt.Fprintf(w, "%-4s %-9s %-25s %-11s %-11s %s\n", "Pos", "Resv", "Patron", "Reserved", "From", "Until")
	fmt.Fprintln(w, strings.Repeat("-", 75))
	for _, r := range queue {
		fmt.Fprintf(w, "%-4d %-9s %-25s %-11s %-11s %s\n",
			r.Position, r.ID, truncateString(fmt.Sprintf("%s (%s)", r.PatronName, r.PatronID), 25),
			r.ReservedOn, r.DesiredBorrowDate, r.DesiredDueDate)
	}
}

func printStats(w io.Writer, st library.Statistics) {
	fmt.Fprintf(w, "Statistics for %s\n\n", st.GeneratedOn)
	fmt.Fprintf(w, "Books: %d titles, %d copies (%d available), %d titles borrowable\n",
		st.Books.Titles, st.Books.Copies, st.Books.AvailableCopies, st.Books.AvailableTitles)
	statuses := make([]string, 0, len(st.Books.ByStatus))
	for s, n := range st.Books.ByStatus {
		statuses = append(statuses, fmt.Sprintf("%s=%d", s, n))
	}
	sort.Strings(statuses)
	fmt.Fprintf(w, "  by status: %s\n", strings.Join(statuses, " "))
	fmt.Fprintf(w, "Patrons: %d (%d with loans), students=%d teachers=%d staff=%d\n",
		st.Patrons.Patrons, st.Patrons.Active,
		st.Patrons.ByRole[library.RoleStudent], st.Patrons.ByRole[library.RoleTeacher], st.Patrons.ByRole[library.RoleStaff])
	fmt.Fprintf(w, "Loans: %d active, %d lifetime, %d overdue (%.2f in penalties)\n",
		st.Loans.Active, st.Loans.Lifetime, st.Loans.Overdue, st.Loans.Penalty)
	fmt.Fprintf(w, "Reservations: %d across %d titles\n", st.Reservations.Reservations, st.Reservations.QueuedTitles)

	fmt.Fprintln(w, "\nMost borrowed:")
	for i, b := range st.TopBooks {
		fmt.Fprintf(w, "  %d. %s (%s) %d loans\n", i+1, b.Title, b.ISBN, b.LoanCount)
	}
	fmt.Fprintln(w, "\nMost active patrons:")
	for i, p := range st.TopPatrons {
		fmt.Fprintf(w, "  %d. %s (%s) %d loans\n", i+1, p.Name, p.ID, p.LifetimeLoans)
	}
	fmt.Fprintf(w, "\nNever borrowed: %d titles\n", len(st.NeverLoaned))
	for _, b := range st.NeverLoaned {
		fmt.Fprintf(w, "  - %s (%s)\n", b.Title, b.ISBN)
	}
}

// describeError turns a domain error into the line shown to the operator.
func describeError(err error) string {
	switch {
	case errors.Is(err, library.ErrNotPersisted):
		return fmt.Sprintf("Warning: change applied but not saved: %v", err)
	case errors.Is(err, library.ErrLimitExceeded):
		return fmt.Sprintf("Borrowing limit reached: %v", err)
	case errors.Is(err, library.ErrInsufficientCopies):
		return fmt.Sprintf("Not enough copies: %v", err)
	case errors.Is(err, library.ErrAlreadyAvailable):
		return fmt.Sprintf("No reservation needed: %v", err)
	case errors.Is(err, library.ErrDuplicateReservation):
		return fmt.Sprintf("Already reserved: %v", err)
	case errors.Is(err, library.ErrNotFound):
		return fmt.Sprintf("Not found: %v", err)
	case errors.Is(err, library.ErrValidation):
		return fmt.Sprintf("Invalid input: %v", err)
	}
	return fmt.Sprintf("Error: %v", err)
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

func isNotPersisted(err error) bool { return errors.Is(err, library.ErrNotPersisted) }
