package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"library-circulation/library"
)

// console is the interactive menu. Prompts are only printed when stdin is
// a terminal so the menu can also be driven from a script.
type console struct {
	sc          *bufio.Scanner
	out         io.Writer
	mgr         *library.LibraryManager
	interactive bool
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runREPL(in io.Reader, out io.Writer, mgr *library.LibraryManager) error {
	c := &console{sc: bufio.NewScanner(in), out: out, mgr: mgr, interactive: isTerminal(in)}

	if c.interactive {
		fmt.Fprint(out, "\033[2J\033[H")
	}
	fmt.Fprintf(out, "Library circulation, today is %s\n", mgr.Today())
	c.help()

	for {
		c.prompt("\n> ")
		if !c.sc.Scan() {
			break
		}
		cmd := strings.ToLower(strings.TrimSpace(c.sc.Text()))

		switch cmd {
		case "":
			continue
		case "add book":
			c.handleAddBook()
		case "update book":
			c.handleUpdateBook()
		case "delete book":
			c.handleDeleteBook()
		case "list books":
			printBooks(out, mgr.Books())
		case "search book":
			c.handleSearch()
		case "add patron":
			c.handleAddPatron()
		case "rename patron":
			c.handleRenamePatron()
		case "delete patron":
			c.handleDeletePatron()
		case "list patrons":
			printPatrons(out, mgr.Patrons())
		case "borrow":
			c.handleBorrow()
		case "return":
			c.handleReturn()
		case "renew":
			c.handleRenew()
		case "list loans":
			printLoans(out, mgr.Loans())
		case "overdue":
			printLoans(out, mgr.Overdue())
		case "reserve":
			c.handleReserve()
		case "cancel reservation":
			c.handleCancel()
		case "list reservations":
			c.handleListReservations()
		case "notify":
			c.handleNotify()
		case "promote":
			c.handlePromote()
		case "stats":
			c.handleStats()
		case "help":
			c.help()
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' to see the available commands.")
		}
	}
	return c.sc.Err()
}

func (c *console) help() {
	fmt.Fprintln(c.out, "Available commands:")
	fmt.Fprintln(c.out, "  Books: add book, update book, delete book, list books, search book")
	fmt.Fprintln(c.out, "  Patrons: add patron, rename patron, delete patron, list patrons")
	fmt.Fprintln(c.out, "  Circulation: borrow, return, renew, list loans, overdue")
	fmt.Fprintln(c.out, "  Reservations: reserve, cancel reservation, list reservations, notify, promote")
	fmt.Fprintln(c.out, "  System: stats, help, exit")
}

func (c *console) prompt(s string) {
	if c.interactive {
		fmt.Fprint(c.out, s)
	}
}

// ask prints label and reads one trimmed line. ok is false at end of input.
func (c *console) ask(label string) (string, bool) {
	c.prompt(label + ": ")
	if !c.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.sc.Text()), true
}

func (c *console) askInt(label string, def int) (int, bool) {
	s, ok := c.ask(fmt.Sprintf("%s [%d]", label, def))
	if !ok {
		return 0, false
	}
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

func (c *console) fail(err error) bool {
	if err == nil {
		return false
	}
	fmt.Fprintln(c.out, describeError(err))
	return !isNotPersisted(err)
}

func (c *console) handleAddBook() {
	title, ok := c.ask("Title")
	if !ok {
		return
	}
	author, ok := c.ask("Author")
	if !ok {
		return
	}
	summary, ok := c.ask("Summary")
	if !ok {
		return
	}
	copies, ok := c.askInt("Copies", 1)
	if !ok {
		return
	}
	b, err := c.mgr.AddBook(title, author, summary, copies)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Added '%s' with code %s.\n", b.Title, b.ISBN)
}

func (c *console) handleUpdateBook() {
	code, ok := c.ask("Book code")
	if !ok {
		return
	}
	cur, err := c.mgr.GetBook(code)
	if c.fail(err) {
		return
	}
	printBook(c.out, cur)
	fmt.Fprintln(c.out, "Leave a field empty to keep it.")

	var u library.BookUpdate
	for _, f := range []struct {
		label string
		dst   **string
	}{
		{"Title", &u.Title},
		{"Author", &u.Author},
		{"Summary", &u.Summary},
	} {
		v, ok := c.ask(f.label)
		if !ok {
			return
		}
		if v != "" {
			*f.dst = &v
		}
	}
	copies, ok := c.ask("Total copies")
	if !ok {
		return
	}
	if copies != "" {
		n, err := strconv.Atoi(copies)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid number: %s\n", copies)
			return
		}
		u.Copies = &n
	}
	status, ok := c.ask("Status (available, on_loan, reserved, lost, damaged)")
	if !ok {
		return
	}
	if status != "" {
		s, err := library.ParseBookStatus(status)
		if c.fail(err) {
			return
		}
		u.Status = &s
	}

	b, err := c.mgr.UpdateBook(code, u)
	if c.fail(err) {
		return
	}
	printBook(c.out, b)
}

func (c *console) handleDeleteBook() {
	code, ok := c.ask("Book code")
	if !ok {
		return
	}
	if c.fail(c.mgr.DeleteBook(code)) {
		return
	}
	fmt.Fprintf(c.out, "Deleted %s.\n", code)
}

func (c *console) handleSearch() {
	var q library.Query
	var ok bool
	fmt.Fprintln(c.out, "Leave a criterion empty to skip it.")
	if q.Title, ok = c.ask("Title contains"); !ok {
		return
	}
	if q.Author, ok = c.ask("Author contains"); !ok {
		return
	}
	if q.ISBN, ok = c.ask("Code contains"); !ok {
		return
	}
	if q.Keyword, ok = c.ask("Keyword"); !ok {
		return
	}
	avail, ok := c.ask("Available only (y/n)")
	if !ok {
		return
	}
	switch strings.ToLower(avail) {
	case "y", "yes":
		t := true
		q.Available = &t
	case "n", "no":
		f := false
		q.Available = &f
	}

	books := c.mgr.Search(q)
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books found.")
		return
	}
	fmt.Fprintf(c.out, "Found %d book(s):\n", len(books))
	printBooks(c.out, books)
}

func (c *console) handleAddPatron() {
	name, ok := c.ask("Name")
	if !ok {
		return
	}
	role, ok := c.ask("Role (student, teacher, staff)")
	if !ok {
		return
	}
	p, err := c.mgr.AddPatron(name, library.Role(role))
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Registered %s with id %s (limit %d loans).\n", p.Name, p.ID, p.Limit())
}

func (c *console) handleRenamePatron() {
	id, ok := c.ask("Patron id")
	if !ok {
		return
	}
	name, ok := c.ask("New name")
	if !ok {
		return
	}
	p, err := c.mgr.RenamePatron(id, name)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "%s is now %s.\n", p.ID, p.Name)
}

func (c *console) handleDeletePatron() {
	id, ok := c.ask("Patron id")
	if !ok {
		return
	}
	hadLoans, err := c.mgr.DeletePatron(id)
	if c.fail(err) {
		return
	}
	if hadLoans {
		fmt.Fprintln(c.out, "Warning: the patron still had loans outstanding.")
	}
	fmt.Fprintf(c.out, "Deleted %s.\n", id)
}

func (c *console) handleBorrow() {
	code, ok := c.ask("Book code")
	if !ok {
		return
	}
	id, ok := c.ask("Patron id")
	if !ok {
		return
	}
	n, ok := c.askInt("Copies", 1)
	if !ok {
		return
	}
	loans, err := c.mgr.Borrow(code, id, n)
	if c.fail(err) {
		return
	}
	for _, l := range loans {
		fmt.Fprintf(c.out, "Loan %s: '%s' due %s.\n", l.ID, l.BookTitle, l.DueDate)
	}
}

func (c *console) handleReturn() {
	id, ok := c.ask("Loan id")
	if !ok {
		return
	}
	if late, err := c.mgr.Lateness(id); err == nil && late > 0 {
		fmt.Fprintf(c.out, "This loan is %d day(s) late.\n", late)
	}
	out, err := c.mgr.Return(id)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Returned '%s'. %d of %d copies on the shelf.\n",
		out.Book.Title, out.Book.AvailableCopies, out.Book.TotalCopies)
	if out.Notified {
		fmt.Fprintln(c.out, "The next patron in the reservation queue was notified.")
	}
}

func (c *console) handleRenew() {
	id, ok := c.ask("Loan id")
	if !ok {
		return
	}
	l, err := c.mgr.Renew(id)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Loan %s now due %s.\n", l.ID, l.DueDate)
}

func (c *console) handleReserve() {
	code, ok := c.ask("Book code")
	if !ok {
		return
	}
	id, ok := c.ask("Patron id")
	if !ok {
		return
	}
	from, ok := c.ask("Desired borrow date dd/mm/yyyy (empty for today)")
	if !ok {
		return
	}
	until, ok := c.ask("Desired due date dd/mm/yyyy (empty for 30 days later)")
	if !ok {
		return
	}
	borrowOn, dueOn, err := parseDesiredDates(from, until)
	if c.fail(err) {
		return
	}
	r, err := c.mgr.Reserve(code, id, borrowOn, dueOn)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Reservation %s for '%s', position %d.\n", r.ID, r.BookTitle, r.Position)
}

func (c *console) handleCancel() {
	id, ok := c.ask("Reservation id")
	if !ok {
		return
	}
	r, err := c.mgr.CancelReservation(id)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Cancelled %s for '%s'.\n", r.ID, r.BookTitle)
}

func (c *console) handleListReservations() {
	code, ok := c.ask("Book code (empty for all)")
	if !ok {
		return
	}
	if code == "" {
		printQueue(c.out, c.mgr.Reservations())
		return
	}
	q, err := c.mgr.Queue(code)
	if c.fail(err) {
		return
	}
	printQueue(c.out, q)
}

func (c *console) handleNotify() {
	code, ok := c.ask("Book code")
	if !ok {
		return
	}
	sent, err := c.mgr.NotifyAvailability(code)
	if c.fail(err) {
		return
	}
	if !sent {
		fmt.Fprintln(c.out, "Nobody is waiting for this title.")
		return
	}
	fmt.Fprintln(c.out, "Notification written.")
}

func (c *console) handlePromote() {
	id, ok := c.ask("Reservation id")
	if !ok {
		return
	}
	l, err := c.mgr.Promote(id)
	if c.fail(err) {
		return
	}
	fmt.Fprintf(c.out, "Loan %s: '%s' to %s, due %s.\n", l.ID, l.BookTitle, l.PatronName, l.DueDate)
}

func (c *console) handleStats() {
	st, err := c.mgr.SaveStats()
	printStats(c.out, st)
	c.fail(err)
}
