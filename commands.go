package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
)

// report prints the outcome of a mutation. A save failure is shown but does
// not fail the command since the change was applied.
func report(a *app, err error, format string, args ...any) error {
	if err != nil && !isNotPersisted(err) {
		return err
	}
	fmt.Fprintf(a.out, format+"\n", args...)
	if err != nil {
		fmt.Fprintln(a.out, describeError(err))
	}
	return nil
}

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage catalog entries"}

	var (
		title, author, summary string
		copies                 int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a title to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			b, err := a.mgr.AddBook(title, author, summary, copies)
			return report(a, err, "Added '%s' as %s with %d copies", b.Title, b.ISBN, b.TotalCopies)
		},
	}
	add.Flags().StringVar(&title, "title", "", "title")
	add.Flags().StringVar(&author, "author", "", "author")
	add.Flags().StringVar(&summary, "summary", "", "summary")
	add.Flags().IntVar(&copies, "copies", 1, "number of copies")
	add.MarkFlagRequired("title")
	add.MarkFlagRequired("author")
	add.MarkFlagRequired("summary")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			printBooks(a.out, a.mgr.Books())
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <code>",
		Short: "Show one title",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			b, err := a.mgr.GetBook(args[0])
			if err != nil {
				return err
			}
			printBook(a.out, b)
			return nil
		},
	}

	var (
		newTitle, newAuthor, newSummary, status string
		newCopies                               int
	)
	update := &cobra.Command{
		Use:   "update <code>",
		Short: "Change a title's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u library.BookUpdate
			fs := cmd.Flags()
			if fs.Changed("title") {
				u.Title = &newTitle
			}
			if fs.Changed("author") {
				u.Author = &newAuthor
			}
			if fs.Changed("summary") {
				u.Summary = &newSummary
			}
			if fs.Changed("copies") {
				u.Copies = &newCopies
			}
			if fs.Changed("status") {
				s, err := library.ParseBookStatus(status)
				if err != nil {
					return err
				}
				u.Status = &s
			}
			b, err := a.mgr.UpdateBook(args[0], u)
			return report(a, err, "Updated %s", b.ISBN)
		},
	}
	update.Flags().StringVar(&newTitle, "title", "", "new title")
	update.Flags().StringVar(&newAuthor, "author", "", "new author")
	update.Flags().StringVar(&newSummary, "summary", "", "new summary")
	update.Flags().IntVar(&newCopies, "copies", 0, "new total copies")
	update.Flags().StringVar(&status, "status", "", "new status (available, on_loan, reserved, lost, damaged)")

	del := &cobra.Command{
		Use:   "delete <code>",
		Short: "Remove a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return report(a, a.mgr.DeleteBook(args[0]), "Deleted %s", args[0])
		},
	}

	cmd.AddCommand(add, list, show, update, del)
	return cmd
}

func newPatronCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "patron", Short: "Manage patrons"}

	var name, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a patron",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			p, err := a.mgr.AddPatron(name, library.Role(role))
			return report(a, err, "Registered %s (%s) as %s", p.Name, p.Role, p.ID)
		},
	}
	add.Flags().StringVar(&name, "name", "", "patron name")
	add.Flags().StringVar(&role, "role", string(library.RoleStudent), "student, teacher or staff")
	add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List patrons",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			printPatrons(a.out, a.mgr.Patrons())
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a patron",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := a.mgr.RenamePatron(args[0], strings.Join(args[1:], " "))
			return report(a, err, "%s is now %s", p.ID, p.Name)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a patron",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			hadLoans, err := a.mgr.DeletePatron(args[0])
			if hadLoans && (err == nil || isNotPersisted(err)) {
				fmt.Fprintln(a.out, "Warning: the patron still had loans outstanding.")
			}
			return report(a, err, "Deleted %s", args[0])
		},
	}

	cmd.AddCommand(add, list, rename, del)
	return cmd
}

func newBorrowCmd(a *app) *cobra.Command {
	var copies int
	cmd := &cobra.Command{
		Use:   "borrow <code> <patron>",
		Short: "Lend copies of a title",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			loans, err := a.mgr.Borrow(args[0], args[1], copies)
			if err != nil && !isNotPersisted(err) {
				return err
			}
			printLoans(a.out, loans)
			return report(a, err, "%d loan(s) issued", len(loans))
		},
	}
	cmd.Flags().IntVarP(&copies, "copies", "n", 1, "number of copies")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan>",
		Short: "Return a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			out, err := a.mgr.Return(args[0])
			if err != nil && !isNotPersisted(err) {
				return err
			}
			if out.Notified {
				fmt.Fprintf(a.out, "The next patron waiting for '%s' was notified.\n", out.Book.Title)
			}
			return report(a, err, "Returned '%s' (%s)", out.Loan.BookTitle, out.Loan.ID)
		},
	}
}

func newRenewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "renew <loan>",
		Short: "Extend a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			l, err := a.mgr.Renew(args[0])
			return report(a, err, "%s now due %s", l.ID, l.DueDate)
		},
	}
}

func newReserveCmd(a *app) *cobra.Command {
	var from, until string
	cmd := &cobra.Command{
		Use:   "reserve <code> <patron>",
		Short: "Queue a patron for an unavailable title",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			borrowOn, dueOn, err := parseDesiredDates(from, until)
			if err != nil {
				return err
			}
			r, err := a.mgr.Reserve(args[0], args[1], borrowOn, dueOn)
			return report(a, err, "Reservation %s queued at position %d", r.ID, r.Position)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "desired borrow date dd/mm/yyyy (default today)")
	cmd.Flags().StringVar(&until, "until", "", "desired due date dd/mm/yyyy (default from + 30 days)")
	return cmd
}

func parseDesiredDates(from, until string) (library.Date, library.Date, error) {
	var borrowOn, dueOn library.Date
	var err error
	if strings.TrimSpace(from) != "" {
		if borrowOn, err = library.ParseDate(from); err != nil {
			return borrowOn, dueOn, err
		}
	}
	if strings.TrimSpace(until) != "" {
		if dueOn, err = library.ParseDate(until); err != nil {
			return borrowOn, dueOn, err
		}
	}
	return borrowOn, dueOn, nil
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <reservation>",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			r, err := a.mgr.CancelReservation(args[0])
			return report(a, err, "Cancelled %s for '%s'", r.ID, r.BookTitle)
		},
	}
}

func newNotifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <code>",
		Short: "Notify the head of a title's queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ok, err := a.mgr.NotifyAvailability(args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Nobody is waiting for this title.")
				return nil
			}
			fmt.Fprintln(a.out, "Notification written.")
			return nil
		},
	}
}

func newPromoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <reservation>",
		Short: "Turn a reservation into a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			l, err := a.mgr.Promote(args[0])
			return report(a, err, "Loan %s issued, due %s", l.ID, l.DueDate)
		},
	}
}

func newLoansCmd(a *app) *cobra.Command {
	var (
		patron  string
		overdue bool
	)
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List active loans",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			switch {
			case overdue:
				printLoans(a.out, a.mgr.Overdue())
			case patron != "":
				if _, err := a.mgr.GetPatron(patron); err != nil {
					return err
				}
				printLoans(a.out, a.mgr.LoansFor(patron))
			default:
				printLoans(a.out, a.mgr.Loans())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&patron, "patron", "", "only this patron's loans")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only late loans")
	return cmd
}

func newQueueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queue <code>",
		Short: "Show a title's reservation queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			q, err := a.mgr.Queue(args[0])
			if err != nil {
				return err
			}
			printQueue(a.out, q)
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		q         library.Query
		status    string
		available bool
	)
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Keyword = args[0]
			}
			if cmd.Flags().Changed("available") {
				q.Available = &available
			}
			if status != "" {
				s, err := library.ParseBookStatus(status)
				if err != nil {
					return err
				}
				q.Status = s
			}
			books := a.mgr.Search(q)
			if len(books) == 0 {
				fmt.Fprintln(a.out, "No books found.")
				return nil
			}
			printBooks(a.out, books)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Title, "title", "", "title contains")
	cmd.Flags().StringVar(&q.Author, "author", "", "author contains")
	cmd.Flags().StringVar(&q.ISBN, "code", "", "code contains")
	cmd.Flags().BoolVar(&available, "available", false, "has copies on the shelf")
	cmd.Flags().StringVar(&status, "status", "", "status equals")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if !save {
				printStats(a.out, a.mgr.Statistics())
				return nil
			}
			st, err := a.mgr.SaveStats()
			printStats(a.out, st)
			return report(a, err, "\nStatistics saved.")
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the snapshot in the statistics collection")
	return cmd
}
