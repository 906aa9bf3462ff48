package library

import (
	"cmp"
	"slices"
	"time"
)

const topN = 5

type BookStats struct {
	Titles          int                `json:"titles"`
	Copies          int                `json:"copies"`
	AvailableTitles int                `json:"available_titles"`
	AvailableCopies int                `json:"available_copies"`
	ByStatus        map[BookStatus]int `json:"by_status"`
}

type PatronStats struct {
	Patrons int          `json:"patrons"`
	ByRole  map[Role]int `json:"by_role"`
	Active  int          `json:"active"`
}

type LoanStats struct {
	Active   int     `json:"active"`
	Lifetime int     `json:"lifetime"`
	Overdue  int     `json:"overdue"`
	Penalty  float64 `json:"penalty"`
}

type ReservationStats struct {
	Reservations int `json:"reservations"`
	QueuedTitles int `json:"queued_titles"`
}

type BookRank struct {
	ISBN            string     `json:"isbn"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	LoanCount       int        `json:"loan_count"`
	AvailableCopies int        `json:"available_copies"`
	TotalCopies     int        `json:"total_copies"`
	Status          BookStatus `json:"status"`
}

type PatronRank struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	LifetimeLoans int    `json:"lifetime_loans"`
	ActiveLoans   int    `json:"active_loans"`
}

// Statistics is a read-only snapshot of the collections.
type Statistics struct {
	GeneratedOn  Date             `json:"generated_on"`
	GeneratedAt  string           `json:"generated_at"`
	Books        BookStats        `json:"books"`
	Patrons      PatronStats      `json:"patrons"`
	Loans        LoanStats        `json:"loans"`
	Reservations ReservationStats `json:"reservations"`
	TopBooks     []BookRank       `json:"top_books"`
	TopPatrons   []PatronRank     `json:"top_patrons"`
	NeverLoaned  []BookRank       `json:"never_loaned"`
}

// ComputeStatistics summarises the collections as of today.
func ComputeStatistics(books []Book, patrons []Patron, loans []Loan, reservations []Reservation, today Date, rate float64) Statistics {
	st := Statistics{
		GeneratedOn: today,
		GeneratedAt: time.Now().Format(time.TimeOnly),
		Books:       BookStats{ByStatus: make(map[BookStatus]int)},
		Patrons:     PatronStats{ByRole: make(map[Role]int)},
		TopBooks:    []BookRank{},
		TopPatrons:  []PatronRank{},
		NeverLoaned: []BookRank{},
	}

	for _, b := range books {
		st.Books.Titles++
		st.Books.Copies += b.TotalCopies
		st.Books.AvailableCopies += b.AvailableCopies
		if b.IsAvailable() {
			st.Books.AvailableTitles++
		}
		st.Books.ByStatus[b.Status]++
		if b.LoanCount == 0 {
			st.NeverLoaned = append(st.NeverLoaned, rankBook(b))
		}
	}

	for _, p := range patrons {
		st.Patrons.Patrons++
		st.Patrons.ByRole[p.Role]++
		if p.ActiveLoanCount() > 0 {
			st.Patrons.Active++
		}
		st.Loans.Lifetime += p.LifetimeLoans
	}

	for _, l := range loans {
		st.Loans.Active++
		if Lateness(l, today) > 0 {
			st.Loans.Overdue++
			st.Loans.Penalty += Penalty(l, today, rate)
		}
	}

	queued := make(map[string]bool)
	for _, r := range reservations {
		st.Reservations.Reservations++
		queued[r.ISBN] = true
	}
	st.Reservations.QueuedTitles = len(queued)

	ranked := slices.Clone(books)
	slices.SortStableFunc(ranked, func(a, b Book) int { return cmp.Compare(b.LoanCount, a.LoanCount) })
	for _, b := range ranked[:min(topN, len(ranked))] {
		st.TopBooks = append(st.TopBooks, rankBook(b))
	}

	active := slices.Clone(patrons)
	slices.SortStableFunc(active, func(a, b Patron) int { return cmp.Compare(b.LifetimeLoans, a.LifetimeLoans) })
	for _, p := range active[:min(topN, len(active))] {
		st.TopPatrons = append(st.TopPatrons, PatronRank{
			ID:            p.ID,
			Name:          p.Name,
			Role:          p.Role,
			LifetimeLoans: p.LifetimeLoans,
			ActiveLoans:   p.ActiveLoanCount(),
		})
	}
	return st
}

func rankBook(b Book) BookRank {
	return BookRank{
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		LoanCount:       b.LoanCount,
		AvailableCopies: b.AvailableCopies,
		TotalCopies:     b.TotalCopies,
		Status:          b.Status,
	}
}
