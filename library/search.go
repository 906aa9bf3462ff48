package library

import "strings"

// Query combines search criteria. Empty fields are ignored and the rest are
// ANDed.
type Query struct {
	Title     string
	Author    string
	ISBN      string
	Keyword   string
	Available *bool
	Status    BookStatus
}

func (q Query) Empty() bool {
	return q.Title == "" && q.Author == "" && q.ISBN == "" && q.Keyword == "" && q.Available == nil && q.Status == ""
}

func (q Query) Match(b Book) bool {
	if q.Title != "" && !containsFold(b.Title, q.Title) {
		return false
	}
	if q.Author != "" && !containsFold(b.Author, q.Author) {
		return false
	}
	if q.ISBN != "" && !containsFold(b.ISBN, q.ISBN) {
		return false
	}
	if q.Keyword != "" && !matchesKeyword(b, q.Keyword) {
		return false
	}
	if q.Available != nil && *q.Available != b.IsAvailable() {
		return false
	}
	if q.Status != "" && b.Status != q.Status {
		return false
	}
	return true
}

// Search returns the books matching q in catalog order.
func Search(books []Book, q Query) []Book {
	out := make([]Book, 0)
	for _, b := range books {
		if q.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

func SearchByTitle(books []Book, s string) []Book  { return Search(books, Query{Title: s}) }
func SearchByAuthor(books []Book, s string) []Book { return Search(books, Query{Author: s}) }
func SearchByISBN(books []Book, s string) []Book   { return Search(books, Query{ISBN: s}) }

// SearchByKeyword looks in title, author and summary.
func SearchByKeyword(books []Book, s string) []Book { return Search(books, Query{Keyword: s}) }

func SearchByAvailability(books []Book, available bool) []Book {
	return Search(books, Query{Available: &available})
}

func SearchByStatus(books []Book, status BookStatus) []Book {
	return Search(books, Query{Status: status})
}

func matchesKeyword(b Book, kw string) bool {
	return containsFold(b.Title, kw) || containsFold(b.Author, kw) || containsFold(b.Summary, kw)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
