package library

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var bookStatuses = []BookStatus{StatusAvailable, StatusOnLoan, StatusReserved, StatusLost, StatusDamaged}

// ParseBookStatus validates s against the closed status set.
func ParseBookStatus(s string) (BookStatus, error) {
	v := BookStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range bookStatuses {
		if v == st {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrValidation, "invalid status %q, valid statuses: %v", s, bookStatuses)
}

// NewBook builds a catalog entry with all copies available. The code is
// assigned by the manager.
func NewBook(title, author, summary string, copies int) (*Book, error) {
	b := &Book{Status: StatusAvailable}
	if err := b.SetTitle(title); err != nil {
		return nil, err
	}
	if err := b.SetAuthor(author); err != nil {
		return nil, err
	}
	if err := b.SetSummary(summary); err != nil {
		return nil, err
	}
	if copies < 1 {
		return nil, errors.Wrapf(ErrValidation, "a title needs at least one copy, got %d", copies)
	}
	b.TotalCopies = copies
	b.AvailableCopies = copies
	return b, nil
}

func nonBlank(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.Wrapf(ErrValidation, "%s cannot be empty", field)
	}
	return v, nil
}

func (b *Book) SetTitle(v string) error {
	v, err := nonBlank("title", v)
	if err != nil {
		return err
	}
	b.Title = v
	return nil
}

func (b *Book) SetAuthor(v string) error {
	v, err := nonBlank("author", v)
	if err != nil {
		return err
	}
	b.Author = v
	return nil
}

func (b *Book) SetSummary(v string) error {
	v, err := nonBlank("summary", v)
	if err != nil {
		return err
	}
	b.Summary = v
	return nil
}

// SetStatus accepts any member of the closed status set.
func (b *Book) SetStatus(s BookStatus) error {
	st, err := ParseBookStatus(string(s))
	if err != nil {
		return err
	}
	b.Status = st
	return nil
}

// SetTotalCopies changes the stock size. Available copies are clamped to the
// new total, or rescaled proportionally when they still fit. An Available or
// OnLoan status follows the new shelf count.
func (b *Book) SetTotalCopies(n int) error {
	if n < 1 {
		return errors.Wrapf(ErrValidation, "a title needs at least one copy, got %d", n)
	}
	old := b.TotalCopies
	b.TotalCopies = n
	switch {
	case b.AvailableCopies > n:
		b.AvailableCopies = n
	case old > 0:
		b.AvailableCopies = n * b.AvailableCopies / old
	}
	switch {
	case b.AvailableCopies == 0 && b.Status == StatusAvailable:
		b.Status = StatusOnLoan
	case b.AvailableCopies > 0 && b.Status == StatusOnLoan:
		b.Status = StatusAvailable
	}
	return nil
}

// IsAvailable reports whether at least one copy can be borrowed.
func (b *Book) IsAvailable() bool { return b.AvailableCopies > 0 }

// takeCopy removes one copy from the shelf.
func (b *Book) takeCopy() {
	if b.AvailableCopies > 0 {
		b.AvailableCopies--
		if b.AvailableCopies == 0 {
			b.Status = StatusOnLoan
		}
	}
	b.LoanCount++
}

// putBackCopy returns one copy, capped at the total.
func (b *Book) putBackCopy() {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
	if b.AvailableCopies > 0 && b.Status == StatusOnLoan {
		b.Status = StatusAvailable
	}
}

// normalize repairs records loaded from disk: missing fields take the
// constructor defaults and counts are clamped.
func (b *Book) normalize() {
	if b.TotalCopies < 1 {
		b.TotalCopies = 1
	}
	if b.AvailableCopies < 0 {
		b.AvailableCopies = 0
	}
	if b.AvailableCopies > b.TotalCopies {
		b.AvailableCopies = b.TotalCopies
	}
	if b.LoanCount < 0 {
		b.LoanCount = 0
	}
	if _, err := ParseBookStatus(string(b.Status)); err != nil {
		b.Status = StatusAvailable
	}
}

// UnmarshalJSON defaults a missing available_copies to the total, the way a
// freshly catalogued title starts.
func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	aux := struct {
		*plain
		AvailableCopies *int `json:"available_copies"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.AvailableCopies != nil {
		b.AvailableCopies = *aux.AvailableCopies
	} else {
		b.AvailableCopies = b.TotalCopies
		if b.AvailableCopies < 1 {
			b.AvailableCopies = 1
		}
	}
	b.normalize()
	return nil
}

func (b Book) String() string {
	return fmt.Sprintf("[%s] %s by %s (%d/%d available) - %s", b.ISBN, b.Title, b.Author, b.AvailableCopies, b.TotalCopies, b.Status)
}
