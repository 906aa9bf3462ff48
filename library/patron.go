package library

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

const (
	StudentLoanLimit = 4
	TeacherLoanLimit = 6
	StaffLoanLimit   = 0
)

// LimitFor returns the number of concurrent loans a role may hold.
func LimitFor(r Role) int {
	switch r {
	case RoleStudent:
		return StudentLoanLimit
	case RoleTeacher:
		return TeacherLoanLimit
	default:
		return StaffLoanLimit
	}
}

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher, RoleStaff:
		return r, nil
	}
	return "", errors.Wrapf(ErrValidation, "unknown patron role %q (student, teacher, staff)", s)
}

// NewPatron builds a patron with no loans. The id is assigned by the manager.
func NewPatron(name string, role Role) (*Patron, error) {
	r, err := ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	p := &Patron{Role: r, ActiveLoans: []LoanSummary{}}
	if err := p.SetName(name); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Patron) SetName(v string) error {
	v, err := nonBlank("name", v)
	if err != nil {
		return err
	}
	p.Name = v
	return nil
}

func (p *Patron) Limit() int           { return LimitFor(p.Role) }
func (p *Patron) ActiveLoanCount() int { return len(p.ActiveLoans) }

// Remaining is the number of additional loans the patron may take.
func (p *Patron) Remaining() int {
	if n := p.Limit() - p.ActiveLoanCount(); n > 0 {
		return n
	}
	return 0
}

// CanBorrow reports whether n more loans fit under the limit.
func (p *Patron) CanBorrow(n int) bool { return n <= p.Limit()-p.ActiveLoanCount() }

// Loan returns the embedded summary for loanID.
func (p *Patron) Loan(loanID string) (LoanSummary, bool) {
	i := p.loanIndex(loanID)
	if i < 0 {
		return LoanSummary{}, false
	}
	return p.ActiveLoans[i], true
}

func (p *Patron) loanIndex(loanID string) int {
	return slices.IndexFunc(p.ActiveLoans, func(s LoanSummary) bool { return s.LoanID == loanID })
}

func (p *Patron) addLoan(s LoanSummary) error {
	if !p.CanBorrow(1) {
		return errors.Wrapf(ErrLimitExceeded, "%s has %d/%d loans", p.Name, p.ActiveLoanCount(), p.Limit())
	}
	p.ActiveLoans = append(p.ActiveLoans, s)
	p.LifetimeLoans++
	return nil
}

func (p *Patron) removeLoan(loanID string) bool {
	i := p.loanIndex(loanID)
	if i < 0 {
		return false
	}
	p.ActiveLoans = slices.Delete(p.ActiveLoans, i, i+1)
	return true
}

func (p *Patron) setDueDate(loanID string, due Date) bool {
	i := p.loanIndex(loanID)
	if i < 0 {
		return false
	}
	p.ActiveLoans[i].DueDate = due
	return true
}

// clone deep-copies the embedded loan list so engine work never aliases the
// caller's patron.
func (p Patron) clone() Patron {
	p.ActiveLoans = slices.Clone(p.ActiveLoans)
	if p.ActiveLoans == nil {
		p.ActiveLoans = []LoanSummary{}
	}
	return p
}

func (p *Patron) normalize() {
	if _, err := ParseRole(string(p.Role)); err != nil {
		p.Role = RoleStudent
	}
	if p.LifetimeLoans < 0 {
		p.LifetimeLoans = 0
	}
	if p.ActiveLoans == nil {
		p.ActiveLoans = []LoanSummary{}
	}
}

func (p Patron) String() string {
	return fmt.Sprintf("[%s] %s - %s - loans: %d/%d", p.ID, p.Name, p.Role, len(p.ActiveLoans), LimitFor(p.Role))
}
