package library

import (
	"math/rand/v2"
)

const (
	idLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idDigits  = "0123456789"

	// Prefixes of the generated codes. Books carry the bare code.
	PrefixBook        = ""
	PrefixPatron      = "user"
	PrefixLoan        = "loan"
	PrefixReservation = "resv"

	maxIDAttempts = 64
)

// IDGenerator produces short codes of the form <prefix>XX000: two ASCII
// letters followed by three digits.
type IDGenerator struct {
	rng *rand.Rand
}

// NewIDGenerator returns a generator seeded from the runtime's entropy.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededIDGenerator returns a deterministic generator for tests.
func NewSeededIDGenerator(seed uint64) *IDGenerator {
	return &IDGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns a fresh code with the given prefix.
func (g *IDGenerator) Next(prefix string) string {
	var b [5]byte
	for i := 0; i < 2; i++ {
		b[i] = idLetters[g.rng.IntN(len(idLetters))]
	}
	for i := 2; i < 5; i++ {
		b[i] = idDigits[g.rng.IntN(len(idDigits))]
	}
	return prefix + string(b[:])
}

// Unique returns a code that taken does not report as used.
func (g *IDGenerator) Unique(prefix string, taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := g.Next(prefix)
		if !taken(id) {
			return id, nil
		}
	}
	return "", ErrAlreadyExists
}

// ValidCode reports whether s is a bare XX000 code.
func ValidCode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	for i := 2; i < 5; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
