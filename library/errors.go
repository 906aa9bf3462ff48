package library

import "errors"

// Error kinds surfaced by the engines and the manager. All of them are
// recoverable: callers classify with errors.Is and re-prompt.
var (
	ErrValidation           = errors.New("validation error")
	ErrLimitExceeded        = errors.New("borrowing limit exceeded")
	ErrInsufficientCopies   = errors.New("insufficient copies")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyAvailable     = errors.New("title has available copies")
	ErrDuplicateReservation = errors.New("duplicate reservation")
	ErrAlreadyExists        = errors.New("already exists")

	// ErrNotPersisted means the mutation was applied in memory but the
	// record store rejected the save.
	ErrNotPersisted = errors.New("changes not persisted")
)

// ErrCorruptStore is returned when a persisted collection cannot be decoded.
var ErrCorruptStore = errors.New("corrupt record store")
