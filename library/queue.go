package library

import "slices"

// ReservationQueueIndex keeps one FIFO queue per title. Positions inside a
// queue are always 1..N in reservation-date order; records with equal dates
// keep their insertion order.
type ReservationQueueIndex struct {
	queues map[string][]*Reservation
	byID   map[string]*Reservation
	order  []string
}

// NewReservationQueueIndex rebuilds the queues from persisted records.
// Stored positions are ignored and recomputed.
func NewReservationQueueIndex(records []Reservation) *ReservationQueueIndex {
	q := &ReservationQueueIndex{
		queues: make(map[string][]*Reservation),
		byID:   make(map[string]*Reservation, len(records)),
	}
	for _, r := range records {
		if r.ID == "" || q.byID[r.ID] != nil {
			continue
		}
		q.insert(r)
	}
	for isbn := range q.queues {
		q.renumber(isbn)
	}
	return q
}

func (q *ReservationQueueIndex) insert(r Reservation) *Reservation {
	rec := &r
	q.queues[r.ISBN] = append(q.queues[r.ISBN], rec)
	q.byID[r.ID] = rec
	q.order = append(q.order, r.ID)
	return rec
}

func (q *ReservationQueueIndex) renumber(isbn string) {
	queue := q.queues[isbn]
	if len(queue) == 0 {
		delete(q.queues, isbn)
		return
	}
	slices.SortStableFunc(queue, func(a, b *Reservation) int {
		return a.ReservedOn.Time().Compare(b.ReservedOn.Time())
	})
	for i, r := range queue {
		r.Position = i + 1
	}
}

// Enqueue appends r to its title's queue and returns it with its position.
func (q *ReservationQueueIndex) Enqueue(r Reservation) Reservation {
	rec := q.insert(r)
	q.renumber(r.ISBN)
	return *rec
}

// Remove drops the reservation with id and closes the gap it leaves.
func (q *ReservationQueueIndex) Remove(id string) (Reservation, bool) {
	rec, ok := q.byID[id]
	if !ok {
		return Reservation{}, false
	}
	delete(q.byID, id)
	q.order = slices.DeleteFunc(q.order, func(v string) bool { return v == id })
	q.queues[rec.ISBN] = slices.DeleteFunc(q.queues[rec.ISBN], func(r *Reservation) bool { return r.ID == id })
	q.renumber(rec.ISBN)
	return *rec, true
}

func (q *ReservationQueueIndex) Get(id string) (Reservation, bool) {
	rec, ok := q.byID[id]
	if !ok {
		return Reservation{}, false
	}
	return *rec, true
}

// Head returns position 1 of isbn's queue.
func (q *ReservationQueueIndex) Head(isbn string) (Reservation, bool) {
	queue := q.queues[isbn]
	if len(queue) == 0 {
		return Reservation{}, false
	}
	return *queue[0], true
}

// Queue returns isbn's reservations in position order.
func (q *ReservationQueueIndex) Queue(isbn string) []Reservation {
	queue := q.queues[isbn]
	out := make([]Reservation, len(queue))
	for i, r := range queue {
		out[i] = *r
	}
	return out
}

func (q *ReservationQueueIndex) Len(isbn string) int { return len(q.queues[isbn]) }

// Has reports whether patronID already queues for isbn.
func (q *ReservationQueueIndex) Has(isbn, patronID string) bool {
	return slices.ContainsFunc(q.queues[isbn], func(r *Reservation) bool { return r.PatronID == patronID })
}

// All returns every reservation in the order they were made.
func (q *ReservationQueueIndex) All() []Reservation {
	out := make([]Reservation, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.byID[id])
	}
	return out
}

// For returns the reservations held by one patron.
func (q *ReservationQueueIndex) For(patronID string) []Reservation {
	var out []Reservation
	for _, id := range q.order {
		if r := q.byID[id]; r.PatronID == patronID {
			out = append(out, *r)
		}
	}
	return out
}
