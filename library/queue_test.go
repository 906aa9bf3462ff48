package library

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQueueOrdersByReservationDate(t *testing.T) {
	q := NewReservationQueueIndex([]Reservation{
		{ID: "resvAa003", ISBN: "Ab123", PatronID: "c", ReservedOn: MustParseDate("03/01/2025"), Position: 1},
		{ID: "resvAa001", ISBN: "Ab123", PatronID: "a", ReservedOn: MustParseDate("01/01/2025"), Position: 7},
		{ID: "resvAa002", ISBN: "Ab123", PatronID: "b", ReservedOn: MustParseDate("01/01/2025")},
		{ID: "resvBb001", ISBN: "Cd456", PatronID: "a", ReservedOn: MustParseDate("02/01/2025")},
		{ID: "resvAa001", ISBN: "Cd456", PatronID: "dup"},
	})

	queue := q.Queue("Ab123")
	require.Len(t, queue, 3)
	assert.Equal(t, []string{"resvAa001", "resvAa002", "resvAa003"}, ids(queue))
	for i, r := range queue {
		assert.Equal(t, i+1, r.Position)
	}
	assert.Equal(t, 1, q.Len("Cd456"))

	head, ok := q.Head("Ab123")
	require.True(t, ok)
	assert.Equal(t, "a", head.PatronID)
	assert.True(t, q.Has("Ab123", "b"))
	assert.False(t, q.Has("Cd456", "b"))
	assert.Len(t, q.For("a"), 2)
	assert.Len(t, q.All(), 4)
}

func TestQueueRemoveClosesGap(t *testing.T) {
	q := NewReservationQueueIndex(nil)
	for i, day := range []string{"01/01/2025", "02/01/2025", "03/01/2025"} {
		q.Enqueue(Reservation{ID: fmt.Sprintf("resv%d", i), ISBN: "Ab123", ReservedOn: MustParseDate(day)})
	}
	removed, ok := q.Remove("resv1")
	require.True(t, ok)
	assert.Equal(t, 2, removed.Position)

	queue := q.Queue("Ab123")
	assert.Equal(t, []string{"resv0", "resv2"}, ids(queue))
	assert.Equal(t, 2, queue[1].Position)

	_, ok = q.Remove("resv1")
	assert.False(t, ok)

	q.Remove("resv0")
	q.Remove("resv2")
	assert.Equal(t, 0, q.Len("Ab123"))
	_, ok = q.Head("Ab123")
	assert.False(t, ok)
	assert.Empty(t, q.Queue("Ab123"))
}

func TestQueuePositionsStayContiguous(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := NewReservationQueueIndex(nil)
		titles := []string{"Ab123", "Cd456", "Ef789"}
		var live []string
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.Bool().Draw(t, "cancel") {
				k := rapid.IntRange(0, len(live)-1).Draw(t, "victim")
				q.Remove(live[k])
				live = append(live[:k], live[k+1:]...)
				continue
			}
			id := fmt.Sprintf("resv%03d", i)
			q.Enqueue(Reservation{
				ID:         id,
				ISBN:       rapid.SampledFrom(titles).Draw(t, "title"),
				ReservedOn: MustParseDate("01/01/2025").AddDays(rapid.IntRange(0, 10).Draw(t, "day")),
			})
			live = append(live, id)
		}

		total := 0
		for _, isbn := range titles {
			queue := q.Queue(isbn)
			total += len(queue)
			for i, r := range queue {
				if r.Position != i+1 {
					t.Fatalf("%s: position %d at index %d", isbn, r.Position, i)
				}
				if i > 0 && r.ReservedOn.Before(queue[i-1].ReservedOn) {
					t.Fatalf("%s: %s reserved before its predecessor", isbn, r.ID)
				}
			}
		}
		if total != len(live) {
			t.Fatalf("index holds %d reservations, want %d", total, len(live))
		}
	})
}

func ids(rs []Reservation) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
