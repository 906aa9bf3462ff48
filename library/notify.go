package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	NotificationLogDir  = "reservations"
	NotificationLogFile = "reservation.log"

	notificationTimeLayout = "2006-01-02 15:04:05"
)

// Notification tells the head of a queue that their title is back.
type Notification struct {
	ID            string
	At            time.Time
	ISBN          string
	Title         string
	ReservationID string
	PatronID      string
	PatronName    string
	Position      int
	ReservedOn    Date
}

// NotificationSink receives availability notices.
type NotificationSink interface {
	Notify(n Notification) error
}

// NotificationLog appends notices as text blocks to a file.
type NotificationLog struct {
	mu   sync.Mutex
	path string
}

// NewNotificationLog writes to <dataDir>/reservations/reservation.log.
func NewNotificationLog(dataDir string) *NotificationLog {
	return &NotificationLog{path: filepath.Join(dataDir, NotificationLogDir, NotificationLogFile)}
}

func (l *NotificationLog) Path() string { return l.path }

func (l *NotificationLog) Notify(n Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create notification dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notification log: %w", err)
	}
	defer f.Close()
	if err := WriteNotification(f, n); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// WriteNotification renders one notice block.
func WriteNotification(w io.Writer, n Notification) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] notification %s\n", n.At.Format(notificationTimeLayout), n.ID)
	fmt.Fprintf(&b, "Title available: %s (%s)\n", n.Title, n.ISBN)
	fmt.Fprintf(&b, "Reservation: %s\n", n.ReservationID)
	fmt.Fprintf(&b, "Patron: %s (%s)\n", n.PatronName, n.PatronID)
	fmt.Fprintf(&b, "Queue position: %d\n", n.Position)
	fmt.Fprintf(&b, "Reserved on: %s\n", n.ReservedOn)
	b.WriteString(strings.Repeat("=", 80))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// MemorySink collects notices, for tests and dry runs.
type MemorySink struct {
	mu   sync.Mutex
	Sent []Notification
}

func (m *MemorySink) Notify(n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	return nil
}
