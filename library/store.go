package library

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collection names.
const (
	CollectionBooks        = "books"
	CollectionPatrons      = "users"
	CollectionLoans        = "loans"
	CollectionReservations = "reservations"
	CollectionStatistics   = "statistics"
)

// RecordStore persists whole collections. Load leaves out untouched when the
// collection has never been saved.
type RecordStore interface {
	Load(collection string, out any) error
	Save(collection string, records any) error
	Close() error
}

// JSONStore keeps each collection in <dir>/<collection>/<collection>.json.
type JSONStore struct {
	dir string
}

func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) Dir() string { return s.dir }

func (s *JSONStore) path(collection string) string {
	return filepath.Join(s.dir, collection, collection+".json")
}

func (s *JSONStore) Load(collection string, out any) error {
	data, err := os.ReadFile(s.path(collection))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", collection, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path(collection), err)
	}
	return nil
}

// Save writes through a temp file in the same directory and renames it into
// place.
func (s *JSONStore) Save(collection string, records any) error {
	target := s.path(collection)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", collection, err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", collection, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }
