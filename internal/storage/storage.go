package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/fair-rent/internal/division"
)

const defaultMaxRecords = 1000

var (
	// ErrNotFound indicates no record exists for the requested ID.
	ErrNotFound = errors.New("division not found")
	// ErrInvalidRecord indicates the record cannot be stored.
	ErrInvalidRecord = errors.New("division record must carry a result")
)

// Record is a stored division run.
type Record struct {
	ID        string
	CreatedAt time.Time
	HouseCost float64
	Result    *division.Result
}

// Storage keeps completed divisions for later retrieval.
type Storage interface {
	Save(rec Record) (Record, error)
	Get(id string) (Record, error)
	List() ([]Record, error)
	Len() int
}

// MemoryStorage keeps records in-memory, evicting the oldest once full, and
// guards access with a RWMutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	max     int
	order   []string
	records map[string]Record
	clock   func() time.Time
}

// Option configures MemoryStorage.
type Option func(*MemoryStorage)

// WithMaxRecords caps the number of retained records.
func WithMaxRecords(n int) Option {
	return func(s *MemoryStorage) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// NewMemoryStorage initialises an empty store.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		max:     defaultMaxRecords,
		records: make(map[string]Record),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores the record, assigning a UUID and timestamp when absent.
func (s *MemoryStorage) Save(rec Record) (Record, error) {
	if rec.Result == nil {
		return Record{}, ErrInvalidRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}
	return rec, nil
}

// Get returns the record with the given ID.
func (s *MemoryStorage) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns records newest first.
func (s *MemoryStorage) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.records[s.order[i]])
	}
	return out, nil
}

// Len is the number of stored records.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
