// Package article holds article records and the process-wide registry that
// tracks them through the processing stages.
package article

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("article not found")
	ErrExists            = errors.New("article already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrClosed            = errors.New("article store closed")
)

// Record is one article job.
type Record struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Path         string    `json:"-"`
	Status       Status    `json:"status"`
	Headline     string    `json:"headline"`
	Body         string    `json:"body"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	ImageCaption string    `json:"imageCaption,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Fields is a partial update. Nil pointers leave a field untouched.
type Fields struct {
	Headline     *string
	Body         *string
	ImageURL     *string
	ImageCaption *string
}

// String returns a pointer to s, for building Fields.
func String(s string) *string { return &s }

// NewID returns an opaque unique article id.
func NewID() string { return uuid.NewString() }

// Store is an in-memory registry. Each update is applied to a copy and
// swapped in under the write lock, so readers never see a partial record.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	seq     map[string]int
	next    int
	closed  bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		seq:     make(map[string]int),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Create registers rec with status Starting. An empty ID gets a new one.
func (s *Store) Create(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrClosed
	}
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if _, ok := s.records[rec.ID]; ok {
		return Record{}, fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	now := s.now().UTC()
	rec.Status = StatusStarting
	rec.ErrorMessage = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[rec.ID] = &rec
	s.seq[rec.ID] = s.next
	s.next++
	return rec, nil
}

// Get returns a copy of the record or ErrNotFound.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// SetStatus moves id to status if the transition is allowed.
func (s *Store) SetStatus(id string, status Status) error {
	return s.update(id, func(rec *Record) error {
		if !rec.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
		}
		rec.Status = status
		if status.IsError() {
			rec.ErrorMessage = status.ErrorMessage()
		}
		return nil
	})
}

// Fail records msg as the terminal error status of id.
func (s *Store) Fail(id string, msg string) error {
	return s.SetStatus(id, ErrorStatus(msg))
}

// Merge applies f atomically. Terminal records reject merges.
func (s *Store) Merge(id string, f Fields) error {
	return s.update(id, func(rec *Record) error {
		if rec.Status.IsTerminal() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, rec.Status)
		}
		if f.Headline != nil {
			rec.Headline = *f.Headline
		}
		if f.Body != nil {
			rec.Body = *f.Body
		}
		if f.ImageURL != nil {
			rec.ImageURL = *f.ImageURL
		}
		if f.ImageCaption != nil {
			rec.ImageCaption = *f.ImageCaption
		}
		return nil
	})
}

func (s *Store) update(id string, fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	next := *rec
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = s.now().UTC()
	*rec = next
	return nil
}

// List returns copies of all records in creation order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

// Lock serializes jobs for one id and returns the unlock func.
func (s *Store) Lock(id string) func() {
	s.locksMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Close rejects further writes. Reads keep working.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
