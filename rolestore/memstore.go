package rolestore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and self-contained demos.
type MemStore struct {
	mu        sync.Mutex
	bySubject map[string]*Assignment
	byRecord  map[string]*Assignment

	// FailReads and FailWrites inject a fixed error, simulating an
	// unreachable backend.
	FailReads  error
	FailWrites error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		bySubject: make(map[string]*Assignment),
		byRecord:  make(map[string]*Assignment),
	}
}

// Find implements Store.
func (m *MemStore) Find(ctx context.Context, subjectID string) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	a, ok := m.bySubject[subjectID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// Insert implements Store.
func (m *MemStore) Insert(ctx context.Context, subjectID string, role Role) (*Assignment, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return nil, m.FailWrites
	}
	a := &Assignment{
		RecordID:  uuid.NewString(),
		SubjectID: subjectID,
		Role:      role,
	}
	m.bySubject[subjectID] = a
	m.byRecord[a.RecordID] = a
	cp := *a
	return &cp, nil
}

// Update implements Store.
func (m *MemStore) Update(ctx context.Context, recordID string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	a, ok := m.byRecord[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	a.Role = role
	return nil
}

// Len reports the number of stored records.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRecord)
}
