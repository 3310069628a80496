package patient

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps patients in process memory. It backs the
// `serve --store=memory` mode and the package tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	patients map[int64]Patient
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:   1,
		patients: make(map[int64]Patient),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// sorted returns all patients ordered by id. Callers hold the lock.
func (m *MemoryRepository) sorted() []Patient {
	out := make([]Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepository) FindByLastName(_ context.Context, lastName string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.sorted() {
		if p.LastName == lastName {
			return &p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *MemoryRepository) FindAll(_ context.Context) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(), nil
}

func (m *MemoryRepository) FindPage(_ context.Context, limit, offset int) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sorted()
	if offset >= len(all) {
		return []Patient{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patients), nil
}

func (m *MemoryRepository) Create(_ context.Context, req PatientRequest) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Patient{
		ID:          m.nextID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		BirthDate:   req.BirthDate,
		Gender:      req.Gender,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		CreatedAt:   m.now(),
	}
	m.nextID++
	m.patients[p.ID] = p
	return &p, nil
}

func (m *MemoryRepository) Update(_ context.Context, id int64, req PatientRequest) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	now := m.now()
	p.FirstName = req.FirstName
	p.LastName = req.LastName
	p.BirthDate = req.BirthDate
	p.Gender = req.Gender
	p.Address = req.Address
	p.PhoneNumber = req.PhoneNumber
	p.UpdatedAt = &now
	m.patients[id] = p
	return &p, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id int64) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	delete(m.patients, id)
	return &p, nil
}
