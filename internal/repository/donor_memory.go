package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// InMemoryDonorRepository keeps donors in process memory. Suitable for tests
// and single-instance development runs.
type InMemoryDonorRepository struct {
	mu       sync.RWMutex
	donors   map[int64]domain.Donor
	contacts map[string]int64
	nextID   int64
	now      func() time.Time
}

func NewInMemoryDonorRepository() *InMemoryDonorRepository {
	return &InMemoryDonorRepository{
		donors:   make(map[int64]domain.Donor),
		contacts: make(map[string]int64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryDonorRepository) Insert(_ context.Context, donor *domain.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := donor.ContactKey()
	if _, taken := s.contacts[key]; taken {
		return ErrDuplicate
	}
	s.nextID++
	donor.ID = s.nextID
	donor.CreatedAt = s.now()
	s.donors[donor.ID] = *donor
	s.contacts[key] = donor.ID
	return nil
}

func (s *InMemoryDonorRepository) Get(_ context.Context, id int64) (*domain.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donor, ok := s.donors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &donor, nil
}

func (s *InMemoryDonorRepository) Query(_ context.Context, q Query) (DonorCursor, error) {
	q = q.Normalize()
	s.mu.RLock()
	matched := make([]domain.Donor, 0, len(s.donors))
	for id := range s.donors {
		donor := s.donors[id]
		if q.Predicate.Match(&donor) {
			matched = append(matched, donor)
		}
	}
	s.mu.RUnlock()

	return NewSliceCursor(page(sortNewestFirst(matched), q)), nil
}

func (s *InMemoryDonorRepository) UpdateStatus(_ context.Context, id int64, expected, next domain.ApprovalStatus, decisionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donor, ok := s.donors[id]
	if !ok {
		return ErrNotFound
	}
	if donor.Status != expected {
		return ErrConflict
	}
	donor.Status = next
	donor.DecisionID = decisionID
	s.donors[id] = donor
	if next == domain.ApprovalStatusRejected {
		s.releaseContact(donor)
	}
	return nil
}

func (s *InMemoryDonorRepository) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donor, ok := s.donors[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.donors, id)
	s.releaseContact(donor)
	return nil
}

func (s *InMemoryDonorRepository) Ping(context.Context) error {
	return nil
}

func (s *InMemoryDonorRepository) releaseContact(donor domain.Donor) {
	key := donor.ContactKey()
	if owner, ok := s.contacts[key]; ok && owner == donor.ID {
		delete(s.contacts, key)
	}
}

func sortNewestFirst(donors []domain.Donor) []domain.Donor {
	sort.Slice(donors, func(i, j int) bool {
		if !donors[i].CreatedAt.Equal(donors[j].CreatedAt) {
			return donors[i].CreatedAt.After(donors[j].CreatedAt)
		}
		return donors[i].ID > donors[j].ID
	})
	return donors
}

func page(donors []domain.Donor, q Query) []domain.Donor {
	if q.Offset >= len(donors) {
		return nil
	}
	end := q.Offset + q.Limit
	if end > len(donors) {
		end = len(donors)
	}
	return donors[q.Offset:end]
}
