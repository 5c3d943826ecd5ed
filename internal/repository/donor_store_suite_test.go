package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/suite"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// donorStoreSuite exercises the DonorRepository contract. Each backend embeds
// it and supplies newStore, which must return an empty store.
type donorStoreSuite struct {
	suite.Suite
	newStore func() DonorRepository
	store    DonorRepository
}

func (s *donorStoreSuite) SetupTest() {
	s.store = s.newStore()
}

func newTestDonor(n int) *domain.Donor {
	return &domain.Donor{
		FullName:              fmt.Sprintf("Donor %d", n),
		Email:                 fmt.Sprintf("donor%d@example.com", n),
		Phone:                 fmt.Sprintf("98%08d", n),
		Age:                   30,
		BloodGroup:            domain.BloodGroupOPos,
		City:                  "Mumbai",
		Address:               "1 Marine Drive",
		EmergencyContact:      "Family 9000000000",
		MedicalConditions:     domain.NoMedicalConditions,
		AgreeToTerms:          true,
		AvailableForEmergency: true,
		Status:                domain.ApprovalStatusPending,
	}
}

func (s *donorStoreSuite) insert(n int) *domain.Donor {
	donor := newTestDonor(n)
	s.Require().NoError(s.store.Insert(context.Background(), donor))
	return donor
}

func (s *donorStoreSuite) TestInsertAssignsIdentityAndTimestamp() {
	ctx := context.Background()
	first := s.insert(1)
	second := s.insert(2)

	s.NotZero(first.ID)
	s.Greater(second.ID, first.ID)
	s.False(first.CreatedAt.IsZero())

	got, err := s.store.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(domain.ApprovalStatusPending, got.Status)
	s.Equal(first.Email, got.Email)
	s.Equal(first.Phone, got.Phone)
	s.Equal(first.BloodGroup, got.BloodGroup)
	s.True(got.AgreeToTerms)
	s.True(got.AvailableForEmergency)
	s.WithinDuration(first.CreatedAt, got.CreatedAt, 0)
}

func (s *donorStoreSuite) TestInsertRejectsDuplicateContact() {
	ctx := context.Background()
	s.insert(1)

	again := newTestDonor(1)
	again.FullName = "Someone Else"
	s.Require().ErrorIs(s.store.Insert(ctx, again), ErrDuplicate)

	upper := newTestDonor(1)
	upper.Email = strings.ToUpper(upper.Email)
	s.Require().ErrorIs(s.store.Insert(ctx, upper), ErrDuplicate)

	samePhoneOtherEmail := newTestDonor(1)
	samePhoneOtherEmail.Email = "other@example.com"
	s.Require().NoError(s.store.Insert(ctx, samePhoneOtherEmail))
}

func (s *donorStoreSuite) TestRejectionReleasesContact() {
	ctx := context.Background()
	approved := s.insert(1)
	rejected := s.insert(2)

	s.Require().NoError(s.store.UpdateStatus(ctx, approved.ID, domain.ApprovalStatusPending, domain.ApprovalStatusApproved, "d-approve"))
	s.Require().NoError(s.store.UpdateStatus(ctx, rejected.ID, domain.ApprovalStatusPending, domain.ApprovalStatusRejected, "d-reject"))

	s.Require().ErrorIs(s.store.Insert(ctx, newTestDonor(1)), ErrDuplicate)
	s.Require().NoError(s.store.Insert(ctx, newTestDonor(2)))

	old, err := s.store.Get(ctx, rejected.ID)
	s.Require().NoError(err)
	s.Equal(domain.ApprovalStatusRejected, old.Status)
}

func (s *donorStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), 424242)
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *donorStoreSuite) TestUpdateStatusCompareAndSet() {
	ctx := context.Background()
	donor := s.insert(1)

	s.Require().ErrorIs(
		s.store.UpdateStatus(ctx, donor.ID, domain.ApprovalStatusApproved, domain.ApprovalStatusRejected, "d-0"),
		ErrConflict)
	s.Require().NoError(s.store.UpdateStatus(ctx, donor.ID, domain.ApprovalStatusPending, domain.ApprovalStatusApproved, "d-1"))
	s.Require().ErrorIs(
		s.store.UpdateStatus(ctx, donor.ID, domain.ApprovalStatusPending, domain.ApprovalStatusRejected, "d-2"),
		ErrConflict)
	s.Require().ErrorIs(
		s.store.UpdateStatus(ctx, 424242, domain.ApprovalStatusPending, domain.ApprovalStatusApproved, "d-3"),
		ErrNotFound)

	got, err := s.store.Get(ctx, donor.ID)
	s.Require().NoError(err)
	s.Equal(domain.ApprovalStatusApproved, got.Status)
	s.Equal("d-1", got.DecisionID)
	s.Equal(donor.FullName, got.FullName)
	s.WithinDuration(donor.CreatedAt, got.CreatedAt, 0)
}

func (s *donorStoreSuite) TestQueryFiltersOrdersAndPages() {
	ctx := context.Background()
	var ids []int64
	for i := 1; i <= 5; i++ {
		donor := newTestDonor(i)
		if i%2 == 0 {
			donor.City = "Delhi"
			donor.AvailableForEmergency = false
		}
		s.Require().NoError(s.store.Insert(ctx, donor))
		ids = append(ids, donor.ID)
	}

	s.Run("newest first", func() {
		donors := s.collect(Query{})
		s.Require().Len(donors, 5)
		for i, donor := range donors {
			s.Equal(ids[len(ids)-1-i], donor.ID)
		}
	})

	s.Run("predicate", func() {
		busy := domain.AvailabilityBusy
		delhi := "Delhi"
		donors := s.collect(Query{Predicate: BuildQuery(SearchFilters{City: &delhi, Availability: &busy})})
		s.Require().Len(donors, 2)
		s.Equal(ids[3], donors[0].ID)
		s.Equal(ids[1], donors[1].ID)
	})

	s.Run("status", func() {
		s.Require().NoError(s.store.UpdateStatus(ctx, ids[0], domain.ApprovalStatusPending, domain.ApprovalStatusApproved, "d-first"))
		donors := s.collect(Query{Predicate: Predicate{}.WithStatus(domain.ApprovalStatusApproved)})
		s.Require().Len(donors, 1)
		s.Equal(ids[0], donors[0].ID)
	})

	s.Run("page window", func() {
		donors := s.collect(Query{Limit: 2, Offset: 1})
		s.Require().Len(donors, 2)
		s.Equal(ids[3], donors[0].ID)
		s.Equal(ids[2], donors[1].ID)

		s.Empty(s.collect(Query{Offset: 10}))
	})
}

func (s *donorStoreSuite) TestQueryCursorIsOneShot() {
	s.insert(1)
	cur, err := s.store.Query(context.Background(), Query{})
	s.Require().NoError(err)
	defer cur.Close()

	s.True(cur.Next())
	s.NotNil(cur.Donor())
	s.False(cur.Next())
	s.False(cur.Next())
	s.NoError(cur.Err())
}

func (s *donorStoreSuite) TestDelete() {
	ctx := context.Background()
	donor := s.insert(1)

	s.Require().NoError(s.store.Delete(ctx, donor.ID))
	_, err := s.store.Get(ctx, donor.ID)
	s.Require().ErrorIs(err, ErrNotFound)
	s.Require().ErrorIs(s.store.Delete(ctx, donor.ID), ErrNotFound)
	s.Empty(s.collect(Query{}))

	// the contact pair is free again
	s.Require().NoError(s.store.Insert(ctx, newTestDonor(1)))
}

// TestConcurrentDecisions verifies that racing decisions on one pending
// donor produce exactly one winner.
func (s *donorStoreSuite) TestConcurrentDecisions() {
	ctx := context.Background()
	donor := s.insert(1)
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		next := domain.ApprovalStatusApproved
		if i%2 == 1 {
			next = domain.ApprovalStatusRejected
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.UpdateStatus(ctx, donor.ID, domain.ApprovalStatusPending, next, fmt.Sprintf("d-%d", i))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one decision should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	got, err := s.store.Get(ctx, donor.ID)
	s.Require().NoError(err)
	s.True(domain.IsTerminal(got.Status))
	s.True(strings.HasPrefix(got.DecisionID, "d-"))
}

func (s *donorStoreSuite) TestPing() {
	s.NoError(s.store.Ping(context.Background()))
}

func (s *donorStoreSuite) collect(q Query) []domain.Donor {
	cur, err := s.store.Query(context.Background(), q)
	s.Require().NoError(err)
	donors, err := Collect(cur)
	s.Require().NoError(err)
	return donors
}
