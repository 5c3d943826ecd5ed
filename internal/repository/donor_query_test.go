package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestBuildQuery_EmptyFiltersRenderNoWhere(t *testing.T) {
	p := BuildQuery(SearchFilters{})
	assert.True(t, p.Empty())

	where, args := p.SQL(0)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildQuery_BlankCityIsAbsent(t *testing.T) {
	p := BuildQuery(SearchFilters{City: ptr("  ")})
	assert.True(t, p.Empty())
}

func TestBuildQuery_AllFilters(t *testing.T) {
	p := BuildQuery(SearchFilters{
		BloodGroup:   ptr(domain.BloodGroupONeg),
		City:         ptr("Pune"),
		Availability: ptr(domain.AvailabilityBusy),
	})

	where, args := p.SQL(0)
	assert.Equal(t, "WHERE blood_group = $1 AND city = $2 AND available_for_emergency = $3", where)
	assert.Equal(t, []any{"O-", "Pune", false}, args)
}

func TestPredicate_WithStatusAppendsLast(t *testing.T) {
	p := BuildQuery(SearchFilters{City: ptr("Delhi")}).WithStatus(domain.ApprovalStatusApproved)

	where, args := p.SQL(0)
	assert.Equal(t, "WHERE city = $1 AND status = $2", where)
	assert.Equal(t, []any{"Delhi", "approved"}, args)
}

func TestPredicate_SQLHonoursOffset(t *testing.T) {
	p := BuildQuery(SearchFilters{BloodGroup: ptr(domain.BloodGroupAPos)})

	where, args := p.SQL(3)
	assert.Equal(t, "WHERE blood_group = $4", where)
	assert.Equal(t, []any{"A+"}, args)
}

func TestPredicate_WithStatusDoesNotMutateReceiver(t *testing.T) {
	base := BuildQuery(SearchFilters{City: ptr("Mumbai")})
	_ = base.WithStatus(domain.ApprovalStatusApproved)
	_ = base.WithStatus(domain.ApprovalStatusPending)

	require.Len(t, base.Conditions(), 1)
	assert.Equal(t, FieldCity, base.Conditions()[0].Field)
}

func TestPredicate_Match(t *testing.T) {
	donor := &domain.Donor{
		BloodGroup:            domain.BloodGroupBPos,
		City:                  "Chennai",
		AvailableForEmergency: true,
		Status:                domain.ApprovalStatusApproved,
	}

	assert.True(t, Predicate{}.Match(donor))
	assert.True(t, BuildQuery(SearchFilters{
		BloodGroup:   ptr(domain.BloodGroupBPos),
		City:         ptr("Chennai"),
		Availability: ptr(domain.AvailabilityAvailable),
	}).WithStatus(domain.ApprovalStatusApproved).Match(donor))

	assert.False(t, BuildQuery(SearchFilters{Availability: ptr(domain.AvailabilityBusy)}).Match(donor))
	assert.False(t, BuildQuery(SearchFilters{City: ptr("chennai")}).Match(donor))
	assert.False(t, Predicate{}.WithStatus(domain.ApprovalStatusPending).Match(donor))
}

func TestQuery_Normalize(t *testing.T) {
	assert.Equal(t, Query{Limit: DefaultLimit}, Query{}.Normalize())
	assert.Equal(t, Query{Limit: MaxLimit, Offset: 0}, Query{Limit: 10_000, Offset: -4}.Normalize())
	assert.Equal(t, Query{Limit: 7, Offset: 14}, Query{Limit: 7, Offset: 14}.Normalize())
}

// Placeholders and arguments stay in lockstep for any filter combination.
func TestBuildQuery_PlaceholderArgumentLockstep(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var filters SearchFilters
		want := 0
		if rapid.Bool().Draw(t, "hasGroup") {
			filters.BloodGroup = ptr(rapid.SampledFrom(domain.BloodGroups).Draw(t, "group"))
			want++
		}
		if rapid.Bool().Draw(t, "hasCity") {
			filters.City = ptr(rapid.SampledFrom(domain.DefaultCities).Draw(t, "city"))
			want++
		}
		if rapid.Bool().Draw(t, "hasAvailability") {
			filters.Availability = ptr(rapid.SampledFrom([]domain.Availability{
				domain.AvailabilityAvailable, domain.AvailabilityBusy,
			}).Draw(t, "availability"))
			want++
		}
		offset := rapid.IntRange(0, 5).Draw(t, "offset")

		where, args := BuildQuery(filters).SQL(offset)
		if len(args) != want {
			t.Fatalf("expected %d args, got %d", want, len(args))
		}
		for i := range args {
			placeholder := fmt.Sprintf("$%d", offset+i+1)
			if !containsToken(where, placeholder) {
				t.Fatalf("placeholder %s missing from %q", placeholder, where)
			}
		}
		if containsToken(where, fmt.Sprintf("$%d", offset+len(args)+1)) {
			t.Fatalf("extra placeholder in %q", where)
		}
	})
}

func containsToken(s, token string) bool {
	for i := 0; i+len(token) <= len(s); i++ {
		if s[i:i+len(token)] != token {
			continue
		}
		end := i + len(token)
		if end == len(s) || s[end] == ' ' {
			return true
		}
	}
	return false
}
