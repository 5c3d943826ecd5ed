package repository

import (
	"fmt"
	"strings"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// Field names a filterable donor column.
type Field string

const (
	FieldBloodGroup            Field = "blood_group"
	FieldCity                  Field = "city"
	FieldAvailableForEmergency Field = "available_for_emergency"
	FieldStatus                Field = "status"
)

// OrderBy is the fixed result ordering, newest first.
const OrderBy = "created_at DESC, id DESC"

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// SearchFilters captures the optional search criteria. Empty or nil means
// the filter is absent.
type SearchFilters struct {
	BloodGroup   *domain.BloodGroup
	City         *string
	Availability *domain.Availability
}

// Condition is a single equality test that carries its own bound value.
type Condition struct {
	Field Field
	Value any
}

// Predicate is an ordered conjunction of conditions.
type Predicate struct {
	conditions []Condition
}

// BuildQuery turns filters into a predicate with one condition per present
// filter, in blood group, city, availability order.
func BuildQuery(filters SearchFilters) Predicate {
	var p Predicate
	if filters.BloodGroup != nil {
		p = p.where(FieldBloodGroup, string(*filters.BloodGroup))
	}
	if filters.City != nil && strings.TrimSpace(*filters.City) != "" {
		p = p.where(FieldCity, strings.TrimSpace(*filters.City))
	}
	if filters.Availability != nil {
		p = p.where(FieldAvailableForEmergency, filters.Availability.AvailableForEmergency())
	}
	return p
}

// WithStatus returns a copy of p restricted to donors in status.
func (p Predicate) WithStatus(status domain.ApprovalStatus) Predicate {
	return p.where(FieldStatus, string(status))
}

func (p Predicate) where(field Field, value any) Predicate {
	conditions := make([]Condition, len(p.conditions), len(p.conditions)+1)
	copy(conditions, p.conditions)
	return Predicate{conditions: append(conditions, Condition{Field: field, Value: value})}
}

// Conditions returns the conditions in append order.
func (p Predicate) Conditions() []Condition {
	out := make([]Condition, len(p.conditions))
	copy(out, p.conditions)
	return out
}

// Empty reports whether the predicate matches every donor.
func (p Predicate) Empty() bool {
	return len(p.conditions) == 0
}

// SQL renders the WHERE clause with placeholders numbered from offset+1.
// An empty predicate renders an empty string and no arguments.
func (p Predicate) SQL(offset int) (string, []any) {
	if len(p.conditions) == 0 {
		return "", nil
	}
	clauses := make([]string, len(p.conditions))
	args := make([]any, len(p.conditions))
	for i, cond := range p.conditions {
		clauses[i] = fmt.Sprintf("%s = $%d", cond.Field, offset+i+1)
		args[i] = cond.Value
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// Match evaluates the predicate against a donor in memory.
func (p Predicate) Match(d *domain.Donor) bool {
	for _, cond := range p.conditions {
		if !matchCondition(cond, d) {
			return false
		}
	}
	return true
}

// Key returns a stable textual form of the predicate for caching.
func (p Predicate) Key() string {
	parts := make([]string, len(p.conditions))
	for i, cond := range p.conditions {
		parts[i] = fmt.Sprintf("%s=%v", cond.Field, cond.Value)
	}
	return strings.Join(parts, "&")
}

func matchCondition(cond Condition, d *domain.Donor) bool {
	switch cond.Field {
	case FieldBloodGroup:
		return cond.Value == string(d.BloodGroup)
	case FieldCity:
		return cond.Value == d.City
	case FieldAvailableForEmergency:
		return cond.Value == d.AvailableForEmergency
	case FieldStatus:
		return cond.Value == string(d.Status)
	}
	return false
}

// Query is a predicate plus a page window.
type Query struct {
	Predicate Predicate
	Limit     int
	Offset    int
}

// Normalize clamps the page window to the supported range.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
