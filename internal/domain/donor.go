package domain

import (
	"strings"
	"time"
)

// ApprovalStatus enumerates lifecycle states for donors.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// BloodGroup is one of the eight ABO/Rh groups.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

// BloodGroups lists the canonical groups in display order.
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

// DefaultCities is the city enumeration used when none is configured.
var DefaultCities = []string{
	"Mumbai",
	"Delhi",
	"Bangalore",
	"Chennai",
	"Kolkata",
	"Hyderabad",
	"Pune",
	"Ahmedabad",
}

// NoMedicalConditions marks a donor who declared no medical conditions.
const NoMedicalConditions = "none"

const (
	MinDonorAge = 18
	MaxDonorAge = 65
)

// Donor is the aggregate for registered blood donors.
type Donor struct {
	ID                    int64
	FullName              string
	Email                 string
	Phone                 string
	Age                   int
	BloodGroup            BloodGroup
	City                  string
	Address               string
	EmergencyContact      string
	MedicalConditions     string
	AgreeToTerms          bool
	AvailableForEmergency bool
	Status                ApprovalStatus
	// DecisionID identifies the decision that set Status. Empty while pending.
	DecisionID string
	CreatedAt  time.Time
}

// PubliclyVisible reports whether the donor may appear in public search.
func (d *Donor) PubliclyVisible() bool {
	return d.Status == ApprovalStatusApproved
}

// ContactKey identifies a donor registration for duplicate detection.
func (d *Donor) ContactKey() string {
	return strings.ToLower(d.Email) + "|" + d.Phone
}

// Valid reports whether b is one of the canonical groups.
func (b BloodGroup) Valid() bool {
	for _, bg := range BloodGroups {
		if bg == b {
			return true
		}
	}
	return false
}

// ParseBloodGroup returns the canonical group for s, ignoring case and surrounding space.
func ParseBloodGroup(s string) (BloodGroup, bool) {
	candidate := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !candidate.Valid() {
		return "", false
	}
	return candidate, true
}

// ParseApprovalStatus validates a status string.
func ParseApprovalStatus(s string) (ApprovalStatus, bool) {
	switch status := ApprovalStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return status, true
	}
	return "", false
}
