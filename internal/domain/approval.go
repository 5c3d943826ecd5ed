package domain

import "strings"

// Decision is an operator verdict on a pending donor.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts the verb form and the status form posted by the admin page.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return DecisionApprove, true
	case "reject", "rejected":
		return DecisionReject, true
	}
	return "", false
}

// TargetStatus returns the status a pending donor moves to under d.
func (d Decision) TargetStatus() ApprovalStatus {
	if d == DecisionApprove {
		return ApprovalStatusApproved
	}
	return ApprovalStatusRejected
}

// Availability is the public-facing rendering of AvailableForEmergency.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
)

// ParseAvailability maps "available"/"busy" (any case) to the emergency flag.
func ParseAvailability(s string) (Availability, bool) {
	switch a := Availability(strings.ToLower(strings.TrimSpace(s))); a {
	case AvailabilityAvailable, AvailabilityBusy:
		return a, true
	}
	return "", false
}

// AvailableForEmergency reports the boolean the availability maps to.
func (a Availability) AvailableForEmergency() bool {
	return a == AvailabilityAvailable
}

// AvailabilityOf renders the donor's emergency flag.
func AvailabilityOf(d *Donor) Availability {
	if d.AvailableForEmergency {
		return AvailabilityAvailable
	}
	return AvailabilityBusy
}

var allowedTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalStatusPending:  {ApprovalStatusApproved, ApprovalStatusRejected},
	ApprovalStatusApproved: {},
	ApprovalStatusRejected: {},
}

// IsValidTransition reports whether current may move to next.
func IsValidTransition(current, next ApprovalStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status ApprovalStatus) bool {
	return len(allowedTransitions[status]) == 0
}
