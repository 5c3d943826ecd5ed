package dto

import (
	"time"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// DonorResponse is the public representation of a donor record.
type DonorResponse struct {
	ID                    int64                 `json:"id"`
	FullName              string                `json:"fullName"`
	Email                 string                `json:"email"`
	Phone                 string                `json:"phone"`
	Age                   int                   `json:"age"`
	BloodGroup            domain.BloodGroup     `json:"bloodGroup"`
	City                  string                `json:"city"`
	Address               string                `json:"address"`
	EmergencyContact      string                `json:"emergencyContact"`
	MedicalConditions     string                `json:"medicalConditions"`
	AgreeToTerms          bool                  `json:"agreeToTerms"`
	AvailableForEmergency bool                  `json:"availableForEmergency"`
	Availability          domain.Availability   `json:"availability"`
	Status                domain.ApprovalStatus `json:"status"`
	CreatedAt             time.Time             `json:"createdAt"`
}

// NewDonorResponse maps a domain donor.
func NewDonorResponse(d *domain.Donor) DonorResponse {
	return DonorResponse{
		ID:                    d.ID,
		FullName:              d.FullName,
		Email:                 d.Email,
		Phone:                 d.Phone,
		Age:                   d.Age,
		BloodGroup:            d.BloodGroup,
		City:                  d.City,
		Address:               d.Address,
		EmergencyContact:      d.EmergencyContact,
		MedicalConditions:     d.MedicalConditions,
		AgreeToTerms:          d.AgreeToTerms,
		AvailableForEmergency: d.AvailableForEmergency,
		Availability:          domain.AvailabilityOf(d),
		Status:                d.Status,
		CreatedAt:             d.CreatedAt,
	}
}

// NewDonorList maps a page of donors, never returning nil.
func NewDonorList(donors []domain.Donor) []DonorResponse {
	items := make([]DonorResponse, 0, len(donors))
	for i := range donors {
		items = append(items, NewDonorResponse(&donors[i]))
	}
	return items
}

// DonorSearchQuery binds search query parameters.
type DonorSearchQuery struct {
	BloodGroup   string `query:"bloodGroup"`
	City         string `query:"city"`
	Availability string `query:"availability"`
	Status       string `query:"status"`
	Limit        int    `query:"limit"`
	Offset       int    `query:"offset"`
}

// DecisionRequest payload for POST /api/admin/donors/:id/decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// LegacyApproveRequest payload for POST /api/donors/:id/approve.
type LegacyApproveRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// PageMeta describes the returned window.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
