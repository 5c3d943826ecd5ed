// Package validation turns loosely-typed registration input into donor records.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// Registration field names as they appear in requests.
const (
	FieldFullName              = "fullName"
	FieldEmail                 = "email"
	FieldPhone                 = "phone"
	FieldAge                   = "age"
	FieldBloodGroup            = "bloodGroup"
	FieldCity                  = "city"
	FieldAddress               = "address"
	FieldEmergencyContact      = "emergencyContact"
	FieldMedicalConditions     = "medicalConditions"
	FieldAgreeToTerms          = "agreeToTerms"
	FieldAvailableForEmergency = "availableForEmergency"
)

// FieldErrors maps a field name to a human-readable reason.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, fe[field]))
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// Details converts the errors into a DomainError details map.
func (fe FieldErrors) Details() map[string]any {
	details := make(map[string]any, len(fe))
	for field, reason := range fe {
		details[field] = reason
	}
	return details
}

// Validator validates registrations against the configured enumerations.
type Validator struct {
	cities map[string]struct{}
	rules  *validator.Validate
}

// New builds a Validator for the given city enumeration. An empty list
// falls back to domain.DefaultCities.
func New(cities []string) *Validator {
	if len(cities) == 0 {
		cities = domain.DefaultCities
	}
	set := make(map[string]struct{}, len(cities))
	for _, city := range cities {
		set[city] = struct{}{}
	}
	return &Validator{cities: set, rules: validator.New()}
}

// KnownCity reports whether city is part of the enumeration.
func (v *Validator) KnownCity(city string) bool {
	_, ok := v.cities[city]
	return ok
}

// MatchCity returns the configured spelling of city, ignoring case and
// surrounding space.
func (v *Validator) MatchCity(city string) (string, bool) {
	city = strings.TrimSpace(city)
	for known := range v.cities {
		if strings.EqualFold(known, city) {
			return known, true
		}
	}
	return "", false
}

// Validate checks every field independently and returns either a pending
// donor or the full set of failures. ID and CreatedAt are left for the store.
func (v *Validator) Validate(raw map[string]any) (*domain.Donor, FieldErrors) {
	errs := FieldErrors{}
	donor := &domain.Donor{Status: domain.ApprovalStatusPending}

	if name, ok := requiredString(raw, FieldFullName, "Full name", errs); ok {
		donor.FullName = name
	}

	if email, ok := requiredString(raw, FieldEmail, "Email", errs); ok {
		if v.rules.Var(email, "required,email") != nil {
			errs[FieldEmail] = "Email is invalid"
		} else {
			donor.Email = strings.ToLower(email)
		}
	}

	if _, ok := requiredString(raw, FieldPhone, "Phone number", errs); ok {
		// checked untrimmed: separators and padding are rejected, not stripped
		phone := raw[FieldPhone].(string)
		if !isTenDigits(phone) {
			errs[FieldPhone] = "Phone number must be 10 digits"
		} else {
			donor.Phone = phone
		}
	}

	if age, ok := requiredAge(raw, errs); ok {
		donor.Age = age
	}

	if group, ok := requiredString(raw, FieldBloodGroup, "Blood group", errs); ok {
		if bg := domain.BloodGroup(group); bg.Valid() {
			donor.BloodGroup = bg
		} else {
			errs[FieldBloodGroup] = "Blood group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
		}
	}

	if city, ok := requiredString(raw, FieldCity, "City", errs); ok {
		if v.KnownCity(city) {
			donor.City = city
		} else {
			errs[FieldCity] = "City is not supported"
		}
	}

	if address, ok := requiredString(raw, FieldAddress, "Address", errs); ok {
		donor.Address = address
	}

	if contact, ok := requiredString(raw, FieldEmergencyContact, "Emergency contact", errs); ok {
		donor.EmergencyContact = contact
	}

	donor.MedicalConditions = domain.NoMedicalConditions
	if val, present := raw[FieldMedicalConditions]; present && val != nil {
		switch s := val.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				donor.MedicalConditions = s
			}
		default:
			errs[FieldMedicalConditions] = "Medical conditions must be text"
		}
	}

	if agreed, err := requiredBool(raw, FieldAgreeToTerms, "Agreement to terms"); err != nil || !agreed {
		errs[FieldAgreeToTerms] = "You must agree to the terms and conditions"
	} else {
		donor.AgreeToTerms = true
	}

	if available, err := requiredBool(raw, FieldAvailableForEmergency, "Emergency availability"); err != nil {
		errs[FieldAvailableForEmergency] = err.Error()
	} else {
		donor.AvailableForEmergency = available
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return donor, nil
}

func requiredString(raw map[string]any, field, label string, errs FieldErrors) (string, bool) {
	val, present := raw[field]
	if !present || val == nil {
		errs[field] = label + " is required"
		return "", false
	}
	s, ok := val.(string)
	if !ok {
		errs[field] = label + " must be text"
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		errs[field] = label + " is required"
		return "", false
	}
	return s, true
}

func requiredAge(raw map[string]any, errs FieldErrors) (int, bool) {
	val, present := raw[FieldAge]
	if !present || val == nil {
		errs[FieldAge] = "Age is required"
		return 0, false
	}
	age, ok := toInt(val)
	if !ok {
		if s, isString := val.(string); isString && strings.TrimSpace(s) == "" {
			errs[FieldAge] = "Age is required"
		} else {
			errs[FieldAge] = "Age must be a whole number"
		}
		return 0, false
	}
	if age < domain.MinDonorAge || age > domain.MaxDonorAge {
		errs[FieldAge] = fmt.Sprintf("Age must be between %d and %d", domain.MinDonorAge, domain.MaxDonorAge)
		return 0, false
	}
	return age, true
}

func requiredBool(raw map[string]any, field, label string) (bool, error) {
	val, present := raw[field]
	if !present || val == nil {
		return false, fmt.Errorf("%s is required", label)
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be true or false", label)
	}
	return b, nil
}

func toInt(val any) (int, bool) {
	switch n := val.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
