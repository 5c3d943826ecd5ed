package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

func validInput() map[string]any {
	return map[string]any{
		FieldFullName:              "Asha Patil",
		FieldEmail:                 "Asha@Example.com",
		FieldPhone:                 "9876543210",
		FieldAge:                   float64(29),
		FieldBloodGroup:            "A+",
		FieldCity:                  "Pune",
		FieldAddress:               "12 FC Road",
		FieldEmergencyContact:      "Ravi 9123456780",
		FieldAgreeToTerms:          true,
		FieldAvailableForEmergency: true,
	}
}

func TestValidate_AcceptsCompleteRegistration(t *testing.T) {
	donor, errs := New(nil).Validate(validInput())
	require.Empty(t, errs)
	require.NotNil(t, donor)

	assert.Equal(t, "Asha Patil", donor.FullName)
	assert.Equal(t, "asha@example.com", donor.Email)
	assert.Equal(t, "9876543210", donor.Phone)
	assert.Equal(t, 29, donor.Age)
	assert.Equal(t, domain.BloodGroupAPos, donor.BloodGroup)
	assert.Equal(t, "Pune", donor.City)
	assert.True(t, donor.AgreeToTerms)
	assert.True(t, donor.AvailableForEmergency)
	assert.Equal(t, domain.ApprovalStatusPending, donor.Status)
	assert.Equal(t, domain.NoMedicalConditions, donor.MedicalConditions)
	assert.Zero(t, donor.ID)
	assert.True(t, donor.CreatedAt.IsZero(), "timestamp belongs to the store")
}

func TestValidate_IgnoresCallerSuppliedStatus(t *testing.T) {
	in := validInput()
	in["status"] = "approved"

	donor, errs := New(nil).Validate(in)
	require.Empty(t, errs)
	assert.Equal(t, domain.ApprovalStatusPending, donor.Status)
}

func TestValidate_MedicalConditions(t *testing.T) {
	cases := []struct {
		name  string
		value any
		set   bool
		want  string
	}{
		{name: "absent", set: false, want: domain.NoMedicalConditions},
		{name: "null", value: nil, set: true, want: domain.NoMedicalConditions},
		{name: "blank", value: "   ", set: true, want: domain.NoMedicalConditions},
		{name: "verbatim", value: "  mild asthma ", set: true, want: "  mild asthma "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			if tc.set {
				in[FieldMedicalConditions] = tc.value
			}
			donor, errs := New(nil).Validate(in)
			require.Empty(t, errs)
			assert.Equal(t, tc.want, donor.MedicalConditions)
		})
	}
}

func TestValidate_AgeEncodings(t *testing.T) {
	for _, age := range []any{30, int64(30), float64(30), json.Number("30"), "30", " 30 "} {
		in := validInput()
		in[FieldAge] = age
		donor, errs := New(nil).Validate(in)
		require.Empty(t, errs, "age %#v", age)
		assert.Equal(t, 30, donor.Age)
	}
}

func TestValidate_FieldFailures(t *testing.T) {
	cases := []struct {
		name   string
		field  string
		value  any
		remove bool
		reason string
	}{
		{name: "missing name", field: FieldFullName, remove: true, reason: "Full name is required"},
		{name: "blank name", field: FieldFullName, value: "  ", reason: "Full name is required"},
		{name: "bad email", field: FieldEmail, value: "not-an-email", reason: "Email is invalid"},
		{name: "phone with separators", field: FieldPhone, value: "98765-43210", reason: "Phone number must be 10 digits"},
		{name: "short phone", field: FieldPhone, value: "987654321", reason: "Phone number must be 10 digits"},
		{name: "padded phone", field: FieldPhone, value: " 9876543210", reason: "Phone number must be 10 digits"},
		{name: "numeric phone", field: FieldPhone, value: float64(9876543210), reason: "Phone number must be text"},
		{name: "too young", field: FieldAge, value: float64(17), reason: "Age must be between 18 and 65"},
		{name: "too old", field: FieldAge, value: float64(66), reason: "Age must be between 18 and 65"},
		{name: "fractional age", field: FieldAge, value: 30.5, reason: "Age must be a whole number"},
		{name: "garbage age", field: FieldAge, value: "thirty", reason: "Age must be a whole number"},
		{name: "unknown group", field: FieldBloodGroup, value: "C+", reason: "Blood group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"},
		{name: "unknown city", field: FieldCity, value: "Atlantis", reason: "City is not supported"},
		{name: "terms false", field: FieldAgreeToTerms, value: false, reason: "You must agree to the terms and conditions"},
		{name: "terms absent", field: FieldAgreeToTerms, remove: true, reason: "You must agree to the terms and conditions"},
		{name: "terms as string", field: FieldAgreeToTerms, value: "true", reason: "You must agree to the terms and conditions"},
		{name: "availability absent", field: FieldAvailableForEmergency, remove: true, reason: "Emergency availability is required"},
		{name: "availability as string", field: FieldAvailableForEmergency, value: "yes", reason: "Emergency availability must be true or false"},
		{name: "conditions not text", field: FieldMedicalConditions, value: 42, reason: "Medical conditions must be text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			if tc.remove {
				delete(in, tc.field)
			} else {
				in[tc.field] = tc.value
			}
			donor, errs := New(nil).Validate(in)
			assert.Nil(t, donor)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.reason, errs[tc.field])
		})
	}
}

func TestValidate_ReportsEveryFailure(t *testing.T) {
	_, errs := New(nil).Validate(map[string]any{})
	required := []string{
		FieldFullName, FieldEmail, FieldPhone, FieldAge, FieldBloodGroup, FieldCity,
		FieldAddress, FieldEmergencyContact, FieldAgreeToTerms, FieldAvailableForEmergency,
	}
	require.Len(t, errs, len(required))
	for _, field := range required {
		assert.Contains(t, errs, field)
	}
	assert.NotContains(t, errs, FieldMedicalConditions)
}

func TestValidate_ConfiguredCities(t *testing.T) {
	v := New([]string{"Nagpur"})

	in := validInput()
	_, errs := v.Validate(in)
	assert.Equal(t, "City is not supported", errs[FieldCity])

	in[FieldCity] = "Nagpur"
	donor, errs := v.Validate(in)
	require.Empty(t, errs)
	assert.Equal(t, "Nagpur", donor.City)
}

func TestFieldErrors_ErrorIsSorted(t *testing.T) {
	errs := FieldErrors{"phone": "bad", "age": "worse"}
	assert.Equal(t, "invalid registration: age: worse; phone: bad", errs.Error())
	assert.Equal(t, map[string]any{"phone": "bad", "age": "worse"}, errs.Details())
}

// Corrupting any subset of fields yields exactly that subset of errors.
func TestValidate_CorruptionProperty(t *testing.T) {
	corruptions := map[string]any{
		FieldFullName:              "",
		FieldEmail:                 "nope",
		FieldPhone:                 "12345",
		FieldAge:                   float64(99),
		FieldBloodGroup:            "Z",
		FieldCity:                  "Gotham",
		FieldAddress:               nil,
		FieldEmergencyContact:      true,
		FieldAgreeToTerms:          false,
		FieldAvailableForEmergency: "maybe",
		FieldMedicalConditions:     []string{"x"},
	}
	fields := make([]string, 0, len(corruptions))
	for field := range corruptions {
		fields = append(fields, field)
	}
	v := New(nil)

	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfDistinct(rapid.SampledFrom(fields), rapid.ID[string]).Draw(t, "fields")
		in := validInput()
		for _, field := range picked {
			in[field] = corruptions[field]
		}

		donor, errs := v.Validate(in)
		if len(picked) == 0 {
			if len(errs) != 0 || donor == nil {
				t.Fatalf("expected success, got %v", errs)
			}
			return
		}
		if donor != nil {
			t.Fatalf("expected failure for %v", picked)
		}
		if len(errs) != len(picked) {
			t.Fatalf("expected %d errors for %v, got %v", len(picked), picked, errs)
		}
		for _, field := range picked {
			if _, ok := errs[field]; !ok {
				t.Fatalf("missing error for %s in %v", field, errs)
			}
		}
	})
}
