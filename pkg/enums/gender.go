package enums

import "fmt"

// Gender is the self-reported gender on a patient profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

var validGenders = []Gender{GenderMale, GenderFemale, GenderOther}

// String implements fmt.Stringer.
func (g Gender) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gender.
func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender converts raw input into a Gender.
func ParseGender(value string) (Gender, error) {
	for _, candidate := range validGenders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}
