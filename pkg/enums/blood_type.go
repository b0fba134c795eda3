package enums

import "fmt"

// BloodType is the ABO/Rh blood group on a patient profile.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

var validBloodTypes = []BloodType{
	BloodTypeAPos,
	BloodTypeANeg,
	BloodTypeBPos,
	BloodTypeBNeg,
	BloodTypeABPos,
	BloodTypeABNeg,
	BloodTypeOPos,
	BloodTypeONeg,
}

// String implements fmt.Stringer.
func (b BloodType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BloodType.
func (b BloodType) IsValid() bool {
	for _, candidate := range validBloodTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBloodType converts raw input into a BloodType.
func ParseBloodType(value string) (BloodType, error) {
	for _, candidate := range validBloodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid blood type %q", value)
}
