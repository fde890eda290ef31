package enums

import "fmt"

// MissionType classifies which user action feeds a mission's progress.
type MissionType string

const (
	MissionTypeOrdersCount MissionType = "orders_count"
	MissionTypeSpendAmount MissionType = "spend_amount"
	MissionTypePurchase    MissionType = "purchase"
	MissionTypeReview      MissionType = "review"
)

var validMissionTypes = []MissionType{
	MissionTypeOrdersCount,
	MissionTypeSpendAmount,
	MissionTypePurchase,
	MissionTypeReview,
}

// String implements fmt.Stringer.
func (m MissionType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MissionType.
func (m MissionType) IsValid() bool {
	for _, candidate := range validMissionTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMissionType converts raw input into a MissionType.
func ParseMissionType(value string) (MissionType, error) {
	for _, candidate := range validMissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mission type %q", value)
}
