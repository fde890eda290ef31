package enums

import "fmt"

// TopUpStatus tracks a manual top-up request through staff review.
type TopUpStatus string

const (
	TopUpStatusPending  TopUpStatus = "pending"
	TopUpStatusApproved TopUpStatus = "approved"
	TopUpStatusRejected TopUpStatus = "rejected"
)

var validTopUpStatuses = []TopUpStatus{TopUpStatusPending, TopUpStatusApproved, TopUpStatusRejected}

// String implements fmt.Stringer.
func (s TopUpStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TopUpStatus.
func (s TopUpStatus) IsValid() bool {
	for _, candidate := range validTopUpStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTopUpStatus converts raw input into a TopUpStatus.
func ParseTopUpStatus(value string) (TopUpStatus, error) {
	for _, candidate := range validTopUpStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid top-up status %q", value)
}
