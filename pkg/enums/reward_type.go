package enums

import "fmt"

// RewardType is the currency a mission, level reward, or wheel prize pays out in.
type RewardType string

const (
	RewardTypeCoins RewardType = "coins"
	RewardTypeXP    RewardType = "xp"
	RewardTypeSpin  RewardType = "spin"
)

var validRewardTypes = []RewardType{RewardTypeCoins, RewardTypeXP, RewardTypeSpin}

// String implements fmt.Stringer.
func (r RewardType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RewardType.
func (r RewardType) IsValid() bool {
	for _, candidate := range validRewardTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRewardType converts raw input into a RewardType.
func ParseRewardType(value string) (RewardType, error) {
	for _, candidate := range validRewardTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward type %q", value)
}
