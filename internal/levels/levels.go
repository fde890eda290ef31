// Package levels maps accumulated experience points onto user levels.
//
// Leveling is a strictly increasing step function: moving from level n to
// n+1 costs 100 + (n-1)*50 XP, so 1->2 costs 100, 2->3 costs 150, 3->4
// costs 200 and so on. All functions here are pure.
package levels

// StepCost returns the XP required to move from the given level to the next.
func StepCost(level int) int {
	if level < 1 {
		level = 1
	}
	return 100 + (level-1)*50
}

// LevelForXP walks the step sequence until the remaining XP no longer
// covers the next step. Zero XP is level 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	level := 1
	remaining := xp
	for cost := StepCost(level); remaining >= cost; cost = StepCost(level) {
		remaining -= cost
		level++
	}
	return level
}

// TotalXPForLevel returns the cumulative XP needed to have just reached
// the given level from zero.
func TotalXPForLevel(level int) int {
	total := 0
	for l := 1; l < level; l++ {
		total += StepCost(l)
	}
	return total
}

// XPToNextLevel returns how much more XP the user needs to level up.
func XPToNextLevel(xp int) int {
	level := LevelForXP(xp)
	return TotalXPForLevel(level) + StepCost(level) - xp
}

// DiscountPercent returns the level-based checkout discount: one percent
// per level, capped.
func DiscountPercent(level, cap int) int {
	if level < 0 {
		return 0
	}
	if cap > 0 && level > cap {
		return cap
	}
	return level
}
