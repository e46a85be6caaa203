package calculator

import "github.com/mmynk/splitledger/internal/models"

// settledBelow is the rounding tolerance: a position smaller than one minor
// unit in magnitude counts as settled. Positions are exact integers, so only
// zero qualifies.
const settledBelow models.Money = 1

// IsSettled reports whether a position is within rounding tolerance of zero.
func IsSettled(pos models.Money) bool {
	return pos.Abs() < settledBelow
}

// YouOwe is the "you owe" figure for a position seen from the current user.
func YouOwe(pos models.Money) models.Money {
	if IsSettled(pos) || pos > 0 {
		return 0
	}
	return -pos
}

// OwedToYou is the "owed to you" figure for a position seen from the current user.
func OwedToYou(pos models.Money) models.Money {
	if IsSettled(pos) || pos < 0 {
		return 0
	}
	return pos
}
