package models

// Settlement represents a real-world payment between group members that
// reduces a modeled debt. Settlements are never edited; a correction is a new,
// offsetting settlement.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string

	// Amount is the payment amount. Always positive.
	Amount Money

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string

	// IdempotencyKey deduplicates client retries within a group.
	IdempotencyKey string
}
