package models

// ExpenseSplit is one participant's share of a shared expense.
// For a given ExpenseID the amounts always sum to the expense amount exactly.
type ExpenseSplit struct {
	// ExpenseID is the parent expense.
	ExpenseID string

	// UserID is the participant who owes this share to the payer.
	// A split whose UserID is the payer contributes nothing to group debts.
	UserID string

	// Amount is the share in minor units. Never negative; an even split of a
	// tiny amount can leave some participants with zero.
	Amount Money
}

// SplitTotal sums the split amounts.
func SplitTotal(splits []ExpenseSplit) Money {
	var total Money
	for _, s := range splits {
		total += s.Amount
	}
	return total
}
