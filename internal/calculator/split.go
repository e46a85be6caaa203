package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
)

// Share is one participant's part of an expense.
type Share struct {
	UserID string
	Amount models.Money
}

// AllocateEven splits total evenly among participants in integer cents.
//
// Algorithm:
//   - share = floor(total / n)
//   - the remainder r = total - share*n is handed out one cent at a time to the
//     first r participants in ascending user-id order
//
// The shares always sum to total exactly and no two shares differ by more than
// one cent. The result is sorted by user ID regardless of input order.
func AllocateEven(total models.Money, participants []string) ([]Share, error) {
	if err := checkParticipants(participants); err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNonPositiveAmount,
			fmt.Sprintf("expense amount must be greater than zero, got %s", total))
	}

	ordered := append([]string(nil), participants...)
	sort.Strings(ordered)

	n := models.Money(len(ordered))
	base := total / n
	remainder := total - base*n

	shares := make([]Share, len(ordered))
	for i, userID := range ordered {
		amount := base
		if models.Money(i) < remainder {
			amount++
		}
		shares[i] = Share{UserID: userID, Amount: amount}
	}
	return shares, nil
}

// AllocateExact accepts caller-supplied shares verbatim after checking that
// every share is positive, no participant repeats, and the shares sum to total.
func AllocateExact(total models.Money, shares []Share) ([]Share, error) {
	ids := make([]string, len(shares))
	for i, s := range shares {
		ids[i] = s.UserID
	}
	if err := checkParticipants(ids); err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNonPositiveAmount,
			fmt.Sprintf("expense amount must be greater than zero, got %s", total))
	}

	var sum models.Money
	for _, s := range shares {
		if s.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrNonPositiveAmount,
				fmt.Sprintf("share for %s must be greater than zero, got %s", s.UserID, s.Amount))
		}
		var ok bool
		if sum, ok = sum.Add(s.Amount); !ok {
			return nil, apperrors.WithMessage(apperrors.ErrSplitSumMismatch,
				fmt.Sprintf("split amounts overflow, expected %s", total))
		}
	}
	if sum != total {
		return nil, SplitSumMismatch(total, sum)
	}

	out := append([]Share(nil), shares...)
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// SplitSumMismatch reports shares that do not add up to the expense total.
func SplitSumMismatch(expected, actual models.Money) error {
	return apperrors.WithMessage(apperrors.ErrSplitSumMismatch,
		fmt.Sprintf("split amounts total %s, expected %s", actual, expected))
}

// ToSplits attaches shares to an expense.
func ToSplits(expenseID string, shares []Share) []models.ExpenseSplit {
	splits := make([]models.ExpenseSplit, len(shares))
	for i, s := range shares {
		splits[i] = models.ExpenseSplit{ExpenseID: expenseID, UserID: s.UserID, Amount: s.Amount}
	}
	return splits
}

func checkParticipants(participants []string) error {
	if len(participants) == 0 {
		return apperrors.ErrEmptyParticipants
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "participant id must not be empty")
		}
		if seen[p] {
			return apperrors.WithMessage(apperrors.ErrDuplicateParticipant,
				fmt.Sprintf("participant %s listed more than once", p))
		}
		seen[p] = true
	}
	return nil
}
