package calculator

import (
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
)

// AccountBalance folds an account's transaction history into a signed balance.
//
//   - Income into the account:   +amount
//   - Expense paid from it:      -amount (the full amount, split or not)
//   - Transfer into it:          +amount
//   - Transfer out of it:        -amount
//
// Transactions that do not touch accountID are ignored, so callers may pass a
// superset. The fold is a sum, so input order never matters. When asOf is set,
// transactions dated after it are skipped.
func AccountBalance(accountID string, txns []models.Transaction, asOf *time.Time) (models.Money, error) {
	var balance models.Money
	for _, txn := range txns {
		if asOf != nil && txn.OccurredAt().After(*asOf) {
			continue
		}
		delta, err := balanceDelta(accountID, txn)
		if err != nil {
			return 0, err
		}
		balance += delta
	}
	return balance, nil
}

func balanceDelta(accountID string, txn models.Transaction) (models.Money, error) {
	switch t := txn.(type) {
	case models.Income:
		if t.AccountID == accountID {
			return t.Amount, nil
		}
	case models.Expense:
		if t.AccountID == accountID {
			return -t.Amount, nil
		}
	case models.Transfer:
		var delta models.Money
		if t.ToAccountID == accountID {
			delta += t.Amount
		}
		if t.FromAccountID == accountID {
			delta -= t.Amount
		}
		return delta, nil
	default:
		return 0, apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("unsupported transaction type %T", txn))
	}
	return 0, nil
}
