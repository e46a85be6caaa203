package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
)

// CreateIncome persists an income credited to one account.
func (s *SQLiteStore) CreateIncome(ctx context.Context, income *models.Income) error {
	if income.ID == "" {
		income.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if income.CreatedAt == 0 {
		income.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, kind, account_id, amount_cents, occurred_at, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		income.ID, models.KindIncome, income.AccountID, income.Amount.Cents(),
		income.Date.Unix(), income.Description, income.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert income: %w", err)
	}
	return nil
}

// CreateTransfer persists a transfer between two accounts.
func (s *SQLiteStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, kind, account_id, to_account_id, amount_cents, occurred_at, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID, models.KindTransfer, transfer.FromAccountID, transfer.ToAccountID,
		transfer.Amount.Cents(), transfer.Date.Unix(), transfer.Description, transfer.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

// CreateExpense persists an expense and its splits atomically.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now
	expense.Version = 1

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, kind, account_id, amount_cents, occurred_at, description, is_split, group_id, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, models.KindExpense, expense.AccountID, expense.Amount.Cents(),
			expense.Date.Unix(), expense.Description, boolToInt(expense.IsSplit),
			nullString(expense.GroupID), expense.Version, expense.CreatedAt, expense.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		return insertSplits(ctx, tx, expense)
	})
}

// ReplaceExpense overwrites an expense and regenerates its splits atomically.
func (s *SQLiteStore) ReplaceExpense(ctx context.Context, expense *models.Expense, expectedVersion int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			"SELECT version FROM transactions WHERE id = ? AND kind = ?",
			expense.ID, models.KindExpense,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.WithMessage(apperrors.ErrExpenseNotFound,
				fmt.Sprintf("expense not found: %s", expense.ID))
		}
		if err != nil {
			return fmt.Errorf("failed to get expense version: %w", err)
		}
		if expectedVersion != 0 && expectedVersion != current {
			return apperrors.WithMessage(apperrors.ErrStaleExpense,
				fmt.Sprintf("expense %s is at version %d, expected %d", expense.ID, current, expectedVersion))
		}

		expense.Version = current + 1
		expense.UpdatedAt = time.Now().Unix()
		_, err = tx.ExecContext(ctx,
			`UPDATE transactions
			 SET account_id = ?, amount_cents = ?, occurred_at = ?, description = ?,
			     is_split = ?, group_id = ?, version = ?, updated_at = ?
			 WHERE id = ?`,
			expense.AccountID, expense.Amount.Cents(), expense.Date.Unix(), expense.Description,
			boolToInt(expense.IsSplit), nullString(expense.GroupID), expense.Version, expense.UpdatedAt,
			expense.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expense.ID); err != nil {
			return fmt.Errorf("failed to delete old splits: %w", err)
		}
		return insertSplits(ctx, tx, expense)
	})
}

// insertSplits writes the expense's splits and re-reads their total. A split
// expense whose stored shares do not add up is never committed.
func insertSplits(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	if !expense.IsSplit {
		if len(expense.Splits) > 0 {
			return apperrors.Wrap(apperrors.ErrSplitInvariant,
				fmt.Errorf("expense %s is not split but has %d splits", expense.ID, len(expense.Splits)))
		}
		return nil
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		split.ExpenseID = expense.ID
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id, amount_cents) VALUES (?, ?, ?)",
			expense.ID, split.UserID, split.Amount.Cents(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	var stored int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM expense_splits WHERE expense_id = ?",
		expense.ID,
	).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to verify split total: %w", err)
	}
	if models.Money(stored) != expense.Amount {
		return apperrors.Wrap(apperrors.ErrSplitInvariant,
			fmt.Errorf("expense %s: stored splits total %s, expense amount %s",
				expense.ID, models.Money(stored), expense.Amount))
	}
	return nil
}

const expenseColumns = `t.id, t.account_id, t.amount_cents, t.occurred_at, t.description,
	t.is_split, COALESCE(t.group_id, ''), t.version, t.created_at, t.updated_at, a.owner_id`

func scanExpense(scan func(dest ...any) error) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount, occurred int64
	err := scan(&expense.ID, &expense.AccountID, &amount, &occurred, &expense.Description,
		&expense.IsSplit, &expense.GroupID, &expense.Version, &expense.CreatedAt, &expense.UpdatedAt,
		&expense.PayerID)
	if err != nil {
		return nil, err
	}
	expense.Amount = models.Money(amount)
	expense.Date = time.Unix(occurred, 0).UTC()
	return expense, nil
}

// GetExpense retrieves an expense by ID, including splits and payer.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM transactions t JOIN accounts a ON a.id = t.account_id
		 WHERE t.id = ? AND t.kind = ?`,
		expenseID, models.KindExpense,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WithMessage(apperrors.ErrExpenseNotFound,
			fmt.Sprintf("expense not found: %s", expenseID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	splits, err := listSplits(ctx, s.db,
		"SELECT expense_id, user_id, amount_cents FROM expense_splits WHERE expense_id = ? ORDER BY user_id",
		expenseID)
	if err != nil {
		return nil, err
	}
	expense.Splits = splits[expenseID]
	return expense, nil
}

// listSplits runs a split query and groups the rows by expense ID.
func listSplits(ctx context.Context, q querier, query string, args ...any) (map[string][]models.ExpenseSplit, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	splits := make(map[string][]models.ExpenseSplit)
	for rows.Next() {
		var split models.ExpenseSplit
		var amount int64
		if err := rows.Scan(&split.ExpenseID, &split.UserID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		split.Amount = models.Money(amount)
		splits[split.ExpenseID] = append(splits[split.ExpenseID], split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}

// DeleteExpense removes an expense; its splits go with it.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expenseID); err != nil {
			return fmt.Errorf("failed to delete splits: %w", err)
		}
		result, err := tx.ExecContext(ctx,
			"DELETE FROM transactions WHERE id = ? AND kind = ?", expenseID, models.KindExpense)
		if err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if n == 0 {
			return apperrors.WithMessage(apperrors.ErrExpenseNotFound,
				fmt.Sprintf("expense not found: %s", expenseID))
		}
		return nil
	})
}

// ListAccountTransactions retrieves every transaction that moves money in or
// out of the account.
func (s *SQLiteStore) ListAccountTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, account_id, COALESCE(to_account_id, ''), amount_cents, occurred_at,
		        description, is_split, COALESCE(group_id, ''), version, created_at, updated_at
		 FROM transactions
		 WHERE account_id = ? OR to_account_id = ?
		 ORDER BY occurred_at, id`,
		accountID, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var id, kind, from, to, description, groupID string
		var amount, occurred, version, created, updated int64
		var isSplit bool
		if err := rows.Scan(&id, &kind, &from, &to, &amount, &occurred,
			&description, &isSplit, &groupID, &version, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		date := time.Unix(occurred, 0).UTC()
		switch models.TransactionKind(kind) {
		case models.KindIncome:
			txns = append(txns, models.Income{
				ID: id, AccountID: from, Amount: models.Money(amount), Date: date,
				Description: description, CreatedAt: created,
			})
		case models.KindExpense:
			txns = append(txns, models.Expense{
				ID: id, AccountID: from, Amount: models.Money(amount), Date: date,
				Description: description, IsSplit: isSplit, GroupID: groupID,
				Version: version, CreatedAt: created, UpdatedAt: updated,
			})
		case models.KindTransfer:
			txns = append(txns, models.Transfer{
				ID: id, FromAccountID: from, ToAccountID: to, Amount: models.Money(amount), Date: date,
				Description: description, CreatedAt: created,
			})
		default:
			return nil, fmt.Errorf("unknown transaction kind %q for %s", kind, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}
