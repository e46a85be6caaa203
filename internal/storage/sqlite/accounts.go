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

// CreateAccount persists a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner_id, name, category, disabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.OwnerID, account.Name, account.Category,
		boolToInt(account.Disabled), account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return getAccount(ctx, s.db, accountID)
}

func getAccount(ctx context.Context, q querier, accountID string) (*models.Account, error) {
	account := &models.Account{}
	err := q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, category, disabled, created_at
		 FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&account.ID, &account.OwnerID, &account.Name, &account.Category,
		&account.Disabled, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WithMessage(apperrors.ErrAccountNotFound,
			fmt.Sprintf("account not found: %s", accountID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListAccountsByOwner retrieves all accounts owned by a user, disabled ones included.
func (s *SQLiteStore) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, category, disabled, created_at
		 FROM accounts WHERE owner_id = ? ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		if err := rows.Scan(&account.ID, &account.OwnerID, &account.Name, &account.Category,
			&account.Disabled, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// DisableAccount soft-disables an account. Its history stays in place.
func (s *SQLiteStore) DisableAccount(ctx context.Context, accountID string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE accounts SET disabled = 1 WHERE id = ?", accountID)
	if err != nil {
		return fmt.Errorf("failed to disable account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.WithMessage(apperrors.ErrAccountNotFound,
			fmt.Sprintf("account not found: %s", accountID))
	}
	return nil
}
