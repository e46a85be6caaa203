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

const settlementColumns = `id, group_id, from_user_id, to_user_id, amount_cents, created_at, created_by,
	COALESCE(note, ''), COALESCE(idempotency_key, '')`

// CreateSettlement appends a settlement, or replays an earlier one recorded
// with the same idempotency key inside window.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement, window time.Duration) (bool, error) {
	replayed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if settlement.IdempotencyKey != "" {
			since := time.Now().Add(-window).Unix()
			existing, err := scanSettlement(tx.QueryRowContext(ctx,
				`SELECT `+settlementColumns+`
				 FROM settlements
				 WHERE group_id = ? AND idempotency_key = ? AND created_at >= ?
				 ORDER BY created_at DESC LIMIT 1`,
				settlement.GroupID, settlement.IdempotencyKey, since,
			).Scan)
			if err == nil {
				*settlement = *existing
				replayed = true
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to look up idempotency key: %w", err)
			}
		}
		return insertSettlement(ctx, tx, settlement)
	})
	if err != nil {
		return false, err
	}
	return replayed, nil
}

func insertSettlement(ctx context.Context, q querier, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_user_id, to_user_id, amount_cents, created_at, created_by, note, idempotency_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount.Cents(), settlement.CreatedAt, settlement.CreatedBy,
		nullString(settlement.Note), nullString(settlement.IdempotencyKey),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

func scanSettlement(scan func(dest ...any) error) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var amount int64
	err := scan(&settlement.ID, &settlement.GroupID, &settlement.FromUserID, &settlement.ToUserID,
		&amount, &settlement.CreatedAt, &settlement.CreatedBy, &settlement.Note, &settlement.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	settlement.Amount = models.Money(amount)
	return settlement, nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`,
		settlementID,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WithMessage(apperrors.ErrSettlementNotFound,
			fmt.Sprintf("settlement not found: %s", settlementID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlementsByGroup retrieves all settlements for a group, oldest first.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return listSettlements(ctx, s.db, groupID)
}

func listSettlements(ctx context.Context, q querier, groupID string) ([]*models.Settlement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+settlementColumns+`
		 FROM settlements WHERE group_id = ? ORDER BY created_at, rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}
