package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateGroup persists a new group with its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO groups (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
			group.ID, group.Name, group.OwnerID, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		if err := addMembers(ctx, tx, group.ID, group.Members, group.CreatedAt); err != nil {
			return err
		}
		members, err := listMembers(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		group.Members = members
		return nil
	})
}

// GetGroup retrieves a group by ID with its current members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return getGroup(ctx, s.db, groupID)
}

func getGroup(ctx context.Context, q querier, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, owner_id, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WithMessage(apperrors.ErrGroupNotFound,
			fmt.Sprintf("group not found: %s", groupID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := listMembers(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return group, nil
}

// ListGroupsByMember retrieves every group the user currently belongs to.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.owner_id, g.created_at
		 FROM groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	// The pool has one connection; release it before the member query.
	rows.Close()

	if len(groups) == 0 {
		return groups, nil
	}

	ids := make([]any, len(groups))
	byID := make(map[string]*models.Group, len(groups))
	for i, group := range groups {
		ids[i] = group.ID
		byID[group.ID] = group
	}

	memberRows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id FROM group_members
		 WHERE group_id IN (?`+repeatPlaceholder(len(ids)-1)+`)
		 ORDER BY user_id`,
		ids...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var groupID, memberID string
		if err := memberRows.Scan(&groupID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		byID[groupID].Members = append(byID[groupID].Members, memberID)
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return groups, nil
}

// AddGroupMembers adds users that are not members yet.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGroup(ctx, tx, groupID); err != nil {
			return err
		}
		return addMembers(ctx, tx, groupID, userIDs, time.Now().Unix())
	})
}

func addMembers(ctx context.Context, tx *sql.Tx, groupID string, userIDs []string, joinedAt int64) error {
	for _, userID := range userIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
			groupID, userID, joinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

func listMembers(ctx context.Context, q querier, groupID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// RemoveGroupMember lets plan inspect the group's history, records the
// settlements it returns and drops the membership, all in one transaction.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID string, plan storage.RemovalPlanner) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		history, err := getGroupHistory(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !containsString(history.Members, userID) {
			return apperrors.WithMessage(apperrors.ErrNotGroupMember,
				fmt.Sprintf("user %s is not a member of group %s", userID, groupID))
		}

		if plan != nil {
			settlements, err := plan(history)
			if err != nil {
				return err
			}
			for _, settlement := range settlements {
				settlement.GroupID = groupID
				if err := insertSettlement(ctx, tx, settlement); err != nil {
					return err
				}
			}
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete group member: %w", err)
		}
		return nil
	})
}

// GetGroupHistory loads members, expenses and settlements in one read transaction.
func (s *SQLiteStore) GetGroupHistory(ctx context.Context, groupID string) (*storage.GroupHistory, error) {
	var history *storage.GroupHistory
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		history, err = getGroupHistory(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func getGroupHistory(ctx context.Context, q querier, groupID string) (*storage.GroupHistory, error) {
	group, err := getGroup(ctx, q, groupID)
	if err != nil {
		return nil, err
	}

	expenses, err := listGroupExpenses(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	settlements, err := listSettlements(ctx, q, groupID)
	if err != nil {
		return nil, err
	}

	return &storage.GroupHistory{
		Members:     group.Members,
		Expenses:    expenses,
		Settlements: settlements,
	}, nil
}

func listGroupExpenses(ctx context.Context, q querier, groupID string) ([]*models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM transactions t JOIN accounts a ON a.id = t.account_id
		 WHERE t.group_id = ? AND t.kind = ?
		 ORDER BY t.occurred_at, t.id`,
		groupID, models.KindExpense,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group expenses: %w", err)
	}

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	splits, err := listSplits(ctx, q,
		`SELECT s.expense_id, s.user_id, s.amount_cents
		 FROM expense_splits s JOIN transactions t ON t.id = s.expense_id
		 WHERE t.group_id = ?
		 ORDER BY s.expense_id, s.user_id`,
		groupID)
	if err != nil {
		return nil, err
	}
	for _, expense := range expenses {
		expense.Splits = splits[expense.ID]
	}
	return expenses, nil
}

func containsString(list []string, want string) bool {
	i := sort.SearchStrings(list, want)
	return i < len(list) && list[i] == want
}
