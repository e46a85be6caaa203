// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/mmynk/splitledger/internal/models"
)

// Store is the ledger's event store. Every write that touches more than one
// row is a single atomic transaction; reads never depend on cached totals.
//
// Not-found lookups return the matching apperrors sentinel so callers can tell
// "doesn't exist" apart from storage failures.
type Store interface {
	AccountStore
	TransactionStore
	GroupStore
	SettlementStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// AccountStore persists accounts. Accounts are disabled, never deleted.
type AccountStore interface {
	// CreateAccount persists a new account. ID and CreatedAt are filled in when empty.
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error)
	DisableAccount(ctx context.Context, accountID string) error
}

// TransactionStore persists incomes, expenses (with their splits) and transfers.
type TransactionStore interface {
	CreateIncome(ctx context.Context, income *models.Income) error
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error

	// CreateExpense writes the expense and all of its splits in one
	// transaction. The stored split total is re-read before commit; a mismatch
	// rolls everything back with an invariant violation.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ReplaceExpense overwrites an expense and regenerates its splits in one
	// transaction. When expectedVersion is nonzero it must match the stored
	// version. expense.Version is set to the new version on success.
	ReplaceExpense(ctx context.Context, expense *models.Expense, expectedVersion int64) error

	// GetExpense returns the expense with its splits and payer.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// DeleteExpense removes the expense and its splits.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListAccountTransactions returns every transaction touching the account:
	// incomes and expenses on it, transfers from or to it.
	ListAccountTransactions(ctx context.Context, accountID string) ([]models.Transaction, error)
}

// GroupHistory is everything the netting engine needs about one group.
type GroupHistory struct {
	Members     []string
	Expenses    []*models.Expense // with PayerID and Splits populated
	Settlements []*models.Settlement
}

// RemovalPlanner decides, given the group's history at removal time, which
// offsetting settlements to record before the member leaves. Returning an
// error aborts the removal.
type RemovalPlanner func(history *GroupHistory) ([]*models.Settlement, error)

// GroupStore persists groups and membership.
type GroupStore interface {
	// CreateGroup persists a new group with its members. ID and CreatedAt are
	// filled in when empty.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMembers adds users that are not members yet; existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// RemoveGroupMember runs plan against the current history and, in the
	// same transaction, records the returned settlements and drops the membership.
	RemoveGroupMember(ctx context.Context, groupID, userID string, plan RemovalPlanner) error

	// GetGroupHistory loads the group's members, expenses with splits, and settlements.
	GetGroupHistory(ctx context.Context, groupID string) (*GroupHistory, error)
}

// SettlementStore persists settlements.
type SettlementStore interface {
	// CreateSettlement appends a settlement. If settlement.IdempotencyKey is
	// set and the group already has a settlement with that key created within
	// window, nothing is written: settlement is overwritten with the stored
	// row and replayed is true.
	CreateSettlement(ctx context.Context, settlement *models.Settlement, window time.Duration) (replayed bool, err error)
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
}

// UserStore persists registered identities.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
