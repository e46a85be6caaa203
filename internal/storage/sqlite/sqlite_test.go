package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createAccount(t *testing.T, store *SQLiteStore, owner string) *models.Account {
	t.Helper()
	account := &models.Account{OwnerID: owner, Name: owner + " wallet", Category: "cash"}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func createGroup(t *testing.T, store *SQLiteStore, owner string, members ...string) *models.Group {
	t.Helper()
	group := &models.Group{Name: "Trip", OwnerID: owner, Members: append([]string{owner}, members...)}
	require.NoError(t, store.CreateGroup(context.Background(), group))
	return group
}

func TestAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateAccount generates ID", func(t *testing.T) {
		account := createAccount(t, store, "alice")
		require.NotEmpty(t, account.ID)
		require.NotZero(t, account.CreatedAt)

		got, err := store.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, account, got)
	})

	t.Run("GetAccount returns not found", func(t *testing.T) {
		_, err := store.GetAccount(ctx, "missing")
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})

	t.Run("DisableAccount keeps the row", func(t *testing.T) {
		account := createAccount(t, store, "bob")
		require.NoError(t, store.DisableAccount(ctx, account.ID))

		accounts, err := store.ListAccountsByOwner(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		require.True(t, accounts[0].Disabled)

		require.ErrorIs(t, store.DisableAccount(ctx, "missing"), apperrors.ErrAccountNotFound)
	})
}

func TestAccountTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	wallet := createAccount(t, store, "alice")
	bank := createAccount(t, store, "alice")
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateIncome(ctx, &models.Income{
		AccountID: bank.ID, Amount: 100000, Date: date, Description: "salary",
	}))
	require.NoError(t, store.CreateTransfer(ctx, &models.Transfer{
		FromAccountID: bank.ID, ToAccountID: wallet.ID, Amount: 20000, Date: date.AddDate(0, 0, 1),
	}))
	require.NoError(t, store.CreateExpense(ctx, &models.Expense{
		AccountID: wallet.ID, Amount: 4550, Date: date.AddDate(0, 0, 2), Description: "groceries",
	}))

	txns, err := store.ListAccountTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	transfer, ok := txns[0].(models.Transfer)
	require.True(t, ok, "first transaction is %T", txns[0])
	require.Equal(t, bank.ID, transfer.FromAccountID)
	require.Equal(t, models.Money(20000), transfer.Amount)

	expense, ok := txns[1].(models.Expense)
	require.True(t, ok, "second transaction is %T", txns[1])
	require.Equal(t, models.Money(4550), expense.Amount)
	require.Equal(t, date.AddDate(0, 0, 2), expense.Date)

	txns, err = store.ListAccountTransactions(ctx, bank.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, models.KindIncome, txns[0].Kind())
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := createAccount(t, store, "alice")
	group := createGroup(t, store, "alice", "bob", "carol")

	newExpense := func() *models.Expense {
		return &models.Expense{
			AccountID: account.ID,
			Amount:    10000,
			Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			IsSplit:   true,
			GroupID:   group.ID,
			Splits: []models.ExpenseSplit{
				{UserID: "alice", Amount: 3334},
				{UserID: "bob", Amount: 3333},
				{UserID: "carol", Amount: 3333},
			},
		}
	}

	t.Run("CreateExpense stores splits and payer", func(t *testing.T) {
		expense := newExpense()
		require.NoError(t, store.CreateExpense(ctx, expense))
		require.Equal(t, int64(1), expense.Version)

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", got.PayerID)
		require.Equal(t, group.ID, got.GroupID)
		require.Len(t, got.Splits, 3)
		require.Equal(t, models.Money(10000), models.SplitTotal(got.Splits))
	})

	t.Run("CreateExpense rolls back when splits do not add up", func(t *testing.T) {
		expense := newExpense()
		expense.Splits[0].Amount = 3333

		err := store.CreateExpense(ctx, expense)
		require.ErrorIs(t, err, apperrors.ErrSplitInvariant)

		_, err = store.GetExpense(ctx, expense.ID)
		require.ErrorIs(t, err, apperrors.ErrExpenseNotFound)
	})

	t.Run("ReplaceExpense regenerates splits and bumps version", func(t *testing.T) {
		expense := newExpense()
		require.NoError(t, store.CreateExpense(ctx, expense))

		expense.Amount = 9000
		expense.Splits = []models.ExpenseSplit{
			{UserID: "bob", Amount: 4500},
			{UserID: "carol", Amount: 4500},
		}
		require.NoError(t, store.ReplaceExpense(ctx, expense, 1))
		require.Equal(t, int64(2), expense.Version)

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		require.Equal(t, models.Money(9000), got.Amount)
		require.Len(t, got.Splits, 2)

		err = store.ReplaceExpense(ctx, expense, 1)
		require.ErrorIs(t, err, apperrors.ErrStaleExpense)
	})

	t.Run("ReplaceExpense leaves the old version on failure", func(t *testing.T) {
		expense := newExpense()
		require.NoError(t, store.CreateExpense(ctx, expense))

		broken := *expense
		broken.Amount = 5000
		require.ErrorIs(t, store.ReplaceExpense(ctx, &broken, 0), apperrors.ErrSplitInvariant)

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		require.Equal(t, models.Money(10000), got.Amount)
		require.Equal(t, int64(1), got.Version)
		require.Len(t, got.Splits, 3)
	})

	t.Run("DeleteExpense removes splits", func(t *testing.T) {
		expense := newExpense()
		require.NoError(t, store.CreateExpense(ctx, expense))
		require.NoError(t, store.DeleteExpense(ctx, expense.ID))

		_, err := store.GetExpense(ctx, expense.ID)
		require.ErrorIs(t, err, apperrors.ErrExpenseNotFound)
		require.ErrorIs(t, store.DeleteExpense(ctx, expense.ID), apperrors.ErrExpenseNotFound)
	})
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup sorts members", func(t *testing.T) {
		group := createGroup(t, store, "carol", "alice", "bob")
		require.Equal(t, []string{"alice", "bob", "carol"}, group.Members)

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Equal(t, group, got)
	})

	t.Run("AddGroupMembers ignores existing members", func(t *testing.T) {
		group := createGroup(t, store, "alice")
		require.NoError(t, store.AddGroupMembers(ctx, group.ID, []string{"alice", "dave"}))

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "dave"}, got.Members)

		require.ErrorIs(t, store.AddGroupMembers(ctx, "missing", []string{"x"}), apperrors.ErrGroupNotFound)
	})

	t.Run("ListGroupsByMember loads members", func(t *testing.T) {
		groups, err := store.ListGroupsByMember(ctx, "dave")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		require.Equal(t, []string{"alice", "dave"}, groups[0].Members)

		groups, err = store.ListGroupsByMember(ctx, "nobody")
		require.NoError(t, err)
		require.Empty(t, groups)
	})
}

func TestRemoveGroupMember(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := createAccount(t, store, "alice")
	group := createGroup(t, store, "alice", "bob")

	require.NoError(t, store.CreateExpense(ctx, &models.Expense{
		AccountID: account.ID, Amount: 2000, Date: time.Now().UTC(), IsSplit: true, GroupID: group.ID,
		Splits: []models.ExpenseSplit{{UserID: "alice", Amount: 1000}, {UserID: "bob", Amount: 1000}},
	}))

	t.Run("planner error aborts removal", func(t *testing.T) {
		err := store.RemoveGroupMember(ctx, group.ID, "bob", func(h *storage.GroupHistory) ([]*models.Settlement, error) {
			require.Len(t, h.Expenses, 1)
			require.Len(t, h.Expenses[0].Splits, 2)
			return nil, apperrors.ErrMemberHasBalance
		})
		require.ErrorIs(t, err, apperrors.ErrMemberHasBalance)

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		require.True(t, got.HasMember("bob"))
	})

	t.Run("planned settlements are recorded with the removal", func(t *testing.T) {
		err := store.RemoveGroupMember(ctx, group.ID, "bob", func(h *storage.GroupHistory) ([]*models.Settlement, error) {
			return []*models.Settlement{{FromUserID: "bob", ToUserID: "alice", Amount: 1000, CreatedBy: "alice"}}, nil
		})
		require.NoError(t, err)

		history, err := store.GetGroupHistory(ctx, group.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"alice"}, history.Members)
		require.Len(t, history.Expenses, 1, "history outlives membership")
		require.Len(t, history.Settlements, 1)
		require.Equal(t, group.ID, history.Settlements[0].GroupID)
	})

	t.Run("removing a non-member fails", func(t *testing.T) {
		err := store.RemoveGroupMember(ctx, group.ID, "bob", nil)
		require.ErrorIs(t, err, apperrors.ErrNotGroupMember)
	})
}

func TestCreateSettlementIdempotency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob")

	first := &models.Settlement{
		GroupID: group.ID, FromUserID: "bob", ToUserID: "alice", Amount: 1500,
		CreatedBy: "bob", IdempotencyKey: "k1",
	}
	replayed, err := store.CreateSettlement(ctx, first, time.Hour)
	require.NoError(t, err)
	require.False(t, replayed)

	retry := &models.Settlement{
		GroupID: group.ID, FromUserID: "bob", ToUserID: "alice", Amount: 1500,
		CreatedBy: "bob", IdempotencyKey: "k1",
	}
	replayed, err = store.CreateSettlement(ctx, retry, time.Hour)
	require.NoError(t, err)
	require.True(t, replayed)
	require.Equal(t, first.ID, retry.ID)

	settlements, err := store.ListSettlementsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, settlements, 1)

	// Outside the window the key is free again.
	old := &models.Settlement{
		GroupID: group.ID, FromUserID: "bob", ToUserID: "alice", Amount: 100,
		CreatedBy: "bob", IdempotencyKey: "k2", CreatedAt: time.Now().Add(-48 * time.Hour).Unix(),
	}
	_, err = store.CreateSettlement(ctx, old, time.Hour)
	require.NoError(t, err)
	again := &models.Settlement{
		GroupID: group.ID, FromUserID: "bob", ToUserID: "alice", Amount: 100,
		CreatedBy: "bob", IdempotencyKey: "k2",
	}
	replayed, err = store.CreateSettlement(ctx, again, time.Hour)
	require.NoError(t, err)
	require.False(t, replayed)
	require.NotEqual(t, old.ID, again.ID)

	got, err := store.GetSettlement(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first, got)

	_, err = store.GetSettlement(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrSettlementNotFound)
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user, got)

	got, err = store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	require.True(t, errors.Is(err, apperrors.ErrUserNotFound))

	dup := models.NewUser("alice@example.com", "Other", "hash")
	require.ErrorIs(t, store.CreateUser(ctx, dup), apperrors.ErrDuplicateEmail)
}
