package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api"
)

// testUserHeader names the caller in tests; requests without it act as alice.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that trusts the test user header.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			userID := req.Header().Get(testUserHeader)
			if userID == "" {
				userID = "alice"
			}
			return next(middleware.WithUserID(ctx, userID), req)
		}
	}
}

type testClients struct {
	accounts api.AccountServiceClient
	expenses api.ExpenseServiceClient
	groups   api.GroupServiceClient
	auth     api.AuthServiceClient
}

// setupTestServer serves every ledger service over a fresh SQLite database.
func setupTestServer(t *testing.T) testClients {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	metrics := middleware.NewMetrics(prometheus.NewRegistry())
	opts := connect.WithInterceptors(testAuthInterceptor(), middleware.ValidationInterceptor())

	jwtManager := auth.NewJWTManager("test-secret-test-secret-test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	mux := http.NewServeMux()
	mux.Handle(api.NewAccountServiceHandler(NewAccountService(store, metrics), opts))
	mux.Handle(api.NewExpenseServiceHandler(NewExpenseService(store, metrics), opts))
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, metrics, time.Hour), opts))
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store, metrics),
		[]connect.HandlerOption{connect.WithInterceptors(middleware.ValidationInterceptor())},
		[]connect.HandlerOption{connect.WithInterceptors(middleware.RequireAuth(jwtManager))},
	))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return testClients{
		accounts: api.NewAccountServiceClient(http.DefaultClient, server.URL),
		expenses: api.NewExpenseServiceClient(http.DefaultClient, server.URL),
		groups:   api.NewGroupServiceClient(http.DefaultClient, server.URL),
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
	}
}

// as builds a request made by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, userID)
	return req
}

func money(s string) models.Money {
	return models.MustParseMoney(s)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, api.ErrorCode(err), "error: %v", err)
}

func newAccount(t *testing.T, c testClients, owner string) string {
	t.Helper()
	resp, err := c.accounts.CreateAccount(context.Background(), as(owner, &api.CreateAccountRequest{
		Name:     owner + " wallet",
		Category: "cash",
	}))
	require.NoError(t, err)
	return resp.Msg.Account.ID
}

func newGroup(t *testing.T, c testClients, owner string, members ...string) string {
	t.Helper()
	resp, err := c.groups.CreateGroup(context.Background(), as(owner, &api.CreateGroupRequest{
		Name:    "Trip",
		Members: members,
	}))
	require.NoError(t, err)
	return resp.Msg.Group.ID
}

func evenGroupExpense(t *testing.T, c testClients, payer, accountID, groupID, amount string, participants ...string) api.Expense {
	t.Helper()
	resp, err := c.expenses.CreateExpense(context.Background(), as(payer, &api.CreateExpenseRequest{
		AccountID: accountID,
		Amount:    money(amount),
		GroupID:   groupID,
		Split:     &api.SplitInput{Participants: participants},
	}))
	require.NoError(t, err)
	return resp.Msg.Expense
}

func balancesByUser(t *testing.T, c testClients, caller, groupID string) map[string]api.MemberBalance {
	t.Helper()
	resp, err := c.groups.GetGroupBalances(context.Background(), as(caller, &api.GetGroupBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)

	var sum models.Money
	out := make(map[string]api.MemberBalance, len(resp.Msg.Balances))
	for _, b := range resp.Msg.Balances {
		out[b.UserID] = b
		sum += b.NetBalance
	}
	require.Zero(t, sum, "net positions must sum to zero")
	return out
}

func TestAllocateSplit(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	t.Run("even split gives the first participant the extra cent", func(t *testing.T) {
		resp, err := c.expenses.AllocateSplit(ctx, as("alice", &api.AllocateSplitRequest{
			Total: money("100.00"),
			Split: api.SplitInput{Participants: []string{"alice", "bob", "carol"}},
		}))
		require.NoError(t, err)
		require.Equal(t, []api.Share{
			{UserID: "alice", Amount: money("33.34")},
			{UserID: "bob", Amount: money("33.33")},
			{UserID: "carol", Amount: money("33.33")},
		}, resp.Msg.Shares)
	})

	t.Run("exact shares must add up", func(t *testing.T) {
		_, err := c.expenses.AllocateSplit(ctx, as("alice", &api.AllocateSplitRequest{
			Total: money("10.00"),
			Split: api.SplitInput{Shares: []api.Share{
				{UserID: "alice", Amount: money("5.00")},
				{UserID: "bob", Amount: money("4.99")},
			}},
		}))
		requireCode(t, err, "SPLIT_SUM_MISMATCH")
	})

	t.Run("participants and shares together", func(t *testing.T) {
		_, err := c.expenses.AllocateSplit(ctx, as("alice", &api.AllocateSplitRequest{
			Total: money("10.00"),
			Split: api.SplitInput{
				Participants: []string{"alice"},
				Shares:       []api.Share{{UserID: "alice", Amount: money("10.00")}},
			},
		}))
		requireCode(t, err, "INVALID_INPUT")
	})

	t.Run("no participants", func(t *testing.T) {
		_, err := c.expenses.AllocateSplit(ctx, as("alice", &api.AllocateSplitRequest{Total: money("10.00")}))
		requireCode(t, err, "EMPTY_PARTICIPANTS")
	})

	t.Run("duplicate participant", func(t *testing.T) {
		_, err := c.expenses.AllocateSplit(ctx, as("alice", &api.AllocateSplitRequest{
			Total: money("10.00"),
			Split: api.SplitInput{Participants: []string{"alice", "alice"}},
		}))
		requireCode(t, err, "DUPLICATE_PARTICIPANT")
	})

	t.Run("non-positive total is rejected before the handler", func(t *testing.T) {
		_, err := c.expenses.AllocateSplit(ctx, as("alice", &api.AllocateSplitRequest{
			Total: money("-1.00"),
			Split: api.SplitInput{Participants: []string{"alice"}},
		}))
		requireCode(t, err, "NON_POSITIVE_AMOUNT")
	})
}

func TestAccountBalance(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	wallet := newAccount(t, c, "alice")
	savings := newAccount(t, c, "alice")
	day := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }

	_, err := c.accounts.RecordIncome(ctx, as("alice", &api.RecordIncomeRequest{
		AccountID: wallet, Amount: money("500.00"), Date: day(1),
	}))
	require.NoError(t, err)
	_, err = c.expenses.CreateExpense(ctx, as("alice", &api.CreateExpenseRequest{
		AccountID: wallet, Amount: money("120.00"), Date: day(2),
	}))
	require.NoError(t, err)
	_, err = c.accounts.RecordTransfer(ctx, as("alice", &api.RecordTransferRequest{
		FromAccountID: wallet, ToAccountID: savings, Amount: money("50.00"), Date: day(3),
	}))
	require.NoError(t, err)

	balance := func(accountID string, asOf *time.Time) models.Money {
		t.Helper()
		resp, err := c.accounts.GetAccountBalance(ctx, as("alice", &api.GetAccountBalanceRequest{
			AccountID: accountID, AsOf: asOf,
		}))
		require.NoError(t, err)
		return resp.Msg.Balance
	}

	require.Equal(t, money("330.00"), balance(wallet, nil))
	require.Equal(t, money("50.00"), balance(savings, nil))

	asOf := day(2).Add(time.Hour)
	require.Equal(t, money("380.00"), balance(wallet, &asOf))

	t.Run("same account transfer", func(t *testing.T) {
		_, err := c.accounts.RecordTransfer(ctx, as("alice", &api.RecordTransferRequest{
			FromAccountID: wallet, ToAccountID: wallet, Amount: money("1.00"),
		}))
		requireCode(t, err, "SAME_ACCOUNT_TRANSFER")
	})

	t.Run("other users cannot read the balance", func(t *testing.T) {
		_, err := c.accounts.GetAccountBalance(ctx, as("mallory", &api.GetAccountBalanceRequest{AccountID: wallet}))
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("disabled accounts keep their balance but take no new entries", func(t *testing.T) {
		_, err := c.accounts.DisableAccount(ctx, as("alice", &api.DisableAccountRequest{AccountID: savings}))
		require.NoError(t, err)

		_, err = c.accounts.RecordIncome(ctx, as("alice", &api.RecordIncomeRequest{
			AccountID: savings, Amount: money("1.00"),
		}))
		requireCode(t, err, "ACCOUNT_DISABLED")
		require.Equal(t, money("50.00"), balance(savings, nil))

		resp, err := c.accounts.ListAccounts(ctx, as("alice", &api.ListAccountsRequest{}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Accounts, 2)
	})
}

func TestGroupBalances_SettlementReducesDebt(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	wallet := newAccount(t, c, "alice")
	groupID := newGroup(t, c, "alice", "bob", "carol")
	expense := evenGroupExpense(t, c, "alice", wallet, groupID, "60.00", "alice", "bob", "carol")
	require.Len(t, expense.Splits, 3)

	balances := balancesByUser(t, c, "bob", groupID)
	require.Equal(t, money("40.00"), balances["alice"].NetBalance)
	require.Equal(t, money("40.00"), balances["alice"].OwedToYou)
	require.Equal(t, money("-20.00"), balances["bob"].NetBalance)
	require.Equal(t, money("20.00"), balances["bob"].YouOwe)

	_, err := c.groups.RecordSettlement(ctx, as("bob", &api.RecordSettlementRequest{
		GroupID:    groupID,
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     money("20.00"),
	}))
	require.NoError(t, err)

	balances = balancesByUser(t, c, "bob", groupID)
	require.Equal(t, money("20.00"), balances["alice"].NetBalance)
	require.Zero(t, balances["bob"].NetBalance)
	require.True(t, balances["bob"].Settled)
	require.Equal(t, money("-20.00"), balances["carol"].NetBalance)

	resp, err := c.groups.GetGroupBalances(ctx, as("carol", &api.GetGroupBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	require.Equal(t, []api.Debt{{From: "carol", To: "alice", Amount: money("20.00")}}, resp.Msg.Simplified)
	require.Equal(t, []api.Debt{{From: "carol", To: "alice", Amount: money("20.00")}}, resp.Msg.Pairwise)

	t.Run("outsiders cannot see balances", func(t *testing.T) {
		_, err := c.groups.GetGroupBalances(ctx, as("mallory", &api.GetGroupBalancesRequest{GroupID: groupID}))
		requireCode(t, err, "FORBIDDEN")
	})
}

func TestRecordSettlement(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	wallet := newAccount(t, c, "alice")
	groupID := newGroup(t, c, "alice", "bob")
	evenGroupExpense(t, c, "alice", wallet, groupID, "30.00", "alice", "bob")

	t.Run("retry with the same key is recorded once", func(t *testing.T) {
		req := &api.RecordSettlementRequest{
			GroupID:        groupID,
			FromUserID:     "bob",
			ToUserID:       "alice",
			Amount:         money("15.00"),
			IdempotencyKey: "bob-pays-alice-1",
		}
		first, err := c.groups.RecordSettlement(ctx, as("bob", req))
		require.NoError(t, err)
		require.False(t, first.Msg.Replayed)

		second, err := c.groups.RecordSettlement(ctx, as("bob", req))
		require.NoError(t, err)
		require.True(t, second.Msg.Replayed)
		require.Equal(t, first.Msg.Settlement.ID, second.Msg.Settlement.ID)

		list, err := c.groups.ListSettlements(ctx, as("alice", &api.ListSettlementsRequest{GroupID: groupID}))
		require.NoError(t, err)
		require.Len(t, list.Msg.Settlements, 1)

		balances := balancesByUser(t, c, "alice", groupID)
		require.True(t, balances["bob"].Settled)
	})

	t.Run("overpayment flips the debt", func(t *testing.T) {
		_, err := c.groups.RecordSettlement(ctx, as("bob", &api.RecordSettlementRequest{
			GroupID: groupID, FromUserID: "bob", ToUserID: "alice", Amount: money("5.00"),
		}))
		require.NoError(t, err)

		balances := balancesByUser(t, c, "alice", groupID)
		require.Equal(t, money("5.00"), balances["bob"].NetBalance)
		require.Equal(t, money("5.00"), balances["alice"].YouOwe)
	})

	t.Run("self settlement", func(t *testing.T) {
		_, err := c.groups.RecordSettlement(ctx, as("bob", &api.RecordSettlementRequest{
			GroupID: groupID, FromUserID: "bob", ToUserID: "bob", Amount: money("1.00"),
		}))
		requireCode(t, err, "SELF_SETTLEMENT")
	})

	t.Run("party outside the group ledger", func(t *testing.T) {
		_, err := c.groups.RecordSettlement(ctx, as("bob", &api.RecordSettlementRequest{
			GroupID: groupID, FromUserID: "bob", ToUserID: "zed", Amount: money("1.00"),
		}))
		requireCode(t, err, "NOT_PARTICIPANT")
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := c.groups.RecordSettlement(ctx, as("bob", &api.RecordSettlementRequest{
			GroupID: groupID, FromUserID: "bob", ToUserID: "alice",
		}))
		requireCode(t, err, "NON_POSITIVE_AMOUNT")
	})

	t.Run("caller outside the group", func(t *testing.T) {
		_, err := c.groups.RecordSettlement(ctx, as("mallory", &api.RecordSettlementRequest{
			GroupID: groupID, FromUserID: "bob", ToUserID: "alice", Amount: money("1.00"),
		}))
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := c.groups.RecordSettlement(ctx, as("bob", &api.RecordSettlementRequest{
			GroupID: "missing", FromUserID: "bob", ToUserID: "alice", Amount: money("1.00"),
		}))
		requireCode(t, err, "GROUP_NOT_FOUND")
	})
}

func TestGroupMembership(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	groupID := newGroup(t, c, "alice", "bob", "bob")

	got, err := c.groups.GetGroup(ctx, as("bob", &api.GetGroupRequest{GroupID: groupID}))
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, got.Msg.Group.Members)
	require.Equal(t, "alice", got.Msg.Group.OwnerID)

	added, err := c.groups.AddMembers(ctx, as("bob", &api.AddMembersRequest{
		GroupID: groupID, UserIDs: []string{"carol", "alice"},
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, added.Msg.Group.Members)

	list, err := c.groups.ListGroups(ctx, as("carol", &api.ListGroupsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Groups, 1)

	list, err = c.groups.ListGroups(ctx, as("mallory", &api.ListGroupsRequest{}))
	require.NoError(t, err)
	require.Empty(t, list.Msg.Groups)

	_, err = c.groups.AddMembers(ctx, as("mallory", &api.AddMembersRequest{
		GroupID: groupID, UserIDs: []string{"mallory"},
	}))
	requireCode(t, err, "FORBIDDEN")

	_, err = c.groups.GetGroup(ctx, as("alice", &api.GetGroupRequest{GroupID: "missing"}))
	requireCode(t, err, "GROUP_NOT_FOUND")
}

func TestRemoveMember(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	wallet := newAccount(t, c, "alice")
	groupID := newGroup(t, c, "alice", "bob", "carol", "dave")
	evenGroupExpense(t, c, "alice", wallet, groupID, "60.00", "alice", "bob", "carol")

	t.Run("settled member leaves without settlements", func(t *testing.T) {
		resp, err := c.groups.RemoveMember(ctx, as("alice", &api.RemoveMemberRequest{GroupID: groupID, UserID: "dave"}))
		require.NoError(t, err)
		require.Empty(t, resp.Msg.Settlements)
		require.NotContains(t, resp.Msg.Group.Members, "dave")
	})

	t.Run("member with a balance stays", func(t *testing.T) {
		_, err := c.groups.RemoveMember(ctx, as("alice", &api.RemoveMemberRequest{GroupID: groupID, UserID: "carol"}))
		requireCode(t, err, "MEMBER_HAS_BALANCE")

		got, err := c.groups.GetGroup(ctx, as("alice", &api.GetGroupRequest{GroupID: groupID}))
		require.NoError(t, err)
		require.Contains(t, got.Msg.Group.Members, "carol")
	})

	t.Run("forced removal clears the balance", func(t *testing.T) {
		resp, err := c.groups.RemoveMember(ctx, as("alice", &api.RemoveMemberRequest{
			GroupID: groupID, UserID: "carol", Force: true,
		}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Settlements, 1)
		settlement := resp.Msg.Settlements[0]
		require.Equal(t, "carol", settlement.FromUserID)
		require.Equal(t, "alice", settlement.ToUserID)
		require.Equal(t, money("20.00"), settlement.Amount)
		require.Equal(t, "alice", settlement.CreatedBy)

		balances := balancesByUser(t, c, "alice", groupID)
		require.True(t, balances["carol"].Settled)
		require.False(t, balances["carol"].IsMember)
		require.Equal(t, money("20.00"), balances["alice"].NetBalance)
		require.Equal(t, money("-20.00"), balances["bob"].NetBalance)
	})

	t.Run("removing a non-member", func(t *testing.T) {
		_, err := c.groups.RemoveMember(ctx, as("alice", &api.RemoveMemberRequest{GroupID: groupID, UserID: "carol"}))
		requireCode(t, err, "NOT_GROUP_MEMBER")
	})
}

func TestExpenseLifecycle(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	wallet := newAccount(t, c, "alice")
	groupID := newGroup(t, c, "alice", "bob", "carol")
	expense := evenGroupExpense(t, c, "alice", wallet, groupID, "30.00", "alice", "bob")
	require.Equal(t, int64(1), expense.Version)
	require.Equal(t, "alice", expense.PayerID)

	t.Run("participants can read it", func(t *testing.T) {
		got, err := c.expenses.GetExpense(ctx, as("bob", &api.GetExpenseRequest{ExpenseID: expense.ID}))
		require.NoError(t, err)
		require.Equal(t, expense.ID, got.Msg.Expense.ID)
		require.Len(t, got.Msg.Expense.Splits, 2)

		_, err = c.expenses.GetExpense(ctx, as("mallory", &api.GetExpenseRequest{ExpenseID: expense.ID}))
		requireCode(t, err, "FORBIDDEN")
	})

	update := func(caller string, version int64) (*api.Expense, error) {
		resp, err := c.expenses.UpdateExpense(ctx, as(caller, &api.UpdateExpenseRequest{
			ExpenseID:       expense.ID,
			ExpectedVersion: version,
			AccountID:       wallet,
			Amount:          money("90.00"),
			GroupID:         groupID,
			Split:           &api.SplitInput{Participants: []string{"alice", "bob", "carol"}},
		}))
		if err != nil {
			return nil, err
		}
		return &resp.Msg.Expense, nil
	}

	t.Run("update regenerates splits", func(t *testing.T) {
		updated, err := update("alice", 1)
		require.NoError(t, err)
		require.Equal(t, int64(2), updated.Version)
		require.Len(t, updated.Splits, 3)

		balances := balancesByUser(t, c, "alice", groupID)
		require.Equal(t, money("60.00"), balances["alice"].NetBalance)
		require.Equal(t, money("-30.00"), balances["carol"].NetBalance)
	})

	t.Run("stale version", func(t *testing.T) {
		_, err := update("alice", 1)
		requireCode(t, err, "STALE_EXPENSE")
	})

	t.Run("only the payer may edit", func(t *testing.T) {
		_, err := update("bob", 0)
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("participants must belong to the group", func(t *testing.T) {
		_, err := c.expenses.CreateExpense(ctx, as("alice", &api.CreateExpenseRequest{
			AccountID: wallet,
			Amount:    money("10.00"),
			GroupID:   groupID,
			Split:     &api.SplitInput{Participants: []string{"alice", "zed"}},
		}))
		requireCode(t, err, "NOT_GROUP_MEMBER")
	})

	t.Run("group expenses need a split", func(t *testing.T) {
		_, err := c.expenses.CreateExpense(ctx, as("alice", &api.CreateExpenseRequest{
			AccountID: wallet,
			Amount:    money("10.00"),
			GroupID:   groupID,
		}))
		requireCode(t, err, "INVALID_INPUT")
	})

	t.Run("paying from someone else's account", func(t *testing.T) {
		_, err := c.expenses.CreateExpense(ctx, as("bob", &api.CreateExpenseRequest{
			AccountID: wallet,
			Amount:    money("10.00"),
		}))
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("delete removes it from balances", func(t *testing.T) {
		_, err := c.expenses.DeleteExpense(ctx, as("alice", &api.DeleteExpenseRequest{ExpenseID: expense.ID}))
		require.NoError(t, err)

		balances := balancesByUser(t, c, "alice", groupID)
		for userID, b := range balances {
			require.True(t, b.Settled, "user %s", userID)
		}

		_, err = c.expenses.GetExpense(ctx, as("alice", &api.GetExpenseRequest{ExpenseID: expense.ID}))
		requireCode(t, err, "EXPENSE_NOT_FOUND")
	})
}

func TestAuthService(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	registered, err := c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Password:    "correct horse",
	}))
	require.NoError(t, err)
	require.NotEmpty(t, registered.Msg.Token)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email:       "alice@example.com",
			DisplayName: "Other",
			Password:    "another password",
		}))
		requireCode(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("login and fetch the profile", func(t *testing.T) {
		login, err := c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
			Email:    "alice@example.com",
			Password: "correct horse",
		}))
		require.NoError(t, err)

		req := connect.NewRequest(&api.GetCurrentUserRequest{})
		req.Header().Set("Authorization", "Bearer "+login.Msg.Token)
		me, err := c.auth.GetCurrentUser(ctx, req)
		require.NoError(t, err)
		require.Equal(t, registered.Msg.User.ID, me.Msg.User.ID)
		require.Equal(t, "Alice", me.Msg.User.DisplayName)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong horse",
		}))
		requireCode(t, err, "UNAUTHENTICATED")
	})

	t.Run("profile needs a token", func(t *testing.T) {
		_, err := c.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
		requireCode(t, err, "UNAUTHENTICATED")
	})
}
