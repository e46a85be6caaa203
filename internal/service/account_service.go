package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

// AccountService implements the Connect AccountService.
type AccountService struct {
	store   storage.Store
	metrics *middleware.Metrics
}

var _ api.AccountServiceHandler = (*AccountService)(nil)

// NewAccountService creates a new AccountService with the given storage backend.
func NewAccountService(store storage.Store, metrics *middleware.Metrics) *AccountService {
	return &AccountService{store: store, metrics: metrics}
}

// CreateAccount opens an account owned by the caller.
func (s *AccountService) CreateAccount(ctx context.Context, req *connect.Request[api.CreateAccountRequest]) (*connect.Response[api.CreateAccountResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "CreateAccount failed", err)
	}

	account := &models.Account{
		OwnerID:  userID,
		Name:     req.Msg.Name,
		Category: req.Msg.Category,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, fail(s.metrics, "CreateAccount failed", err, "user_id", userID)
	}

	slog.Info("Account created", "account_id", account.ID, "owner_id", userID)
	return connect.NewResponse(&api.CreateAccountResponse{Account: toAPIAccount(account)}), nil
}

// ListAccounts returns the caller's accounts, disabled ones included.
func (s *AccountService) ListAccounts(ctx context.Context, req *connect.Request[api.ListAccountsRequest]) (*connect.Response[api.ListAccountsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "ListAccounts failed", err)
	}

	accounts, err := s.store.ListAccountsByOwner(ctx, userID)
	if err != nil {
		return nil, fail(s.metrics, "ListAccounts failed", err, "user_id", userID)
	}

	out := make([]api.Account, len(accounts))
	for i, account := range accounts {
		out[i] = toAPIAccount(account)
	}
	return connect.NewResponse(&api.ListAccountsResponse{Accounts: out}), nil
}

// DisableAccount stops an account from taking new transactions. Its history
// still counts toward every balance.
func (s *AccountService) DisableAccount(ctx context.Context, req *connect.Request[api.DisableAccountRequest]) (*connect.Response[api.DisableAccountResponse], error) {
	accountID := req.Msg.AccountID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "DisableAccount failed", err)
	}

	if _, err := ownedAccount(ctx, s.store, accountID, userID); err != nil {
		return nil, fail(s.metrics, "DisableAccount failed", err, "account_id", accountID)
	}
	if err := s.store.DisableAccount(ctx, accountID); err != nil {
		return nil, fail(s.metrics, "DisableAccount failed", err, "account_id", accountID)
	}

	slog.Info("Account disabled", "account_id", accountID)
	return connect.NewResponse(&api.DisableAccountResponse{}), nil
}

// RecordIncome credits one of the caller's accounts.
func (s *AccountService) RecordIncome(ctx context.Context, req *connect.Request[api.RecordIncomeRequest]) (*connect.Response[api.RecordIncomeResponse], error) {
	msg := req.Msg
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "RecordIncome failed", err)
	}

	if _, err := activeAccount(ctx, s.store, msg.AccountID, userID); err != nil {
		return nil, fail(s.metrics, "RecordIncome failed", err, "account_id", msg.AccountID)
	}

	income := &models.Income{
		AccountID:   msg.AccountID,
		Amount:      msg.Amount,
		Date:        dateOrNow(msg.Date),
		Description: msg.Description,
	}
	if err := s.store.CreateIncome(ctx, income); err != nil {
		return nil, fail(s.metrics, "RecordIncome failed", err, "account_id", msg.AccountID)
	}

	slog.Info("Income recorded", "transaction_id", income.ID, "account_id", msg.AccountID, "amount", msg.Amount)
	return connect.NewResponse(&api.RecordIncomeResponse{TransactionID: income.ID}), nil
}

// RecordTransfer moves money between two of the caller's accounts.
func (s *AccountService) RecordTransfer(ctx context.Context, req *connect.Request[api.RecordTransferRequest]) (*connect.Response[api.RecordTransferResponse], error) {
	msg := req.Msg
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "RecordTransfer failed", err)
	}

	if msg.FromAccountID == msg.ToAccountID {
		return nil, fail(s.metrics, "RecordTransfer failed", apperrors.ErrSameAccountTransfer,
			"account_id", msg.FromAccountID)
	}
	for _, accountID := range []string{msg.FromAccountID, msg.ToAccountID} {
		if _, err := activeAccount(ctx, s.store, accountID, userID); err != nil {
			return nil, fail(s.metrics, "RecordTransfer failed", err, "account_id", accountID)
		}
	}

	transfer := &models.Transfer{
		FromAccountID: msg.FromAccountID,
		ToAccountID:   msg.ToAccountID,
		Amount:        msg.Amount,
		Date:          dateOrNow(msg.Date),
		Description:   msg.Description,
	}
	if err := s.store.CreateTransfer(ctx, transfer); err != nil {
		return nil, fail(s.metrics, "RecordTransfer failed", err)
	}

	slog.Info("Transfer recorded",
		"transaction_id", transfer.ID,
		"from_account_id", msg.FromAccountID,
		"to_account_id", msg.ToAccountID,
		"amount", msg.Amount,
	)
	return connect.NewResponse(&api.RecordTransferResponse{TransactionID: transfer.ID}), nil
}

// GetAccountBalance folds the account's full history into its balance.
func (s *AccountService) GetAccountBalance(ctx context.Context, req *connect.Request[api.GetAccountBalanceRequest]) (*connect.Response[api.GetAccountBalanceResponse], error) {
	accountID := req.Msg.AccountID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "GetAccountBalance failed", err)
	}

	if _, err := ownedAccount(ctx, s.store, accountID, userID); err != nil {
		return nil, fail(s.metrics, "GetAccountBalance failed", err, "account_id", accountID)
	}

	txns, err := s.store.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return nil, fail(s.metrics, "GetAccountBalance failed", err, "account_id", accountID)
	}
	balance, err := calculator.AccountBalance(accountID, txns, req.Msg.AsOf)
	if err != nil {
		return nil, fail(s.metrics, "GetAccountBalance failed", err, "account_id", accountID)
	}

	slog.Debug("Account balance computed", "account_id", accountID, "transactions", len(txns), "balance", balance)
	return connect.NewResponse(&api.GetAccountBalanceResponse{
		AccountID: accountID,
		Balance:   balance,
	}), nil
}
