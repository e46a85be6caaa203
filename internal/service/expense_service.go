package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	store   storage.Store
	metrics *middleware.Metrics
}

var _ api.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store, metrics *middleware.Metrics) *ExpenseService {
	return &ExpenseService{store: store, metrics: metrics}
}

// allocate turns a split request into shares of total. Explicit shares are
// taken verbatim; otherwise the participants split evenly.
func allocate(total models.Money, split api.SplitInput) ([]calculator.Share, error) {
	if len(split.Shares) > 0 && len(split.Participants) > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"split takes either participants or shares, not both")
	}
	if len(split.Shares) == 0 {
		return calculator.AllocateEven(total, split.Participants)
	}

	shares := make([]calculator.Share, len(split.Shares))
	for i, s := range split.Shares {
		shares[i] = calculator.Share{UserID: s.UserID, Amount: s.Amount}
	}
	return calculator.AllocateExact(total, shares)
}

// AllocateSplit previews a split without writing anything.
func (s *ExpenseService) AllocateSplit(ctx context.Context, req *connect.Request[api.AllocateSplitRequest]) (*connect.Response[api.AllocateSplitResponse], error) {
	shares, err := allocate(req.Msg.Total, req.Msg.Split)
	if err != nil {
		return nil, fail(s.metrics, "AllocateSplit failed", err, "total", req.Msg.Total)
	}
	return connect.NewResponse(&api.AllocateSplitResponse{Shares: toAPIShares(shares)}), nil
}

// expenseDraft is the validated content of a create or update request.
type expenseDraft struct {
	accountID   string
	amount      models.Money
	description string
	groupID     string
	split       *api.SplitInput
}

// build checks the draft on behalf of userID and returns the expense to store.
// Every check runs before anything is written.
func (s *ExpenseService) build(ctx context.Context, userID string, d expenseDraft) (*models.Expense, error) {
	account, err := activeAccount(ctx, s.store, d.accountID, userID)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		AccountID:   account.ID,
		PayerID:     account.OwnerID,
		Amount:      d.amount,
		Description: d.description,
		GroupID:     d.groupID,
	}
	if d.split == nil {
		return expense, nil
	}

	shares, err := allocate(d.amount, *d.split)
	if err != nil {
		return nil, err
	}

	if d.groupID != "" {
		group, err := groupForMember(ctx, s.store, d.groupID, account.OwnerID)
		if err != nil {
			return nil, err
		}
		for _, share := range shares {
			if !group.HasMember(share.UserID) {
				return nil, apperrors.WithMessage(apperrors.ErrNotGroupMember,
					fmt.Sprintf("participant %s is not a member of group %s", share.UserID, group.ID))
			}
		}
	}

	expense.IsSplit = true
	expense.Splits = calculator.ToSplits("", shares)
	return expense, nil
}

// CreateExpense records an expense paid from one of the caller's accounts.
// The expense and its splits are stored together or not at all.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	msg := req.Msg
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "CreateExpense failed", err)
	}

	slog.Info("CreateExpense request received",
		"account_id", msg.AccountID,
		"group_id", msg.GroupID,
		"amount", msg.Amount,
	)

	expense, err := s.build(ctx, userID, expenseDraft{
		accountID:   msg.AccountID,
		amount:      msg.Amount,
		description: msg.Description,
		groupID:     msg.GroupID,
		split:       msg.Split,
	})
	if err != nil {
		return nil, fail(s.metrics, "CreateExpense failed", err, "account_id", msg.AccountID)
	}
	expense.Date = dateOrNow(msg.Date)

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fail(s.metrics, "CreateExpense failed", err, "account_id", msg.AccountID)
	}

	slog.Info("Expense created", "expense_id", expense.ID, "splits", len(expense.Splits))
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// payerExpense loads an expense the caller paid for.
func (s *ExpenseService) payerExpense(ctx context.Context, expenseID, userID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.PayerID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "only the payer can change an expense")
	}
	return expense, nil
}

// UpdateExpense replaces an expense. The old splits are discarded and new
// ones generated in the same transaction.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	msg := req.Msg
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "UpdateExpense failed", err)
	}

	existing, err := s.payerExpense(ctx, msg.ExpenseID, userID)
	if err != nil {
		return nil, fail(s.metrics, "UpdateExpense failed", err, "expense_id", msg.ExpenseID)
	}

	expense, err := s.build(ctx, userID, expenseDraft{
		accountID:   msg.AccountID,
		amount:      msg.Amount,
		description: msg.Description,
		groupID:     msg.GroupID,
		split:       msg.Split,
	})
	if err != nil {
		return nil, fail(s.metrics, "UpdateExpense failed", err, "expense_id", msg.ExpenseID)
	}
	expense.ID = existing.ID
	expense.CreatedAt = existing.CreatedAt
	expense.Date = existing.Date
	if !msg.Date.IsZero() {
		expense.Date = msg.Date.UTC()
	}

	if err := s.store.ReplaceExpense(ctx, expense, msg.ExpectedVersion); err != nil {
		return nil, fail(s.metrics, "UpdateExpense failed", err, "expense_id", msg.ExpenseID)
	}

	slog.Info("Expense updated", "expense_id", expense.ID, "version", expense.Version)
	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// DeleteExpense removes an expense the caller paid for, with its splits.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	expenseID := req.Msg.ExpenseID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "DeleteExpense failed", err)
	}

	if _, err := s.payerExpense(ctx, expenseID, userID); err != nil {
		return nil, fail(s.metrics, "DeleteExpense failed", err, "expense_id", expenseID)
	}
	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return nil, fail(s.metrics, "DeleteExpense failed", err, "expense_id", expenseID)
	}

	slog.Info("Expense deleted", "expense_id", expenseID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// GetExpense returns an expense to its payer, its participants, or members of
// its group.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	expenseID := req.Msg.ExpenseID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "GetExpense failed", err)
	}

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, fail(s.metrics, "GetExpense failed", err, "expense_id", expenseID)
	}
	if !s.canView(ctx, expense, userID) {
		return nil, fail(s.metrics, "GetExpense failed", apperrors.ErrForbidden, "expense_id", expenseID)
	}

	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

func (s *ExpenseService) canView(ctx context.Context, expense *models.Expense, userID string) bool {
	if expense.PayerID == userID {
		return true
	}
	for _, split := range expense.Splits {
		if split.UserID == userID {
			return true
		}
	}
	if expense.GroupID == "" {
		return false
	}
	_, err := groupForMember(ctx, s.store, expense.GroupID, userID)
	return err == nil
}
