package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// fail logs err at a level matching its kind and converts it for the wire.
// Invariant violations are also counted.
func fail(metrics *middleware.Metrics, msg string, err error, attrs ...any) error {
	attrs = append(attrs, "error", err)

	var appErr *apperrors.AppError
	isAppErr := errors.As(err, &appErr)
	switch {
	case isAppErr && appErr.Kind == apperrors.KindInvariant:
		metrics.InvariantViolated(appErr.Code)
		slog.Error(msg+": ledger invariant violated", attrs...)
	case !isAppErr || appErr.Kind == apperrors.KindInternal:
		slog.Error(msg, attrs...)
	default:
		slog.Warn(msg, attrs...)
	}
	return middleware.ConnectError(err)
}

// requireUser returns the authenticated caller's ID.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return userID, nil
}

// groupForMember loads a group the caller belongs to.
func groupForMember(ctx context.Context, store storage.GroupStore, groupID, userID string) (*models.Group, error) {
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "not a member of this group")
	}
	return group, nil
}

// ownedAccount loads an account owned by the caller.
func ownedAccount(ctx context.Context, store storage.AccountStore, accountID, userID string) (*models.Account, error) {
	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "account belongs to another user")
	}
	return account, nil
}

// activeAccount is ownedAccount that also refuses disabled accounts.
func activeAccount(ctx context.Context, store storage.AccountStore, accountID, userID string) (*models.Account, error) {
	account, err := ownedAccount(ctx, store, accountID, userID)
	if err != nil {
		return nil, err
	}
	if account.Disabled {
		return nil, apperrors.WithMessage(apperrors.ErrAccountDisabled, "account is disabled: "+accountID)
	}
	return account, nil
}
