package middleware

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/pkg/api"
)

// ConnectError converts a ledger error into a Connect error. The AppError
// code travels in the api.ErrorCodeHeader metadata. Errors that are not
// AppErrors are reported as a generic internal error.
func ConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternal
	}

	var out *connect.Error
	switch appErr.Kind {
	case apperrors.KindInternal, apperrors.KindInvariant:
		// Storage details stay in the server log.
		out = connect.NewError(connect.CodeInternal, errors.New(appErr.Message))
	default:
		out = connect.NewError(codeFor(appErr), appErr)
	}
	out.Meta().Set(api.ErrorCodeHeader, appErr.Code)
	return out
}

func codeFor(appErr *apperrors.AppError) connect.Code {
	switch appErr.Kind {
	case apperrors.KindValidation:
		return connect.CodeInvalidArgument
	case apperrors.KindNotFound:
		return connect.CodeNotFound
	case apperrors.KindConflict:
		switch appErr.Code {
		case apperrors.ErrDuplicateEmail.Code:
			return connect.CodeAlreadyExists
		case apperrors.ErrStaleExpense.Code:
			return connect.CodeAborted
		}
		return connect.CodeFailedPrecondition
	case apperrors.KindPermission:
		if appErr.Code == apperrors.ErrUnauthenticated.Code {
			return connect.CodeUnauthenticated
		}
		return connect.CodePermissionDenied
	default:
		return connect.CodeInternal
	}
}
