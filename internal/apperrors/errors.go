// Package apperrors defines the ledger's error taxonomy.
//
// Every domain failure is an *AppError carrying a Kind (how the caller should
// react) and a stable Code (what went wrong). errors.Is compares codes, so a
// sentinel still matches after WithMessage or Wrap.
package apperrors

import "errors"

// Kind classifies an error by how a caller recovers from it.
type Kind int

const (
	// KindInternal is an unexpected failure (storage, I/O).
	KindInternal Kind = iota
	// KindValidation is bad input; rejected before any write.
	KindValidation
	// KindNotFound is an unknown account, group, expense or settlement.
	KindNotFound
	// KindConflict is a request that is well-formed but clashes with current state.
	KindConflict
	// KindPermission is an authenticated caller acting outside their own data.
	KindPermission
	// KindInvariant is a ledger bug: a split sum or conservation check failed.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindInvariant:
		return "invariant"
	default:
		return "internal"
	}
}

// AppError is a structured ledger error.
type AppError struct {
	Kind     Kind
	Code     string
	Message  string
	Internal error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the sentinel's code and message wrapping internal.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Kind:     sentinel.Kind,
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Kind:     sentinel.Kind,
		Code:     sentinel.Code,
		Message:  message,
		Internal: sentinel.Internal,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Validation errors.
var (
	ErrInvalidInput         = &AppError{Kind: KindValidation, Code: "INVALID_INPUT", Message: "invalid input"}
	ErrEmptyParticipants    = &AppError{Kind: KindValidation, Code: "EMPTY_PARTICIPANTS", Message: "at least one participant is required"}
	ErrNonPositiveAmount    = &AppError{Kind: KindValidation, Code: "NON_POSITIVE_AMOUNT", Message: "amount must be greater than zero"}
	ErrDuplicateParticipant = &AppError{Kind: KindValidation, Code: "DUPLICATE_PARTICIPANT", Message: "participant listed more than once"}
	ErrSplitSumMismatch     = &AppError{Kind: KindValidation, Code: "SPLIT_SUM_MISMATCH", Message: "split amounts do not add up to the expense total"}
	ErrSelfSettlement       = &AppError{Kind: KindValidation, Code: "SELF_SETTLEMENT", Message: "cannot settle with yourself"}
	ErrNotParticipant       = &AppError{Kind: KindValidation, Code: "NOT_PARTICIPANT", Message: "user has never taken part in this group's ledger"}
	ErrNotGroupMember       = &AppError{Kind: KindValidation, Code: "NOT_GROUP_MEMBER", Message: "user is not a member of this group"}
	ErrSameAccountTransfer  = &AppError{Kind: KindValidation, Code: "SAME_ACCOUNT_TRANSFER", Message: "cannot transfer to the same account"}
	ErrAccountDisabled      = &AppError{Kind: KindValidation, Code: "ACCOUNT_DISABLED", Message: "account is disabled"}
	ErrAmountOutOfRange     = &AppError{Kind: KindValidation, Code: "AMOUNT_OUT_OF_RANGE", Message: "amount is too large"}
)

// Not-found errors.
var (
	ErrAccountNotFound    = &AppError{Kind: KindNotFound, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
	ErrGroupNotFound      = &AppError{Kind: KindNotFound, Code: "GROUP_NOT_FOUND", Message: "group not found"}
	ErrExpenseNotFound    = &AppError{Kind: KindNotFound, Code: "EXPENSE_NOT_FOUND", Message: "expense not found"}
	ErrSettlementNotFound = &AppError{Kind: KindNotFound, Code: "SETTLEMENT_NOT_FOUND", Message: "settlement not found"}
	ErrUserNotFound       = &AppError{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
)

// Conflict errors.
var (
	ErrMemberHasBalance = &AppError{Kind: KindConflict, Code: "MEMBER_HAS_BALANCE", Message: "member still has an outstanding balance in this group"}
	ErrStaleExpense     = &AppError{Kind: KindConflict, Code: "STALE_EXPENSE", Message: "expense was modified by someone else"}
	ErrDuplicateEmail   = &AppError{Kind: KindConflict, Code: "DUPLICATE_EMAIL", Message: "email already registered"}
)

// Permission errors.
var (
	ErrUnauthenticated = &AppError{Kind: KindPermission, Code: "UNAUTHENTICATED", Message: "authentication required"}
	ErrForbidden       = &AppError{Kind: KindPermission, Code: "FORBIDDEN", Message: "access denied"}
)

// Invariant violations. These indicate a bug in the ledger itself.
var (
	ErrConservationViolated = &AppError{Kind: KindInvariant, Code: "CONSERVATION_VIOLATED", Message: "group net positions do not sum to zero"}
	ErrSplitInvariant       = &AppError{Kind: KindInvariant, Code: "SPLIT_INVARIANT", Message: "stored splits do not sum to the expense total"}
	ErrSettlementInvariant  = &AppError{Kind: KindInvariant, Code: "SETTLEMENT_INVARIANT", Message: "stored settlement is malformed"}
	ErrAmountOverflow       = &AppError{Kind: KindInvariant, Code: "AMOUNT_OVERFLOW", Message: "ledger totals exceed the representable range"}
)

// Internal errors.
var (
	ErrInternal = &AppError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
)
