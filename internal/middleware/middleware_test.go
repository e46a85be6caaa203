package middleware

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/pkg/api"
)

func TestConnectError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode connect.Code
		wantMeta string
	}{
		{"validation", apperrors.ErrSplitSumMismatch, connect.CodeInvalidArgument, "SPLIT_SUM_MISMATCH"},
		{"not found", apperrors.WithMessage(apperrors.ErrGroupNotFound, "group not found: g1"), connect.CodeNotFound, "GROUP_NOT_FOUND"},
		{"amount out of range", apperrors.ErrAmountOutOfRange, connect.CodeInvalidArgument, "AMOUNT_OUT_OF_RANGE"},
		{"malformed settlement", apperrors.Wrap(apperrors.ErrSettlementInvariant, errors.New("s1 to self")), connect.CodeInternal, "SETTLEMENT_INVARIANT"},
		{"stale", apperrors.ErrStaleExpense, connect.CodeAborted, "STALE_EXPENSE"},
		{"duplicate email", apperrors.ErrDuplicateEmail, connect.CodeAlreadyExists, "DUPLICATE_EMAIL"},
		{"member balance", apperrors.ErrMemberHasBalance, connect.CodeFailedPrecondition, "MEMBER_HAS_BALANCE"},
		{"forbidden", apperrors.ErrForbidden, connect.CodePermissionDenied, "FORBIDDEN"},
		{"unauthenticated", apperrors.ErrUnauthenticated, connect.CodeUnauthenticated, "UNAUTHENTICATED"},
		{"invariant", apperrors.Wrap(apperrors.ErrConservationViolated, errors.New("sum 1")), connect.CodeInternal, "CONSERVATION_VIOLATED"},
		{"wrapped", fmt.Errorf("create: %w", apperrors.ErrNotParticipant), connect.CodeInvalidArgument, "NOT_PARTICIPANT"},
		{"plain", errors.New("disk on fire"), connect.CodeInternal, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ConnectError(tt.err)
			if got := connect.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %v, want %v", got, tt.wantCode)
			}
			if got := api.ErrorCode(err); got != tt.wantMeta {
				t.Errorf("error code = %q, want %q", got, tt.wantMeta)
			}
		})
	}

	t.Run("internal details are hidden", func(t *testing.T) {
		err := ConnectError(fmt.Errorf("failed to insert: %w", errors.New("SQLITE_BUSY")))
		var connectErr *connect.Error
		if !errors.As(err, &connectErr) {
			t.Fatalf("expected connect error, got %T", err)
		}
		if connectErr.Message() != apperrors.ErrInternal.Message {
			t.Errorf("message = %q, want %q", connectErr.Message(), apperrors.ErrInternal.Message)
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := ConnectError(nil); err != nil {
			t.Errorf("ConnectError(nil) = %v", err)
		}
	})
}

// counterValue reads one labelled counter back out of the registry.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SettlementRecorded()
	m.SettlementRecorded()
	m.SettlementReplayed()
	m.InvariantViolated("SPLIT_INVARIANT")

	if got := counterValue(t, reg, "splitledger_settlements_total", "outcome", "recorded"); got != 2 {
		t.Errorf("recorded = %v, want 2", got)
	}
	if got := counterValue(t, reg, "splitledger_settlements_total", "outcome", "replayed"); got != 1 {
		t.Errorf("replayed = %v, want 1", got)
	}
	if got := counterValue(t, reg, "splitledger_invariant_violations_total", "code", "SPLIT_INVARIANT"); got != 1 {
		t.Errorf("invariant violations = %v, want 1", got)
	}
}
