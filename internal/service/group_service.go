package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

// forcedRemovalNote marks settlements recorded to zero a member on removal.
const forcedRemovalNote = "balance cleared on member removal"

// GroupService implements the Connect GroupService
type GroupService struct {
	store   storage.Store
	metrics *middleware.Metrics

	// idempotencyWindow bounds how long a settlement idempotency key is remembered.
	idempotencyWindow time.Duration
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, metrics *middleware.Metrics, idempotencyWindow time.Duration) *GroupService {
	return &GroupService{store: store, metrics: metrics, idempotencyWindow: idempotencyWindow}
}

// CreateGroup creates a new group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "CreateGroup failed", err)
	}

	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	group := &models.Group{
		Name:    req.Msg.Name,
		OwnerID: userID,
		Members: append([]string{userID}, req.Msg.Members...),
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fail(s.metrics, "CreateGroup failed", err)
	}

	slog.Info("Group created", "group_id", group.ID, "members", group.Members)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	groupID := req.Msg.GroupID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "GetGroup failed", err)
	}

	group, err := groupForMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, fail(s.metrics, "GetGroup failed", err, "group_id", groupID)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "ListGroups failed", err)
	}

	groups, err := s.store.ListGroupsByMember(ctx, userID)
	if err != nil {
		return nil, fail(s.metrics, "ListGroups failed", err, "user_id", userID)
	}

	out := make([]api.Group, len(groups))
	for i, group := range groups {
		out[i] = toAPIGroup(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds users to a group the caller belongs to.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	groupID := req.Msg.GroupID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "AddMembers failed", err)
	}

	if _, err := groupForMember(ctx, s.store, groupID, userID); err != nil {
		return nil, fail(s.metrics, "AddMembers failed", err, "group_id", groupID)
	}
	if err := s.store.AddGroupMembers(ctx, groupID, req.Msg.UserIDs); err != nil {
		return nil, fail(s.metrics, "AddMembers failed", err, "group_id", groupID)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fail(s.metrics, "AddMembers failed", err, "group_id", groupID)
	}

	slog.Info("Members added", "group_id", groupID, "user_ids", req.Msg.UserIDs)
	return connect.NewResponse(&api.AddMembersResponse{Group: toAPIGroup(group)}), nil
}

// RemoveMember drops a member from the group. A member who still owes or is
// owed money stays unless Force is set; then settlements that clear every
// pairwise debt of theirs are recorded in the same transaction as the removal.
// The member's past expenses and settlements remain part of the ledger.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	msg := req.Msg
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "RemoveMember failed", err)
	}

	if _, err := groupForMember(ctx, s.store, msg.GroupID, userID); err != nil {
		return nil, fail(s.metrics, "RemoveMember failed", err, "group_id", msg.GroupID)
	}

	var recorded []*models.Settlement
	plan := func(history *storage.GroupHistory) ([]*models.Settlement, error) {
		ledger, err := ledgerFromHistory(history)
		if err != nil {
			return nil, err
		}
		position := ledger.NetPositions()[msg.UserID]
		if calculator.IsSettled(position) {
			return nil, nil
		}
		if !msg.Force {
			return nil, apperrors.WithMessage(apperrors.ErrMemberHasBalance,
				fmt.Sprintf("member %s has a net position of %s", msg.UserID, position))
		}

		// Pay off each pairwise edge touching the member, in both directions.
		recorded = recorded[:0]
		for _, edge := range ledger.Pairwise() {
			if edge.From != msg.UserID && edge.To != msg.UserID {
				continue
			}
			recorded = append(recorded, &models.Settlement{
				FromUserID: edge.From,
				ToUserID:   edge.To,
				Amount:     edge.Amount,
				CreatedBy:  userID,
				Note:       forcedRemovalNote,
			})
		}
		return recorded, nil
	}

	if err := s.store.RemoveGroupMember(ctx, msg.GroupID, msg.UserID, plan); err != nil {
		return nil, fail(s.metrics, "RemoveMember failed", err,
			"group_id", msg.GroupID, "user_id", msg.UserID, "force", msg.Force)
	}
	for range recorded {
		s.metrics.SettlementRecorded()
	}

	group, err := s.store.GetGroup(ctx, msg.GroupID)
	if err != nil {
		return nil, fail(s.metrics, "RemoveMember failed", err, "group_id", msg.GroupID)
	}

	slog.Info("Member removed",
		"group_id", msg.GroupID,
		"user_id", msg.UserID,
		"offsetting_settlements", len(recorded),
	)
	return connect.NewResponse(&api.RemoveMemberResponse{
		Group:       toAPIGroup(group),
		Settlements: toAPISettlements(recorded),
	}), nil
}

// ledgerFromHistory replays a group's history into a netting ledger. Current
// members are always present, even with no history.
func ledgerFromHistory(history *storage.GroupHistory) (*calculator.GroupLedger, error) {
	ledger := calculator.NewGroupLedger(history.Members...)
	for _, e := range history.Expenses {
		if !e.IsSplit {
			continue
		}
		shares := make([]calculator.Share, len(e.Splits))
		for i, split := range e.Splits {
			shares[i] = calculator.Share{UserID: split.UserID, Amount: split.Amount}
		}
		err := ledger.ApplyExpense(calculator.ExpenseForBalance{
			ID:      e.ID,
			PayerID: e.PayerID,
			Amount:  e.Amount,
			Splits:  shares,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, st := range history.Settlements {
		err := ledger.ApplySettlement(calculator.SettlementForBalance{
			ID:         st.ID,
			FromUserID: st.FromUserID,
			ToUserID:   st.ToUserID,
			Amount:     st.Amount,
		})
		if err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// GetGroupBalances calculates who owes whom across the group's whole history.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "GetGroupBalances failed", err)
	}
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	if _, err := groupForMember(ctx, s.store, groupID, userID); err != nil {
		return nil, fail(s.metrics, "GetGroupBalances failed", err, "group_id", groupID)
	}

	history, err := s.store.GetGroupHistory(ctx, groupID)
	if err != nil {
		return nil, fail(s.metrics, "GetGroupBalances failed", err, "group_id", groupID)
	}
	ledger, err := ledgerFromHistory(history)
	if err != nil {
		return nil, fail(s.metrics, "GetGroupBalances failed", err, "group_id", groupID)
	}

	current := make(map[string]bool, len(history.Members))
	for _, m := range history.Members {
		current[m] = true
	}

	memberBalances := ledger.Balances()
	balances := make([]api.MemberBalance, len(memberBalances))
	for i, bal := range memberBalances {
		balances[i] = api.MemberBalance{
			UserID:     bal.UserID,
			NetBalance: bal.NetBalance,
			YouOwe:     calculator.YouOwe(bal.NetBalance),
			OwedToYou:  calculator.OwedToYou(bal.NetBalance),
			Settled:    calculator.IsSettled(bal.NetBalance),
			IsMember:   current[bal.UserID],
			Lent:       bal.Lent,
			Borrowed:   bal.Borrowed,
			SettledOut: bal.SettledOut,
			SettledIn:  bal.SettledIn,
		}
	}
	pairwise := ledger.Pairwise()
	simplified := ledger.Simplify()

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"expenses_count", len(history.Expenses),
		"settlements_count", len(history.Settlements),
		"members_count", len(balances),
		"debts_count", len(pairwise),
	)

	return connect.NewResponse(&api.GetGroupBalancesResponse{
		GroupID:    groupID,
		Balances:   balances,
		Pairwise:   toAPIDebts(pairwise),
		Simplified: toAPIDebts(simplified),
	}), nil
}

// participants returns everyone who has ever taken part in the group's
// ledger: current members, payers, split participants and settlement parties.
func participants(history *storage.GroupHistory) map[string]bool {
	seen := make(map[string]bool)
	for _, m := range history.Members {
		seen[m] = true
	}
	for _, e := range history.Expenses {
		seen[e.PayerID] = true
		for _, split := range e.Splits {
			seen[split.UserID] = true
		}
	}
	for _, st := range history.Settlements {
		seen[st.FromUserID] = true
		seen[st.ToUserID] = true
	}
	return seen
}

// RecordSettlement appends a settlement. A retry carrying an idempotency key
// already used in this group within the window returns the original
// settlement instead of recording a second one.
func (s *GroupService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	msg := req.Msg
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "RecordSettlement failed", err)
	}

	slog.Info("RecordSettlement request received",
		"group_id", msg.GroupID,
		"from_user_id", msg.FromUserID,
		"to_user_id", msg.ToUserID,
		"amount", msg.Amount,
		"idempotency_key", msg.IdempotencyKey,
	)

	if msg.FromUserID == msg.ToUserID {
		return nil, fail(s.metrics, "RecordSettlement failed", apperrors.ErrSelfSettlement, "group_id", msg.GroupID)
	}
	if _, err := groupForMember(ctx, s.store, msg.GroupID, userID); err != nil {
		return nil, fail(s.metrics, "RecordSettlement failed", err, "group_id", msg.GroupID)
	}

	history, err := s.store.GetGroupHistory(ctx, msg.GroupID)
	if err != nil {
		return nil, fail(s.metrics, "RecordSettlement failed", err, "group_id", msg.GroupID)
	}
	known := participants(history)
	for _, u := range []string{msg.FromUserID, msg.ToUserID} {
		if !known[u] {
			return nil, fail(s.metrics, "RecordSettlement failed",
				apperrors.WithMessage(apperrors.ErrNotParticipant,
					fmt.Sprintf("user %s has never taken part in group %s", u, msg.GroupID)),
				"group_id", msg.GroupID)
		}
	}

	settlement := &models.Settlement{
		GroupID:        msg.GroupID,
		FromUserID:     msg.FromUserID,
		ToUserID:       msg.ToUserID,
		Amount:         msg.Amount,
		CreatedBy:      userID,
		Note:           msg.Note,
		IdempotencyKey: msg.IdempotencyKey,
	}
	replayed, err := s.store.CreateSettlement(ctx, settlement, s.idempotencyWindow)
	if err != nil {
		return nil, fail(s.metrics, "RecordSettlement failed", err, "group_id", msg.GroupID)
	}

	if replayed {
		s.metrics.SettlementReplayed()
		slog.Info("Settlement replayed", "settlement_id", settlement.ID, "idempotency_key", msg.IdempotencyKey)
	} else {
		s.metrics.SettlementRecorded()
		slog.Info("Settlement recorded", "settlement_id", settlement.ID, "group_id", msg.GroupID)
	}

	return connect.NewResponse(&api.RecordSettlementResponse{
		Settlement: toAPISettlement(settlement),
		Replayed:   replayed,
	}), nil
}

// ListSettlements returns the group's settlements, oldest first.
func (s *GroupService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	groupID := req.Msg.GroupID
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, fail(s.metrics, "ListSettlements failed", err)
	}

	if _, err := groupForMember(ctx, s.store, groupID, userID); err != nil {
		return nil, fail(s.metrics, "ListSettlements failed", err, "group_id", groupID)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return nil, fail(s.metrics, "ListSettlements failed", err, "group_id", groupID)
	}

	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: toAPISettlements(settlements)}), nil
}
