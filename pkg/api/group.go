package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = "ledger.v1.GroupService"

const (
	GroupServiceCreateGroupProcedure      = "/ledger.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure         = "/ledger.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure       = "/ledger.v1.GroupService/ListGroups"
	GroupServiceAddMembersProcedure       = "/ledger.v1.GroupService/AddMembers"
	GroupServiceRemoveMemberProcedure     = "/ledger.v1.GroupService/RemoveMember"
	GroupServiceGetGroupBalancesProcedure = "/ledger.v1.GroupService/GetGroupBalances"
	GroupServiceRecordSettlementProcedure = "/ledger.v1.GroupService/RecordSettlement"
	GroupServiceListSettlementsProcedure  = "/ledger.v1.GroupService/ListSettlements"
)

// CreateGroupRequest creates a group. The caller is always a member.
type CreateGroupRequest struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Members []string `json:"members,omitempty" validate:"omitempty,dive,required"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupResponse struct {
	Group Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"group_id" validate:"required"`
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

type AddMembersResponse struct {
	Group Group `json:"group"`
}

// RemoveMemberRequest drops a member. A member whose position is not zero is
// only removed with Force, which first records settlements that zero it.
type RemoveMemberRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Force   bool   `json:"force,omitempty"`
}

type RemoveMemberResponse struct {
	Group       Group        `json:"group"`
	Settlements []Settlement `json:"settlements,omitempty"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// GetGroupBalancesResponse carries three views of the same ledger: each
// user's net position, the net debt between every pair, and a plan that
// settles the group in as few payments as the greedy pass finds.
type GetGroupBalancesResponse struct {
	GroupID    string          `json:"group_id"`
	Balances   []MemberBalance `json:"balances"`
	Pairwise   []Debt          `json:"pairwise"`
	Simplified []Debt          `json:"simplified"`
}

// RecordSettlementRequest records that FromUserID paid ToUserID. Retrying
// with the same IdempotencyKey returns the first settlement.
type RecordSettlementRequest struct {
	GroupID        string       `json:"group_id" validate:"required"`
	FromUserID     string       `json:"from_user_id" validate:"required"`
	ToUserID       string       `json:"to_user_id" validate:"required"`
	Amount         models.Money `json:"amount" validate:"money_positive"`
	IdempotencyKey string       `json:"idempotency_key,omitempty" validate:"max=128"`
	Note           string       `json:"note,omitempty" validate:"max=500"`
}

type RecordSettlementResponse struct {
	Settlement Settlement `json:"settlement"`
	Replayed   bool       `json:"replayed"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

// GroupServiceHandler is implemented by the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	RecordSettlement(context.Context, *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAddMembersProcedure, connect.NewUnaryHandler(GroupServiceAddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(GroupServiceRemoveMemberProcedure, connect.NewUnaryHandler(GroupServiceRemoveMemberProcedure, svc.RemoveMember, opts...))
	mux.Handle(GroupServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(GroupServiceRecordSettlementProcedure, connect.NewUnaryHandler(GroupServiceRecordSettlementProcedure, svc.RecordSettlement, opts...))
	mux.Handle(GroupServiceListSettlementsProcedure, connect.NewUnaryHandler(GroupServiceListSettlementsProcedure, svc.ListSettlements, opts...))
	return "/" + GroupServiceName + "/", mux
}

// GroupServiceClient is a client for the GroupService service.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	RecordSettlement(context.Context, *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
}

// NewGroupServiceClient constructs a client for the GroupService service.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &groupServiceClient{
		createGroup:      connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:         connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:       connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMembers:       connect.NewClient[AddMembersRequest, AddMembersResponse](httpClient, baseURL+GroupServiceAddMembersProcedure, opts...),
		removeMember:     connect.NewClient[RemoveMemberRequest, RemoveMemberResponse](httpClient, baseURL+GroupServiceRemoveMemberProcedure, opts...),
		getGroupBalances: connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
		recordSettlement: connect.NewClient[RecordSettlementRequest, RecordSettlementResponse](httpClient, baseURL+GroupServiceRecordSettlementProcedure, opts...),
		listSettlements:  connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+GroupServiceListSettlementsProcedure, opts...),
	}
}

type groupServiceClient struct {
	createGroup      *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup         *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups       *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMembers       *connect.Client[AddMembersRequest, AddMembersResponse]
	removeMember     *connect.Client[RemoveMemberRequest, RemoveMemberResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	recordSettlement *connect.Client[RecordSettlementRequest, RecordSettlementResponse]
	listSettlements  *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *groupServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *groupServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}
