package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
)

// ExpenseServiceName is the fully-qualified name of the ExpenseService service.
const ExpenseServiceName = "ledger.v1.ExpenseService"

const (
	ExpenseServiceAllocateSplitProcedure = "/ledger.v1.ExpenseService/AllocateSplit"
	ExpenseServiceCreateExpenseProcedure = "/ledger.v1.ExpenseService/CreateExpense"
	ExpenseServiceUpdateExpenseProcedure = "/ledger.v1.ExpenseService/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure = "/ledger.v1.ExpenseService/DeleteExpense"
	ExpenseServiceGetExpenseProcedure    = "/ledger.v1.ExpenseService/GetExpense"
)

// AllocateSplitRequest previews how Total would be shared. Nothing is written.
type AllocateSplitRequest struct {
	Total models.Money `json:"total" validate:"money_positive"`
	Split SplitInput   `json:"split"`
}

type AllocateSplitResponse struct {
	Shares []Share `json:"shares"`
}

// CreateExpenseRequest records an expense paid from AccountID. With Split set
// the expense is shared; with GroupID also set it feeds that group's balances.
type CreateExpenseRequest struct {
	AccountID   string       `json:"account_id" validate:"required"`
	Amount      models.Money `json:"amount" validate:"money_positive"`
	Date        time.Time    `json:"date"`
	Description string       `json:"description,omitempty" validate:"max=500"`
	GroupID     string       `json:"group_id,omitempty"`
	Split       *SplitInput  `json:"split,omitempty" validate:"required_with=GroupID"`
}

type CreateExpenseResponse struct {
	Expense Expense `json:"expense"`
}

// UpdateExpenseRequest replaces an expense and regenerates its splits. When
// ExpectedVersion is nonzero the update fails if someone else edited first.
type UpdateExpenseRequest struct {
	ExpenseID       string       `json:"expense_id" validate:"required"`
	ExpectedVersion int64        `json:"expected_version,omitempty" validate:"min=0"`
	AccountID       string       `json:"account_id" validate:"required"`
	Amount          models.Money `json:"amount" validate:"money_positive"`
	Date            time.Time    `json:"date"`
	Description     string       `json:"description,omitempty" validate:"max=500"`
	GroupID         string       `json:"group_id,omitempty"`
	Split           *SplitInput  `json:"split,omitempty" validate:"required_with=GroupID"`
}

type UpdateExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
}

type DeleteExpenseResponse struct{}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
}

type GetExpenseResponse struct {
	Expense Expense `json:"expense"`
}

// ExpenseServiceHandler is implemented by the expense service.
type ExpenseServiceHandler interface {
	AllocateSplit(context.Context, *connect.Request[AllocateSplitRequest]) (*connect.Response[AllocateSplitResponse], error)
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ExpenseServiceAllocateSplitProcedure, connect.NewUnaryHandler(ExpenseServiceAllocateSplitProcedure, svc.AllocateSplit, opts...))
	mux.Handle(ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(ExpenseServiceUpdateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceUpdateExpenseProcedure, svc.UpdateExpense, opts...))
	mux.Handle(ExpenseServiceDeleteExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(ExpenseServiceGetExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...))
	return "/" + ExpenseServiceName + "/", mux
}

// ExpenseServiceClient is a client for the ExpenseService service.
type ExpenseServiceClient interface {
	AllocateSplit(context.Context, *connect.Request[AllocateSplitRequest]) (*connect.Response[AllocateSplitResponse], error)
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
}

// NewExpenseServiceClient constructs a client for the ExpenseService service.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &expenseServiceClient{
		allocateSplit: connect.NewClient[AllocateSplitRequest, AllocateSplitResponse](httpClient, baseURL+ExpenseServiceAllocateSplitProcedure, opts...),
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		updateExpense: connect.NewClient[UpdateExpenseRequest, UpdateExpenseResponse](httpClient, baseURL+ExpenseServiceUpdateExpenseProcedure, opts...),
		deleteExpense: connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
		getExpense:    connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+ExpenseServiceGetExpenseProcedure, opts...),
	}
}

type expenseServiceClient struct {
	allocateSplit *connect.Client[AllocateSplitRequest, AllocateSplitResponse]
	createExpense *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	updateExpense *connect.Client[UpdateExpenseRequest, UpdateExpenseResponse]
	deleteExpense *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	getExpense    *connect.Client[GetExpenseRequest, GetExpenseResponse]
}

func (c *expenseServiceClient) AllocateSplit(ctx context.Context, req *connect.Request[AllocateSplitRequest]) (*connect.Response[AllocateSplitResponse], error) {
	return c.allocateSplit.CallUnary(ctx, req)
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}
