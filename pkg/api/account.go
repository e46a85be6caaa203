package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
)

// AccountServiceName is the fully-qualified name of the AccountService service.
const AccountServiceName = "ledger.v1.AccountService"

const (
	AccountServiceCreateAccountProcedure     = "/ledger.v1.AccountService/CreateAccount"
	AccountServiceListAccountsProcedure      = "/ledger.v1.AccountService/ListAccounts"
	AccountServiceDisableAccountProcedure    = "/ledger.v1.AccountService/DisableAccount"
	AccountServiceRecordIncomeProcedure      = "/ledger.v1.AccountService/RecordIncome"
	AccountServiceRecordTransferProcedure    = "/ledger.v1.AccountService/RecordTransfer"
	AccountServiceGetAccountBalanceProcedure = "/ledger.v1.AccountService/GetAccountBalance"
)

type CreateAccountRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Category string `json:"category,omitempty" validate:"omitempty,account_category"`
}

type CreateAccountResponse struct {
	Account Account `json:"account"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type DisableAccountRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

type DisableAccountResponse struct{}

type RecordIncomeRequest struct {
	AccountID   string       `json:"account_id" validate:"required"`
	Amount      models.Money `json:"amount" validate:"money_positive"`
	Date        time.Time    `json:"date"`
	Description string       `json:"description,omitempty" validate:"max=500"`
}

type RecordIncomeResponse struct {
	TransactionID string `json:"transaction_id"`
}

type RecordTransferRequest struct {
	FromAccountID string       `json:"from_account_id" validate:"required"`
	ToAccountID   string       `json:"to_account_id" validate:"required"`
	Amount        models.Money `json:"amount" validate:"money_positive"`
	Date          time.Time    `json:"date"`
	Description   string       `json:"description,omitempty" validate:"max=500"`
}

type RecordTransferResponse struct {
	TransactionID string `json:"transaction_id"`
}

// GetAccountBalanceRequest asks for an account's balance. When AsOf is set,
// transactions dated after it are left out.
type GetAccountBalanceRequest struct {
	AccountID string     `json:"account_id" validate:"required"`
	AsOf      *time.Time `json:"as_of,omitempty"`
}

type GetAccountBalanceResponse struct {
	AccountID string       `json:"account_id"`
	Balance   models.Money `json:"balance"`
}

// AccountServiceHandler is implemented by the account service.
type AccountServiceHandler interface {
	CreateAccount(context.Context, *connect.Request[CreateAccountRequest]) (*connect.Response[CreateAccountResponse], error)
	ListAccounts(context.Context, *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error)
	DisableAccount(context.Context, *connect.Request[DisableAccountRequest]) (*connect.Response[DisableAccountResponse], error)
	RecordIncome(context.Context, *connect.Request[RecordIncomeRequest]) (*connect.Response[RecordIncomeResponse], error)
	RecordTransfer(context.Context, *connect.Request[RecordTransferRequest]) (*connect.Response[RecordTransferResponse], error)
	GetAccountBalance(context.Context, *connect.Request[GetAccountBalanceRequest]) (*connect.Response[GetAccountBalanceResponse], error)
}

// NewAccountServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewAccountServiceHandler(svc AccountServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AccountServiceCreateAccountProcedure, connect.NewUnaryHandler(AccountServiceCreateAccountProcedure, svc.CreateAccount, opts...))
	mux.Handle(AccountServiceListAccountsProcedure, connect.NewUnaryHandler(AccountServiceListAccountsProcedure, svc.ListAccounts, opts...))
	mux.Handle(AccountServiceDisableAccountProcedure, connect.NewUnaryHandler(AccountServiceDisableAccountProcedure, svc.DisableAccount, opts...))
	mux.Handle(AccountServiceRecordIncomeProcedure, connect.NewUnaryHandler(AccountServiceRecordIncomeProcedure, svc.RecordIncome, opts...))
	mux.Handle(AccountServiceRecordTransferProcedure, connect.NewUnaryHandler(AccountServiceRecordTransferProcedure, svc.RecordTransfer, opts...))
	mux.Handle(AccountServiceGetAccountBalanceProcedure, connect.NewUnaryHandler(AccountServiceGetAccountBalanceProcedure, svc.GetAccountBalance, opts...))
	return "/" + AccountServiceName + "/", mux
}

// AccountServiceClient is a client for the AccountService service.
type AccountServiceClient interface {
	CreateAccount(context.Context, *connect.Request[CreateAccountRequest]) (*connect.Response[CreateAccountResponse], error)
	ListAccounts(context.Context, *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error)
	DisableAccount(context.Context, *connect.Request[DisableAccountRequest]) (*connect.Response[DisableAccountResponse], error)
	RecordIncome(context.Context, *connect.Request[RecordIncomeRequest]) (*connect.Response[RecordIncomeResponse], error)
	RecordTransfer(context.Context, *connect.Request[RecordTransferRequest]) (*connect.Response[RecordTransferResponse], error)
	GetAccountBalance(context.Context, *connect.Request[GetAccountBalanceRequest]) (*connect.Response[GetAccountBalanceResponse], error)
}

// NewAccountServiceClient constructs a client for the AccountService service.
// baseURL is the server root, e.g. http://localhost:8080.
func NewAccountServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AccountServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &accountServiceClient{
		createAccount:     connect.NewClient[CreateAccountRequest, CreateAccountResponse](httpClient, baseURL+AccountServiceCreateAccountProcedure, opts...),
		listAccounts:      connect.NewClient[ListAccountsRequest, ListAccountsResponse](httpClient, baseURL+AccountServiceListAccountsProcedure, opts...),
		disableAccount:    connect.NewClient[DisableAccountRequest, DisableAccountResponse](httpClient, baseURL+AccountServiceDisableAccountProcedure, opts...),
		recordIncome:      connect.NewClient[RecordIncomeRequest, RecordIncomeResponse](httpClient, baseURL+AccountServiceRecordIncomeProcedure, opts...),
		recordTransfer:    connect.NewClient[RecordTransferRequest, RecordTransferResponse](httpClient, baseURL+AccountServiceRecordTransferProcedure, opts...),
		getAccountBalance: connect.NewClient[GetAccountBalanceRequest, GetAccountBalanceResponse](httpClient, baseURL+AccountServiceGetAccountBalanceProcedure, opts...),
	}
}

type accountServiceClient struct {
	createAccount     *connect.Client[CreateAccountRequest, CreateAccountResponse]
	listAccounts      *connect.Client[ListAccountsRequest, ListAccountsResponse]
	disableAccount    *connect.Client[DisableAccountRequest, DisableAccountResponse]
	recordIncome      *connect.Client[RecordIncomeRequest, RecordIncomeResponse]
	recordTransfer    *connect.Client[RecordTransferRequest, RecordTransferResponse]
	getAccountBalance *connect.Client[GetAccountBalanceRequest, GetAccountBalanceResponse]
}

func (c *accountServiceClient) CreateAccount(ctx context.Context, req *connect.Request[CreateAccountRequest]) (*connect.Response[CreateAccountResponse], error) {
	return c.createAccount.CallUnary(ctx, req)
}

func (c *accountServiceClient) ListAccounts(ctx context.Context, req *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error) {
	return c.listAccounts.CallUnary(ctx, req)
}

func (c *accountServiceClient) DisableAccount(ctx context.Context, req *connect.Request[DisableAccountRequest]) (*connect.Response[DisableAccountResponse], error) {
	return c.disableAccount.CallUnary(ctx, req)
}

func (c *accountServiceClient) RecordIncome(ctx context.Context, req *connect.Request[RecordIncomeRequest]) (*connect.Response[RecordIncomeResponse], error) {
	return c.recordIncome.CallUnary(ctx, req)
}

func (c *accountServiceClient) RecordTransfer(ctx context.Context, req *connect.Request[RecordTransferRequest]) (*connect.Response[RecordTransferResponse], error) {
	return c.recordTransfer.CallUnary(ctx, req)
}

func (c *accountServiceClient) GetAccountBalance(ctx context.Context, req *connect.Request[GetAccountBalanceRequest]) (*connect.Response[GetAccountBalanceResponse], error) {
	return c.getAccountBalance.CallUnary(ctx, req)
}
