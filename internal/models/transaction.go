package models

import "time"

// TransactionKind names a Transaction variant. It is the value stored in the
// kind column of the transactions table.
type TransactionKind string

const (
	KindIncome   TransactionKind = "income"
	KindExpense  TransactionKind = "expense"
	KindTransfer TransactionKind = "transfer"
)

// Transaction is a closed sum type over Income, Expense and Transfer.
// The unexported marker method keeps other packages from adding variants, so
// a type switch over the three cases is exhaustive.
type Transaction interface {
	Kind() TransactionKind
	TransactionID() string
	OccurredAt() time.Time
	isTransaction()
}

// Income credits an account.
type Income struct {
	ID          string
	AccountID   string
	Amount      Money
	Date        time.Time
	Description string
	CreatedAt   int64
}

// Expense debits the payer's account by the full amount. When IsSplit is set,
// Splits assign shares of Amount to participants.
type Expense struct {
	ID          string
	AccountID   string
	Amount      Money
	Date        time.Time
	Description string

	// IsSplit marks a shared expense. Splits always sum to Amount.
	IsSplit bool

	// GroupID is empty for personal expenses.
	GroupID string

	// PayerID is the owner of AccountID. Filled in by the store on read.
	PayerID string

	Splits []ExpenseSplit

	// Version increments on every replacement; used for optional
	// optimistic-concurrency checks on edits.
	Version int64

	CreatedAt int64
	UpdatedAt int64
}

// Transfer moves money between two accounts.
type Transfer struct {
	ID            string
	FromAccountID string
	ToAccountID   string
	Amount        Money
	Date          time.Time
	Description   string
	CreatedAt     int64
}

func (Income) Kind() TransactionKind   { return KindIncome }
func (Expense) Kind() TransactionKind  { return KindExpense }
func (Transfer) Kind() TransactionKind { return KindTransfer }

func (t Income) TransactionID() string   { return t.ID }
func (t Expense) TransactionID() string  { return t.ID }
func (t Transfer) TransactionID() string { return t.ID }

func (t Income) OccurredAt() time.Time   { return t.Date }
func (t Expense) OccurredAt() time.Time  { return t.Date }
func (t Transfer) OccurredAt() time.Time { return t.Date }

func (Income) isTransaction()   {}
func (Expense) isTransaction()  {}
func (Transfer) isTransaction() {}
