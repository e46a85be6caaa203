package api

import (
	"time"

	"github.com/mmynk/splitledger/internal/models"
)

// Account is a user-owned money container.
type Account struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Share is one participant's portion of an expense.
type Share struct {
	UserID string       `json:"user_id" validate:"required"`
	Amount models.Money `json:"amount"`
}

// SplitInput describes how an expense is shared. Exactly one of Participants
// (even split) or Shares (exact amounts) is set.
type SplitInput struct {
	Participants []string `json:"participants,omitempty" validate:"omitempty,dive,required"`
	Shares       []Share  `json:"shares,omitempty" validate:"omitempty,dive"`
}

// Expense is a debit on the payer's account, optionally split.
type Expense struct {
	ID          string       `json:"id"`
	AccountID   string       `json:"account_id"`
	PayerID     string       `json:"payer_id"`
	Amount      models.Money `json:"amount"`
	Date        time.Time    `json:"date"`
	Description string       `json:"description,omitempty"`
	GroupID     string       `json:"group_id,omitempty"`
	IsSplit     bool         `json:"is_split"`
	Splits      []Share      `json:"splits,omitempty"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Group is a set of people sharing expenses.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// Settlement is a recorded real-world payment between two users of a group.
type Settlement struct {
	ID             string       `json:"id"`
	GroupID        string       `json:"group_id"`
	FromUserID     string       `json:"from_user_id"`
	ToUserID       string       `json:"to_user_id"`
	Amount         models.Money `json:"amount"`
	CreatedAt      time.Time    `json:"created_at"`
	CreatedBy      string       `json:"created_by"`
	Note           string       `json:"note,omitempty"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
}

// MemberBalance is one user's net position in a group. Positive NetBalance
// means the group owes the user.
type MemberBalance struct {
	UserID     string       `json:"user_id"`
	NetBalance models.Money `json:"net_balance"`
	YouOwe     models.Money `json:"you_owe"`
	OwedToYou  models.Money `json:"owed_to_you"`
	Settled    bool         `json:"settled"`
	IsMember   bool         `json:"is_member"`
	Lent       models.Money `json:"lent"`
	Borrowed   models.Money `json:"borrowed"`
	SettledOut models.Money `json:"settled_out"`
	SettledIn  models.Money `json:"settled_in"`
}

// Debt says From owes To Amount.
type Debt struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Amount models.Money `json:"amount"`
}

// User is a registered identity.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}
