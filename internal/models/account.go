package models

// Account is a user-owned money container (cash wallet, bank account, card).
// Accounts are never deleted while referenced; they are disabled instead.
type Account struct {
	ID      string
	OwnerID string
	Name    string

	// Category is a free-form presentation tag such as "cash" or "bank".
	Category string

	Disabled  bool
	CreatedAt int64
}
