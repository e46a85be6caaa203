package service

import (
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// dateOrNow defaults a missing transaction date to the current time.
func dateOrNow(date time.Time) time.Time {
	if date.IsZero() {
		return time.Now().UTC().Truncate(time.Second)
	}
	return date.UTC()
}

func toAPIAccount(a *models.Account) api.Account {
	return api.Account{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Name:      a.Name,
		Category:  a.Category,
		Disabled:  a.Disabled,
		CreatedAt: unixTime(a.CreatedAt),
	}
}

func toAPIExpense(e *models.Expense) api.Expense {
	splits := make([]api.Share, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = api.Share{UserID: s.UserID, Amount: s.Amount}
	}
	return api.Expense{
		ID:          e.ID,
		AccountID:   e.AccountID,
		PayerID:     e.PayerID,
		Amount:      e.Amount,
		Date:        e.Date,
		Description: e.Description,
		GroupID:     e.GroupID,
		IsSplit:     e.IsSplit,
		Splits:      splits,
		Version:     e.Version,
		CreatedAt:   unixTime(e.CreatedAt),
		UpdatedAt:   unixTime(e.UpdatedAt),
	}
}

func toAPIGroup(g *models.Group) api.Group {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return api.Group{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		Members:   members,
		CreatedAt: unixTime(g.CreatedAt),
	}
}

func toAPISettlement(s *models.Settlement) api.Settlement {
	return api.Settlement{
		ID:             s.ID,
		GroupID:        s.GroupID,
		FromUserID:     s.FromUserID,
		ToUserID:       s.ToUserID,
		Amount:         s.Amount,
		CreatedAt:      unixTime(s.CreatedAt),
		CreatedBy:      s.CreatedBy,
		Note:           s.Note,
		IdempotencyKey: s.IdempotencyKey,
	}
}

func toAPISettlements(settlements []*models.Settlement) []api.Settlement {
	out := make([]api.Settlement, len(settlements))
	for i, s := range settlements {
		out[i] = toAPISettlement(s)
	}
	return out
}

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   unixTime(u.CreatedAt),
	}
}

func toAPIShares(shares []calculator.Share) []api.Share {
	out := make([]api.Share, len(shares))
	for i, s := range shares {
		out[i] = api.Share{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}

func toAPIDebts(edges []calculator.DebtEdge) []api.Debt {
	out := make([]api.Debt, len(edges))
	for i, e := range edges {
		out[i] = api.Debt{From: e.From, To: e.To, Amount: e.Amount}
	}
	return out
}
