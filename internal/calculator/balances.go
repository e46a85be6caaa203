package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
)

// ExpenseForBalance is a group expense with the minimal information needed for
// netting: who paid and how the amount was split.
type ExpenseForBalance struct {
	ID      string
	PayerID string
	Amount  models.Money
	Splits  []Share
}

// SettlementForBalance represents a settlement with the minimal information needed for balance calculations.
type SettlementForBalance struct {
	ID         string
	FromUserID string // Who paid (debtor settling up)
	ToUserID   string // Who received (creditor being paid)
	Amount     models.Money
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	UserID     string
	NetBalance models.Money // Positive = owed money, Negative = owes money
	Lent       models.Money // Shares of others in expenses this member paid
	Borrowed   models.Money // This member's shares in expenses others paid
	SettledOut models.Money // Settlements this member paid
	SettledIn  models.Money // Settlements this member received
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount models.Money
}

// GroupLedger accumulates a group's expenses and settlements into a pairwise
// debt matrix. Positions are always derived from the matrix, so the
// who-owes-whom view survives aggregation.
//
// A GroupLedger is not safe for concurrent use; build one per request.
type GroupLedger struct {
	// owes[debtor][creditor] is the gross amount debtor owes creditor.
	owes     map[string]map[string]models.Money
	balances map[string]*MemberBalance
	events   int
}

// NewGroupLedger returns an empty ledger. Members are reported with a zero
// position even when they never appear in the history.
func NewGroupLedger(members ...string) *GroupLedger {
	l := &GroupLedger{
		owes:     make(map[string]map[string]models.Money),
		balances: make(map[string]*MemberBalance),
	}
	for _, m := range members {
		l.member(m)
	}
	return l
}

func (l *GroupLedger) member(userID string) *MemberBalance {
	bal, ok := l.balances[userID]
	if !ok {
		bal = &MemberBalance{UserID: userID}
		l.balances[userID] = bal
	}
	return bal
}

// addDebt moves amount onto owes[debtor][creditor]. The gross entry and the
// pair's net must both stay representable.
func (l *GroupLedger) addDebt(debtor, creditor string, amount models.Money) error {
	row, ok := l.owes[debtor]
	if !ok {
		row = make(map[string]models.Money)
		l.owes[debtor] = row
	}
	gross, ok := row[creditor].Add(amount)
	if !ok {
		return overflow("debt from %s to %s", debtor, creditor)
	}
	if _, ok := gross.Sub(l.owes[creditor][debtor]); !ok {
		return overflow("net debt between %s and %s", debtor, creditor)
	}
	row[creditor] = gross
	return nil
}

// accumulate adds amount to *total without wrapping.
func accumulate(total *models.Money, amount models.Money, what string) error {
	sum, ok := total.Add(amount)
	if !ok {
		return overflow("%s", what)
	}
	*total = sum
	return nil
}

func overflow(format string, args ...any) error {
	return apperrors.Wrap(apperrors.ErrAmountOverflow,
		fmt.Errorf(format+" overflows", args...))
}

// ApplyExpense records that every split participant other than the payer owes
// the payer their share. A payer never owes themselves.
//
// The expense's splits must sum to its amount; a mismatch means the store holds
// a broken expense and is reported as an invariant violation.
func (l *GroupLedger) ApplyExpense(e ExpenseForBalance) error {
	if e.PayerID == "" {
		return apperrors.Wrap(apperrors.ErrSplitInvariant, fmt.Errorf("expense %s has no payer", e.ID))
	}
	var sum models.Money
	for _, s := range e.Splits {
		var ok bool
		if sum, ok = sum.Add(s.Amount); !ok {
			return apperrors.Wrap(apperrors.ErrSplitInvariant,
				fmt.Errorf("expense %s: splits total overflows", e.ID))
		}
	}
	if sum != e.Amount {
		return apperrors.Wrap(apperrors.ErrSplitInvariant,
			fmt.Errorf("expense %s: splits total %s, expense amount %s", e.ID, sum, e.Amount))
	}

	payer := l.member(e.PayerID)
	for _, s := range e.Splits {
		participant := l.member(s.UserID)
		if s.UserID == e.PayerID {
			continue
		}
		if err := l.addDebt(s.UserID, e.PayerID, s.Amount); err != nil {
			return err
		}
		if err := accumulate(&payer.Lent, s.Amount, "lent by "+e.PayerID); err != nil {
			return err
		}
		if err := accumulate(&participant.Borrowed, s.Amount, "borrowed by "+s.UserID); err != nil {
			return err
		}
	}
	return l.checkConservation()
}

// ApplySettlement records a payment from FromUserID to ToUserID. The payer's
// debt to the receiver shrinks by the amount; overpaying flips the direction.
func (l *GroupLedger) ApplySettlement(s SettlementForBalance) error {
	if s.FromUserID == s.ToUserID {
		return apperrors.Wrap(apperrors.ErrSettlementInvariant,
			fmt.Errorf("settlement %s pays %s to themselves", s.ID, s.FromUserID))
	}
	if s.Amount <= 0 {
		return apperrors.Wrap(apperrors.ErrSettlementInvariant,
			fmt.Errorf("settlement %s has non-positive amount %s", s.ID, s.Amount))
	}
	if err := l.addDebt(s.FromUserID, s.ToUserID, -s.Amount); err != nil {
		return err
	}
	if err := accumulate(&l.member(s.FromUserID).SettledOut, s.Amount, "settled by "+s.FromUserID); err != nil {
		return err
	}
	if err := accumulate(&l.member(s.ToUserID).SettledIn, s.Amount, "settled to "+s.ToUserID); err != nil {
		return err
	}
	return l.checkConservation()
}

// checkConservation verifies that net positions sum to zero. It runs after
// every applied event.
func (l *GroupLedger) checkConservation() error {
	l.events++
	positions, err := l.netPositions()
	if err != nil {
		return err
	}
	var total models.Money
	for userID, pos := range positions {
		if err := accumulate(&total, pos, "position total at "+userID); err != nil {
			return err
		}
	}
	if total != 0 {
		return apperrors.Wrap(apperrors.ErrConservationViolated,
			fmt.Errorf("net positions sum to %s after %d events", total, l.events))
	}
	return nil
}

// NetPositions returns each known user's signed position: positive means the
// group owes them, negative means they owe the group.
//
// Every applied event has already been checked against overflow, so the
// positions here are exact.
func (l *GroupLedger) NetPositions() map[string]models.Money {
	positions, _ := l.netPositions()
	return positions
}

func (l *GroupLedger) netPositions() (map[string]models.Money, error) {
	positions := make(map[string]models.Money, len(l.balances))
	for userID := range l.balances {
		positions[userID] = 0
	}
	for debtor, row := range l.owes {
		for creditor, amount := range row {
			credit, ok := positions[creditor].Add(amount)
			if !ok {
				return positions, overflow("position of %s", creditor)
			}
			positions[creditor] = credit
			debit, ok := positions[debtor].Sub(amount)
			if !ok {
				return positions, overflow("position of %s", debtor)
			}
			positions[debtor] = debit
		}
	}
	return positions, nil
}

// Between returns what other owes userID, net of both directions.
// Positive means other owes userID; negative means userID owes other.
func (l *GroupLedger) Between(userID, other string) models.Money {
	return l.owes[other][userID] - l.owes[userID][other]
}

// Pairwise returns one edge per pair of users with a nonzero net debt,
// sorted by debtor then creditor.
func (l *GroupLedger) Pairwise() []DebtEdge {
	users := l.users()
	var edges []DebtEdge
	for i, a := range users {
		for _, b := range users[i+1:] {
			net := l.Between(b, a) // what a owes b
			switch {
			case net > 0:
				edges = append(edges, DebtEdge{From: a, To: b, Amount: net})
			case net < 0:
				edges = append(edges, DebtEdge{From: b, To: a, Amount: -net})
			}
		}
	}
	sortEdges(edges)
	return edges
}

// Balances returns per-member totals sorted by user ID.
func (l *GroupLedger) Balances() []MemberBalance {
	positions := l.NetPositions()
	out := make([]MemberBalance, 0, len(l.balances))
	for _, userID := range l.users() {
		bal := *l.balances[userID]
		bal.NetBalance = positions[userID]
		out = append(out, bal)
	}
	return out
}

// Simplify returns a short list of payments that would clear every position.
//
// Greedy: repeatedly match the largest debtor with the largest creditor. The
// plan moves exactly the sum of positive positions and uses at most n-1
// payments. It ignores who originally owed whom.
func (l *GroupLedger) Simplify() []DebtEdge {
	positions := l.NetPositions()

	type entry struct {
		userID string
		amount models.Money
	}
	var creditors, debtors []entry
	for userID, pos := range positions {
		switch {
		case pos > 0:
			creditors = append(creditors, entry{userID, pos})
		case pos < 0:
			debtors = append(debtors, entry{userID, -pos})
		}
	}
	byAmount := func(list []entry) {
		sort.Slice(list, func(i, j int) bool {
			if list[i].amount != list[j].amount {
				return list[i].amount > list[j].amount
			}
			return list[i].userID < list[j].userID
		})
	}
	byAmount(creditors)
	byAmount(debtors)

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].amount, creditors[j].amount)
		edges = append(edges, DebtEdge{From: debtors[i].userID, To: creditors[j].userID, Amount: amount})

		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return edges
}

func (l *GroupLedger) users() []string {
	users := make([]string, 0, len(l.balances))
	for userID := range l.balances {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

func sortEdges(edges []DebtEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}

// GroupBalances is the full netting result for a group.
type GroupBalances struct {
	Positions  map[string]models.Money
	Members    []MemberBalance
	Pairwise   []DebtEdge
	Simplified []DebtEdge
}

// CalculateGroupBalances folds a group's expenses and settlements.
//
// Algorithm:
//   - For each expense: every participant other than the payer owes the payer their split
//   - For each settlement: the payer's debt to the receiver shrinks by the amount
//   - Net position = owed to the user - owed by the user, read off the pairwise matrix
//   - Conservation (positions sum to zero) is checked after every event
//
// members lists users to report even if they have no history; users that only
// appear in history (for example removed members) are always included.
func CalculateGroupBalances(members []string, expenses []ExpenseForBalance, settlements []SettlementForBalance) (*GroupBalances, error) {
	ledger := NewGroupLedger(members...)
	for _, e := range expenses {
		if err := ledger.ApplyExpense(e); err != nil {
			return nil, err
		}
	}
	for _, s := range settlements {
		if err := ledger.ApplySettlement(s); err != nil {
			return nil, err
		}
	}
	return &GroupBalances{
		Positions:  ledger.NetPositions(),
		Members:    ledger.Balances(),
		Pairwise:   ledger.Pairwise(),
		Simplified: ledger.Simplify(),
	}, nil
}
