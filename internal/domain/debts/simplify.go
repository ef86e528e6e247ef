package debts

import (
	"sort"

	"github.com/shopspring/decimal"
)

type Edge struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// NetBalances returns amount received minus amount owed per user.
// Negative balances are net debtors.
func NetBalances(edges []Edge) map[string]decimal.Decimal {
	balance := make(map[string]decimal.Decimal)
	for _, edge := range edges {
		balance[edge.From] = balance[edge.From].Sub(edge.Amount)
		balance[edge.To] = balance[edge.To].Add(edge.Amount)
	}
	return balance
}

// Edges flattens the matrix in from, to order.
func (m Matrix) Edges() []Edge {
	edges := make([]Edge, 0)
	for from, row := range m {
		for to, amount := range row {
			edges = append(edges, Edge{From: from, To: to, Amount: amount})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

type account struct {
	userID    string
	remaining decimal.Decimal
}

// Simplify realizes the matrix's net balances with at most one edge fewer
// than the number of users holding a non-zero balance. Debtors and
// creditors are matched greedily in user id order.
func Simplify(m Matrix) []Edge {
	balance := NetBalances(m.Edges())

	debtors := make([]account, 0)
	creditors := make([]account, 0)
	for _, userID := range m.Users() {
		amount := balance[userID]
		switch amount.Sign() {
		case -1:
			debtors = append(debtors, account{userID: userID, remaining: amount.Neg()})
		case 1:
			creditors = append(creditors, account{userID: userID, remaining: amount})
		}
	}

	result := make([]Edge, 0, len(debtors)+len(creditors))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := decimal.Min(debtor.remaining, creditor.remaining)
		if amount.IsPositive() {
			result = append(result, Edge{From: debtor.userID, To: creditor.userID, Amount: amount})
			debtor.remaining = debtor.remaining.Sub(amount)
			creditor.remaining = creditor.remaining.Sub(amount)
		}
		if debtor.remaining.IsZero() {
			i++
		}
		if creditor.remaining.IsZero() {
			j++
		}
	}
	return result
}
