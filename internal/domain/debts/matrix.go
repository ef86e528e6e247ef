// Package debts turns approved expenses into pairwise debts and reduces
// them to a minimal set of transfers.
package debts

import (
	"sort"

	"github.com/shopspring/decimal"

	"splitledger/internal/domain/ledger"
)

// Matrix maps debtor id to creditor id to the positive amount owed.
// Pairs that net to within ledger.Tolerance are absent.
type Matrix map[string]map[string]decimal.Decimal

func (m Matrix) add(from, to string, amount decimal.Decimal) {
	row, ok := m[from]
	if !ok {
		row = make(map[string]decimal.Decimal)
		m[from] = row
	}
	row[to] = row[to].Add(amount)
}

// Get returns what from owes to, or zero.
func (m Matrix) Get(from, to string) decimal.Decimal {
	return m[from][to]
}

// Users returns every user that appears in the matrix, sorted.
func (m Matrix) Users() []string {
	seen := make(map[string]struct{})
	for from, row := range m {
		seen[from] = struct{}{}
		for to := range row {
			seen[to] = struct{}{}
		}
	}
	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

type pair struct {
	from string
	to   string
}

// BuildMatrix accumulates what each participant still owes the payer of
// every approved expense. Split keys are trusted to be involved users.
func BuildMatrix(expenses []ledger.Expense) Matrix {
	matrix := make(Matrix)
	for i := range expenses {
		expense := &expenses[i]
		if !expense.Approved {
			continue
		}

		settled := make(map[pair]decimal.Decimal)
		for _, settlement := range expense.Settlements {
			if !settlement.Approved {
				continue
			}
			key := pair{from: settlement.FromUserID, to: settlement.ToUserID}
			settled[key] = settled[key].Add(settlement.Amount)
		}

		for userID, share := range expense.Split {
			if userID == expense.PayerID {
				continue
			}
			owed := share.Sub(settled[pair{from: userID, to: expense.PayerID}])
			if owed.GreaterThan(ledger.Tolerance) {
				matrix.add(userID, expense.PayerID, owed)
			}
		}
	}
	return matrix
}
