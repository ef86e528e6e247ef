package balances

import (
	"context"

	"github.com/shopspring/decimal"

	"splitledger/internal/domain/debts"
	"splitledger/internal/domain/errs"
	"splitledger/internal/domain/ledger"
)

var ErrNotGroupMember = errs.Forbidden("not a member of this group")

type Groups interface {
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
}

type Expenses interface {
	ApprovedGroupExpenses(ctx context.Context, groupID string) ([]ledger.Expense, error)
}

// EdgeObserver receives the size of every simplified debt list.
type EdgeObserver interface {
	SimplifiedEdges(count int)
}

type Summary struct {
	TotalOwe  decimal.Decimal
	TotalOwed decimal.Decimal
	PerUser   map[string]decimal.Decimal
}

type Aggregation struct {
	Debts              []debts.Edge
	CurrentUserSummary Summary
}

type Service struct {
	groups   Groups
	expenses Expenses
	observer EdgeObserver
}

func NewService(groups Groups, expenses Expenses, observer EdgeObserver) *Service {
	return &Service{groups: groups, expenses: expenses, observer: observer}
}

// GroupAggregation returns the group's simplified debts and the caller's
// position in them. PerUser is positive where the caller owes the
// counterparty and negative where the counterparty owes the caller.
func (s *Service) GroupAggregation(ctx context.Context, groupID, callerID string) (*Aggregation, error) {
	members, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member := false
	for _, id := range members {
		if id == callerID {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrNotGroupMember
	}

	expenses, err := s.expenses.ApprovedGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	edges := debts.Simplify(debts.BuildMatrix(expenses))
	if s.observer != nil {
		s.observer.SimplifiedEdges(len(edges))
	}

	return &Aggregation{
		Debts:              edges,
		CurrentUserSummary: Summarize(edges, callerID),
	}, nil
}

func Summarize(edges []debts.Edge, userID string) Summary {
	summary := Summary{
		TotalOwe:  decimal.Zero,
		TotalOwed: decimal.Zero,
		PerUser:   make(map[string]decimal.Decimal),
	}
	for _, edge := range edges {
		if edge.From == userID {
			summary.TotalOwe = summary.TotalOwe.Add(edge.Amount)
			summary.PerUser[edge.To] = summary.PerUser[edge.To].Add(edge.Amount)
		}
		if edge.To == userID {
			summary.TotalOwed = summary.TotalOwed.Add(edge.Amount)
			summary.PerUser[edge.From] = summary.PerUser[edge.From].Sub(edge.Amount)
		}
	}
	return summary
}
