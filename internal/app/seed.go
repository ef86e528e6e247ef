package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"splitledger/internal/config"
	"splitledger/internal/domain/group"
	"splitledger/internal/domain/ledger"
	"splitledger/internal/domain/user"
	"splitledger/pkg/logger"
)

const seedGroupName = "Friends Trip"

var seedUsers = []user.RegisterInput{
	{Name: "Alice", Email: "alice@test.com"},
	{Name: "Bob", Email: "bob@test.com"},
	{Name: "Charlie", Email: "charlie@test.com"},
}

// SeedResult lists what a seed run produced.
type SeedResult struct {
	UserIDs    []string
	GroupID    string
	ExpenseIDs []string
	Skipped    bool
}

// Seed loads demo data: three users sharing a group with two approved
// expenses. Existing users are reused, and the expenses are only added
// when the demo group is created by this run.
func Seed(ctx context.Context, cfg config.Config, log logger.Logger, password string) (*SeedResult, error) {
	store, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return seed(ctx, newServices(cfg, store, nil), log, password)
}

func seed(ctx context.Context, svc services, log logger.Logger, password string) (*SeedResult, error) {
	var result SeedResult
	for _, input := range seedUsers {
		input.Password = password
		u, err := svc.users.Register(ctx, input)
		if errors.Is(err, user.ErrEmailTaken) {
			u, err = svc.users.FindByEmail(ctx, input.Email)
		}
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", input.Email, err)
		}
		result.UserIDs = append(result.UserIDs, u.ID)
	}
	alice, bob, charlie := result.UserIDs[0], result.UserIDs[1], result.UserIDs[2]

	existing, err := svc.groups.ListGroups(ctx, alice)
	if err != nil {
		return nil, err
	}
	for _, g := range existing {
		if g.Name == seedGroupName {
			log.Info("seed: demo group already present", "group_id", g.ID)
			result.GroupID = g.ID
			result.Skipped = true
			return &result, nil
		}
	}

	created, err := svc.groups.CreateGroup(ctx, alice, group.CreateGroupInput{
		Name:      seedGroupName,
		MemberIDs: []string{bob, charlie},
	})
	if err != nil {
		return nil, fmt.Errorf("seed group: %w", err)
	}
	result.GroupID = created.ID

	expenses := []struct {
		creator     string
		description string
		amount      int64
		split       map[string]int64
	}{
		{creator: alice, description: "Cabin", amount: 90, split: map[string]int64{alice: 0, bob: 45, charlie: 45}},
		{creator: bob, description: "Fuel", amount: 30, split: map[string]int64{bob: 0, charlie: 30}},
	}
	for _, e := range expenses {
		involved := make([]string, 0, len(e.split))
		shares := make(map[string]decimal.Decimal, len(e.split))
		for _, id := range result.UserIDs {
			if share, ok := e.split[id]; ok {
				involved = append(involved, id)
				shares[id] = decimal.NewFromInt(share)
			}
		}

		expense, request, err := svc.ledger.CreateExpense(ctx, e.creator, ledger.CreateExpenseInput{
			GroupID:     &created.ID,
			Description: e.description,
			Amount:      decimal.NewFromInt(e.amount),
			PayerID:     e.creator,
			Involved:    involved,
			SplitType:   ledger.SplitCustom,
			Split:       shares,
		})
		if err != nil {
			return nil, fmt.Errorf("seed expense %s: %w", e.description, err)
		}
		if request != nil {
			for _, receiver := range request.Receivers {
				if _, err := svc.ledger.RespondToExpenseApproval(ctx, request.ID, receiver, true); err != nil {
					return nil, fmt.Errorf("seed approval %s: %w", e.description, err)
				}
			}
		}
		result.ExpenseIDs = append(result.ExpenseIDs, expense.ID)
	}

	log.Info("seed: done", "group_id", result.GroupID, "users", len(result.UserIDs), "expenses", len(result.ExpenseIDs))
	return &result, nil
}
