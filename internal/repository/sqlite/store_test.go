package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"splitledger/internal/domain/balances"
	"splitledger/internal/domain/group"
	"splitledger/internal/domain/ledger"
	"splitledger/internal/domain/user"
)

type services struct {
	users    *user.Service
	groups   *group.Service
	ledger   *ledger.Service
	balances *balances.Service
}

func openTestStore(t *testing.T) (*Store, services) {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger", "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	users := user.NewService(store.Users(), bcrypt.MinCost)
	groups := group.NewService(store.Groups(), users)
	ledgers := ledger.NewService(store.Ledger(), groups, users, nil)
	return store, services{
		users:    users,
		groups:   groups,
		ledger:   ledgers,
		balances: balances.NewService(groups, ledgers, nil),
	}
}

func register(t *testing.T, svc services, name string) *user.User {
	t.Helper()
	u, err := svc.users.Register(context.Background(), user.RegisterInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u
}

func TestUserRepository(t *testing.T) {
	store, svc := openTestStore(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")

	if _, err := svc.users.Register(ctx, user.RegisterInput{Name: "Other", Email: "ALICE@example.com", Password: "password123"}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.users.Authenticate(ctx, "alice@example.com", "password123"); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}

	found, err := store.Users().GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found.Email != "alice@example.com" || found.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", found)
	}
	if _, err := store.Users().GetUser(ctx, "missing"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGroupRepository(t *testing.T) {
	_, svc := openTestStore(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	carol := register(t, svc, "carol")

	g, err := svc.groups.CreateGroup(ctx, alice.ID, group.CreateGroupInput{Name: "Trip", MemberIDs: []string{bob.ID}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := svc.groups.InviteByEmail(ctx, bob.ID, g.ID, "carol@example.com"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := svc.groups.InviteByEmail(ctx, bob.ID, g.ID, "carol@example.com"); err != nil {
		t.Fatalf("repeat invite: %v", err)
	}

	ids, err := svc.groups.MemberIDs(ctx, g.ID)
	if err != nil {
		t.Fatalf("member ids: %v", err)
	}
	if len(ids) != 3 || ids[0] != alice.ID || ids[2] != carol.ID {
		t.Fatalf("expected members in join order, got %v", ids)
	}

	listed, err := svc.groups.ListGroups(ctx, carol.ID)
	if err != nil || len(listed) != 1 || listed[0].ID != g.ID {
		t.Fatalf("expected carol to see the group, got %v (%v)", listed, err)
	}

	for _, id := range []string{bob.ID, carol.ID} {
		if err := svc.groups.LeaveGroup(ctx, id, g.ID); err != nil {
			t.Fatalf("leave: %v", err)
		}
	}
	if err := svc.groups.DeleteGroup(ctx, alice.ID, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.groups.MemberIDs(ctx, g.ID); !errors.Is(err, group.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestLedgerWorkflow(t *testing.T) {
	store, svc := openTestStore(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	carol := register(t, svc, "carol")

	g, err := svc.groups.CreateGroup(ctx, alice.ID, group.CreateGroupInput{Name: "Trip", MemberIDs: []string{bob.ID, carol.ID}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	expense, request, err := svc.ledger.CreateExpense(ctx, alice.ID, ledger.CreateExpenseInput{
		GroupID:     &g.ID,
		Description: "Dinner",
		Amount:      decimal.RequireFromString("90"),
		PayerID:     alice.ID,
		Involved:    []string{alice.ID, bob.ID, carol.ID},
		SplitType:   ledger.SplitEqual,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	stored, err := store.Ledger().GetExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if !stored.Amount.Equal(decimal.RequireFromString("90")) || len(stored.Involved) != 3 || stored.Involved[0] != alice.ID {
		t.Fatalf("unexpected stored expense %+v", stored)
	}
	if !stored.Split[bob.ID].Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected bob share 30, got %s", stored.Split[bob.ID])
	}
	if stored.Status() != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", stored.Status())
	}

	pending, err := svc.ledger.ListPendingApprovals(ctx, bob.ID)
	if err != nil || len(pending) != 1 || pending[0].Request.ID != request.ID {
		t.Fatalf("expected one pending approval for bob, got %v (%v)", pending, err)
	}

	var wg sync.WaitGroup
	results := make([]*ledger.RespondResult, 2)
	failures := make([]error, 2)
	for i, id := range []string{bob.ID, carol.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i], failures[i] = svc.ledger.RespondToExpenseApproval(ctx, request.ID, id, true)
		}(i, id)
	}
	wg.Wait()

	approved := 0
	for i := range results {
		if failures[i] != nil {
			t.Fatalf("respond: %v", failures[i])
		}
		if results[i].Outcome == ledger.OutcomeApproved {
			approved++
		}
	}
	if approved != 1 {
		t.Fatalf("expected exactly one approving vote, got %d", approved)
	}
	if _, err := store.Ledger().LockApprovalRequest(ctx, request.ID); !errors.Is(err, ledger.ErrRequestNotFound) {
		t.Fatalf("expected request deleted, got %v", err)
	}

	settle, err := svc.ledger.CreateSettleRequest(ctx, bob.ID, ledger.CreateSettleInput{
		ExpenseID:  expense.ID,
		ReceiverID: alice.ID,
		Amount:     decimal.RequireFromString("30"),
	})
	if err != nil {
		t.Fatalf("create settle request: %v", err)
	}
	fetched, err := store.Ledger().LockApprovalRequest(ctx, settle.ID)
	if err != nil {
		t.Fatalf("lock settle request: %v", err)
	}
	payload, ok := fetched.Payload.(ledger.SettleApproval)
	if !ok || !payload.Amount.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected settle payload of 30, got %#v", fetched.Payload)
	}

	result, err := svc.ledger.RespondToSettleApproval(ctx, settle.ID, alice.ID, true)
	if err != nil || result.Outcome != ledger.OutcomeApproved {
		t.Fatalf("expected settlement accepted, got %+v (%v)", result, err)
	}

	aggregation, err := svc.balances.GroupAggregation(ctx, g.ID, alice.ID)
	if err != nil {
		t.Fatalf("aggregation: %v", err)
	}
	if len(aggregation.Debts) != 1 || aggregation.Debts[0].From != carol.ID || !aggregation.Debts[0].Amount.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected carol to owe alice 30, got %+v", aggregation.Debts)
	}
	if !aggregation.CurrentUserSummary.TotalOwed.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected alice to be owed 30, got %s", aggregation.CurrentUserSummary.TotalOwed)
	}

	listed, err := svc.ledger.ListExpenses(ctx, carol.ID, &g.ID)
	if err != nil || len(listed) != 1 || len(listed[0].Settlements) != 1 {
		t.Fatalf("expected one expense with one settlement, got %v (%v)", listed, err)
	}
}

func TestLedgerRepositoryRollsBack(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	repo := store.Ledger()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx ledger.Repository) error {
		if err := tx.CreateExpense(ctx, &ledger.Expense{
			ID:          "e1",
			Description: "Taxi",
			Amount:      decimal.RequireFromString("12.50"),
			PayerID:     "u1",
			CreatedBy:   "u1",
			SplitType:   ledger.SplitEqual,
			Involved:    []string{"u1"},
			Split:       map[string]decimal.Decimal{"u1": decimal.RequireFromString("12.50")},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.GetExpense(ctx, "e1"); !errors.Is(err, ledger.ErrExpenseNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
	if err := repo.SetExpenseStatus(ctx, "e1", ledger.StatusApproved); !errors.Is(err, ledger.ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
}

func TestMarkApprovedOnce(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	repo := store.Ledger()

	if err := repo.CreateExpense(ctx, &ledger.Expense{
		ID:          "e1",
		Description: "Taxi",
		Amount:      decimal.RequireFromString("10"),
		PayerID:     "u1",
		CreatedBy:   "u1",
		SplitType:   ledger.SplitEqual,
		Involved:    []string{"u1", "u2"},
		Split:       map[string]decimal.Decimal{"u1": decimal.RequireFromString("5"), "u2": decimal.RequireFromString("5")},
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if err := repo.CreateApprovalRequest(ctx, &ledger.ApprovalRequest{
		ID:        "r1",
		ExpenseID: "e1",
		SenderID:  "u1",
		Receivers: []string{"u2"},
		Payload:   ledger.ExpenseApproval{},
	}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	first, err := repo.MarkApproved(ctx, "r1", "u2")
	if err != nil || !first {
		t.Fatalf("expected first vote recorded, got %v (%v)", first, err)
	}
	second, err := repo.MarkApproved(ctx, "r1", "u2")
	if err != nil || second {
		t.Fatalf("expected second vote ignored, got %v (%v)", second, err)
	}

	requests, err := repo.ListApprovalRequestsByReceiver(ctx, "u2")
	if err != nil || len(requests) != 1 || len(requests[0].ApprovedBy) != 1 {
		t.Fatalf("expected approvedBy [u2], got %v (%v)", requests, err)
	}
}
