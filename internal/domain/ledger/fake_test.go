package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"splitledger/internal/domain/errs"
)

var errGroupNotFound = errs.NotFound("group not found")

type fakeLedgerState struct {
	mu       sync.Mutex
	expenses map[string]*Expense
	requests map[string]*ApprovalRequest
}

// fakeLedgerRepo serializes transactions with a single mutex, which gives
// the same per-request ordering a row lock would.
type fakeLedgerRepo struct {
	state *fakeLedgerState
	inTx  bool
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{state: &fakeLedgerState{
		expenses: make(map[string]*Expense),
		requests: make(map[string]*ApprovalRequest),
	}}
}

func (r *fakeLedgerRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.state.mu.Lock()
	return r.state.mu.Unlock
}

func (r *fakeLedgerRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return fn(&fakeLedgerRepo{state: r.state, inTx: true})
}

func (r *fakeLedgerRepo) CreateExpense(ctx context.Context, expense *Expense) error {
	defer r.lock()()
	r.state.expenses[expense.ID] = copyExpense(expense)
	return nil
}

func (r *fakeLedgerRepo) GetExpense(ctx context.Context, expenseID string) (*Expense, error) {
	defer r.lock()()
	expense, ok := r.state.expenses[expenseID]
	if !ok {
		return nil, ErrExpenseNotFound
	}
	return copyExpense(expense), nil
}

func (r *fakeLedgerRepo) LockExpense(ctx context.Context, expenseID string) (*Expense, error) {
	return r.GetExpense(ctx, expenseID)
}

func (r *fakeLedgerRepo) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	defer r.lock()()
	result := make([]Expense, 0)
	for _, expense := range r.state.expenses {
		if filter.GroupID != nil && (expense.GroupID == nil || *expense.GroupID != *filter.GroupID) {
			continue
		}
		if filter.DirectOnly && expense.GroupID != nil {
			continue
		}
		if filter.InvolvedUser != "" && !expense.IsInvolved(filter.InvolvedUser) {
			continue
		}
		if filter.ApprovedOnly && !expense.Approved {
			continue
		}
		result = append(result, *copyExpense(expense))
	}
	return result, nil
}

func (r *fakeLedgerRepo) SetExpenseStatus(ctx context.Context, expenseID string, status Status) error {
	defer r.lock()()
	expense, ok := r.state.expenses[expenseID]
	if !ok {
		return ErrExpenseNotFound
	}
	expense.Approved = status == StatusApproved
	expense.Rejected = status == StatusRejected
	return nil
}

func (r *fakeLedgerRepo) AppendSettlement(ctx context.Context, settlement *Settlement) error {
	defer r.lock()()
	expense, ok := r.state.expenses[settlement.ExpenseID]
	if !ok {
		return ErrExpenseNotFound
	}
	expense.Settlements = append(expense.Settlements, *settlement)
	return nil
}

func (r *fakeLedgerRepo) CreateApprovalRequest(ctx context.Context, request *ApprovalRequest) error {
	defer r.lock()()
	r.state.requests[request.ID] = copyRequest(request)
	return nil
}

func (r *fakeLedgerRepo) LockApprovalRequest(ctx context.Context, requestID string) (*ApprovalRequest, error) {
	defer r.lock()()
	request, ok := r.state.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return copyRequest(request), nil
}

func (r *fakeLedgerRepo) MarkApproved(ctx context.Context, requestID, userID string) (bool, error) {
	defer r.lock()()
	request, ok := r.state.requests[requestID]
	if !ok {
		return false, ErrRequestNotFound
	}
	if request.HasApproved(userID) {
		return false, nil
	}
	request.ApprovedBy = append(request.ApprovedBy, userID)
	return true, nil
}

func (r *fakeLedgerRepo) DeleteApprovalRequest(ctx context.Context, requestID string) error {
	defer r.lock()()
	delete(r.state.requests, requestID)
	return nil
}

func (r *fakeLedgerRepo) ListApprovalRequestsByReceiver(ctx context.Context, userID string) ([]ApprovalRequest, error) {
	defer r.lock()()
	result := make([]ApprovalRequest, 0)
	for _, request := range r.state.requests {
		if request.IsReceiver(userID) {
			result = append(result, *copyRequest(request))
		}
	}
	return result, nil
}

func (r *fakeLedgerRepo) request(id string) (*ApprovalRequest, bool) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	request, ok := r.state.requests[id]
	return request, ok
}

func (r *fakeLedgerRepo) expense(id string) *Expense {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return copyExpense(r.state.expenses[id])
}

func copyExpense(expense *Expense) *Expense {
	if expense == nil {
		return nil
	}
	clone := *expense
	clone.Involved = append([]string{}, expense.Involved...)
	clone.Split = make(map[string]decimal.Decimal, len(expense.Split))
	for userID, share := range expense.Split {
		clone.Split[userID] = share
	}
	clone.Settlements = append([]Settlement{}, expense.Settlements...)
	return &clone
}

func copyRequest(request *ApprovalRequest) *ApprovalRequest {
	clone := *request
	clone.Receivers = append([]string{}, request.Receivers...)
	clone.ApprovedBy = append([]string{}, request.ApprovedBy...)
	return &clone
}

type fakeGroups struct {
	members map[string][]string
}

func (g fakeGroups) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	members, ok := g.members[groupID]
	if !ok {
		return nil, errGroupNotFound
	}
	return members, nil
}

type fakeUsers struct {
	ids map[string]bool
}

func (u fakeUsers) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		if u.ids[id] {
			result[id] = true
		}
	}
	return result, nil
}

type countingRecorder struct {
	mu          sync.Mutex
	created     map[string]int
	transitions map[Kind]map[Outcome]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		created:     make(map[string]int),
		transitions: make(map[Kind]map[Outcome]int),
	}
}

func (c *countingRecorder) ExpenseCreated(splitType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created[splitType]++
}

func (c *countingRecorder) ApprovalTransition(kind Kind, outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transitions[kind] == nil {
		c.transitions[kind] = make(map[Outcome]int)
	}
	c.transitions[kind][outcome]++
}

func (c *countingRecorder) count(kind Kind, outcome Outcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitions[kind][outcome]
}
