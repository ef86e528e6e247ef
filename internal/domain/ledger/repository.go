package ledger

import "context"

// Repository is the ledger store. Expenses returned by the read methods
// carry their participants and settlements.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateExpense(ctx context.Context, expense *Expense) error
	GetExpense(ctx context.Context, expenseID string) (*Expense, error)
	// LockExpense reads an expense and holds a write lock on it until the
	// surrounding transaction ends.
	LockExpense(ctx context.Context, expenseID string) (*Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	SetExpenseStatus(ctx context.Context, expenseID string, status Status) error
	AppendSettlement(ctx context.Context, settlement *Settlement) error

	CreateApprovalRequest(ctx context.Context, request *ApprovalRequest) error
	// LockApprovalRequest reads a request and holds a write lock on it until
	// the surrounding transaction ends.
	LockApprovalRequest(ctx context.Context, requestID string) (*ApprovalRequest, error)
	// MarkApproved adds userID to the request's approvedBy set. It returns
	// false when the vote was already recorded.
	MarkApproved(ctx context.Context, requestID, userID string) (bool, error)
	DeleteApprovalRequest(ctx context.Context, requestID string) error
	ListApprovalRequestsByReceiver(ctx context.Context, userID string) ([]ApprovalRequest, error)
}

// Groups resolves group membership for expense validation.
type Groups interface {
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// Users resolves which user ids exist.
type Users interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Recorder receives workflow events for metrics.
type Recorder interface {
	ExpenseCreated(splitType string)
	ApprovalTransition(kind Kind, outcome Outcome)
}

type noopRecorder struct{}

func (noopRecorder) ExpenseCreated(string) {}

func (noopRecorder) ApprovalTransition(Kind, Outcome) {}
