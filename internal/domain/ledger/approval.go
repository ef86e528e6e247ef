package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindExpense Kind = "EXPENSE"
	KindSettle  Kind = "SETTLE"
)

// Payload is the kind-specific part of an approval request. The set of
// implementations is closed: ExpenseApproval and SettleApproval.
type Payload interface {
	Kind() Kind
	isPayload()
}

// ExpenseApproval asks every involved user except the creator to ratify a
// new expense.
type ExpenseApproval struct{}

func (ExpenseApproval) Kind() Kind { return KindExpense }
func (ExpenseApproval) isPayload() {}

// SettleApproval asks the creditor to confirm receipt of Amount.
type SettleApproval struct {
	Amount decimal.Decimal
}

func (SettleApproval) Kind() Kind { return KindSettle }
func (SettleApproval) isPayload() {}

// ApprovalRequest is transient coordination state. It is deleted once the
// outcome is terminal; the permanent record lives on the expense.
type ApprovalRequest struct {
	ID         string
	ExpenseID  string
	SenderID   string
	Receivers  []string
	ApprovedBy []string
	Rejected   bool
	CreatedAt  time.Time
	Payload    Payload
}

func (r *ApprovalRequest) Kind() Kind {
	if r.Payload == nil {
		return ""
	}
	return r.Payload.Kind()
}

func (r *ApprovalRequest) IsReceiver(userID string) bool {
	return containsID(r.Receivers, userID)
}

func (r *ApprovalRequest) HasApproved(userID string) bool {
	return containsID(r.ApprovedBy, userID)
}

// FullyApproved reports whether approvedBy equals receivers as a set.
func (r *ApprovalRequest) FullyApproved() bool {
	approved := make(map[string]struct{}, len(r.ApprovedBy))
	for _, id := range r.ApprovedBy {
		approved[id] = struct{}{}
	}
	for _, id := range r.Receivers {
		if _, ok := approved[id]; !ok {
			return false
		}
		delete(approved, id)
	}
	return len(approved) == 0
}

type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

type RespondResult struct {
	RequestID  string
	Kind       Kind
	Outcome    Outcome
	ExpenseID  string
	Settlement *Settlement
	// Outdated is set when an accepted payment exceeded what was still
	// owed and was recorded as rejected instead.
	Outdated bool
}

// PendingApproval joins a request with the expense it refers to.
type PendingApproval struct {
	Request ApprovalRequest
	Expense Expense
}
