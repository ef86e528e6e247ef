package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo     Repository
	groups   Groups
	users    Users
	recorder Recorder
}

func NewService(repo Repository, groups Groups, users Users, recorder Recorder) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		repo:     repo,
		groups:   groups,
		users:    users,
		recorder: recorder,
	}
}

// CreateExpense stores a pending expense and opens its EXPENSE approval
// request in one transaction. When nobody but the caller is involved the
// expense is approved straight away.
func (s *Service) CreateExpense(ctx context.Context, callerID string, input CreateExpenseInput) (*Expense, *ApprovalRequest, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, nil, ErrDescriptionRequired
	}
	amount, err := checkAmount(input.Amount)
	if err != nil {
		return nil, nil, err
	}
	input.Amount = amount

	involved := normalizeIDs(input.Involved)
	if len(involved) == 0 {
		return nil, nil, ErrNoParticipants
	}
	payerID := strings.TrimSpace(input.PayerID)
	if !containsID(involved, payerID) {
		return nil, nil, ErrPayerNotInvolved
	}

	splitType, split, err := buildSplit(input, involved)
	if err != nil {
		return nil, nil, err
	}

	if err := s.checkParticipants(ctx, callerID, input.GroupID, involved); err != nil {
		return nil, nil, err
	}

	expense := Expense{
		ID:          uuid.NewString(),
		GroupID:     input.GroupID,
		Description: description,
		Amount:      amount,
		PayerID:     payerID,
		CreatedBy:   callerID,
		SplitType:   splitType,
		Involved:    involved,
		Split:       split,
		CreatedAt:   time.Now().UTC(),
	}

	receivers := make([]string, 0, len(involved))
	for _, userID := range involved {
		if userID != callerID {
			receivers = append(receivers, userID)
		}
	}

	var request *ApprovalRequest
	if len(receivers) == 0 {
		expense.Approved = true
	} else {
		request = &ApprovalRequest{
			ID:         uuid.NewString(),
			ExpenseID:  expense.ID,
			SenderID:   callerID,
			Receivers:  receivers,
			ApprovedBy: []string{},
			CreatedAt:  expense.CreatedAt,
			Payload:    ExpenseApproval{},
		}
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateExpense(ctx, &expense); err != nil {
			return err
		}
		if request == nil {
			return nil
		}
		return tx.CreateApprovalRequest(ctx, request)
	})
	if err != nil {
		return nil, nil, err
	}

	s.recorder.ExpenseCreated(splitType)
	if request == nil {
		s.recorder.ApprovalTransition(KindExpense, OutcomeApproved)
	}
	return &expense, request, nil
}

func (s *Service) checkParticipants(ctx context.Context, callerID string, groupID *string, involved []string) error {
	if groupID == nil {
		if !containsID(involved, callerID) {
			return ErrNotInvolved
		}
		existing, err := s.users.ExistingIDs(ctx, involved)
		if err != nil {
			return err
		}
		for _, userID := range involved {
			if !existing[userID] {
				return ErrUnknownUser
			}
		}
		return nil
	}

	members, err := s.groups.MemberIDs(ctx, *groupID)
	if err != nil {
		return err
	}
	if !containsID(members, callerID) {
		return ErrNotGroupMember
	}
	for _, userID := range involved {
		if !containsID(members, userID) {
			return ErrInvolvedNotMember
		}
	}
	return nil
}

func (s *Service) GetExpense(ctx context.Context, callerID, expenseID string) (*Expense, error) {
	expense, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !expense.IsInvolved(callerID) {
		return nil, ErrNotInvolved
	}
	return expense, nil
}

// ListExpenses returns the caller's expenses in a group, or their direct
// expenses when groupID is nil, newest first.
func (s *Service) ListExpenses(ctx context.Context, callerID string, groupID *string) ([]Expense, error) {
	filter := ExpenseFilter{InvolvedUser: callerID}
	if groupID != nil {
		members, err := s.groups.MemberIDs(ctx, *groupID)
		if err != nil {
			return nil, err
		}
		if !containsID(members, callerID) {
			return nil, ErrNotGroupMember
		}
		filter.GroupID = groupID
	} else {
		filter.DirectOnly = true
	}

	expenses, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
	return expenses, nil
}

// ApprovedGroupExpenses is the read used by debt aggregation.
func (s *Service) ApprovedGroupExpenses(ctx context.Context, groupID string) ([]Expense, error) {
	return s.repo.ListExpenses(ctx, ExpenseFilter{GroupID: &groupID, ApprovedOnly: true})
}

// CreateSettleRequest opens a SETTLE request from the caller to the
// expense payer. The payment only counts once the receiver accepts it.
func (s *Service) CreateSettleRequest(ctx context.Context, callerID string, input CreateSettleInput) (*ApprovalRequest, error) {
	amount, err := checkAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	expense, err := s.repo.GetExpense(ctx, input.ExpenseID)
	if err != nil {
		return nil, err
	}
	if !expense.IsInvolved(callerID) {
		return nil, ErrNotInvolved
	}
	receiverID := strings.TrimSpace(input.ReceiverID)
	if receiverID == callerID {
		return nil, ErrSelfSettlement
	}
	if expense.Status() != StatusApproved {
		return nil, ErrExpenseNotApproved
	}
	if receiverID != expense.PayerID {
		return nil, ErrReceiverNotPayer
	}

	outstanding := expense.Outstanding(callerID)
	if !outstanding.GreaterThan(Tolerance) {
		return nil, ErrNothingOwed
	}
	pending, err := s.pendingSettlement(ctx, expense, callerID)
	if err != nil {
		return nil, err
	}
	if amount.Add(pending).Sub(outstanding).GreaterThan(Tolerance) {
		return nil, ErrOverSettlement
	}

	request := ApprovalRequest{
		ID:         uuid.NewString(),
		ExpenseID:  expense.ID,
		SenderID:   callerID,
		Receivers:  []string{receiverID},
		ApprovedBy: []string{},
		CreatedAt:  time.Now().UTC(),
		Payload:    SettleApproval{Amount: amount},
	}
	if err := s.repo.CreateApprovalRequest(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// pendingSettlement sums the open SETTLE requests senderID already has on
// the expense.
func (s *Service) pendingSettlement(ctx context.Context, expense *Expense, senderID string) (decimal.Decimal, error) {
	requests, err := s.repo.ListApprovalRequestsByReceiver(ctx, expense.PayerID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, request := range requests {
		payload, ok := request.Payload.(SettleApproval)
		if !ok || request.ExpenseID != expense.ID || request.SenderID != senderID || request.Rejected {
			continue
		}
		total = total.Add(payload.Amount)
	}
	return total, nil
}

// ListPendingApprovals returns open requests still waiting on the caller,
// joined with their expenses.
func (s *Service) ListPendingApprovals(ctx context.Context, callerID string) ([]PendingApproval, error) {
	requests, err := s.repo.ListApprovalRequestsByReceiver(ctx, callerID)
	if err != nil {
		return nil, err
	}

	expenses := make(map[string]*Expense)
	result := make([]PendingApproval, 0, len(requests))
	for _, request := range requests {
		if request.Rejected || request.HasApproved(callerID) {
			continue
		}
		expense, ok := expenses[request.ExpenseID]
		if !ok {
			expense, err = s.repo.GetExpense(ctx, request.ExpenseID)
			if err != nil {
				return nil, err
			}
			expenses[request.ExpenseID] = expense
		}
		result = append(result, PendingApproval{Request: request, Expense: *expense})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Request.CreatedAt.Before(result[j].Request.CreatedAt)
	})
	return result, nil
}
