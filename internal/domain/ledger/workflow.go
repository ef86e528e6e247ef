package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Service) RespondToExpenseApproval(ctx context.Context, requestID, callerID string, accept bool) (*RespondResult, error) {
	return s.respond(ctx, requestID, callerID, accept, KindExpense)
}

func (s *Service) RespondToSettleApproval(ctx context.Context, requestID, callerID string, accept bool) (*RespondResult, error) {
	return s.respond(ctx, requestID, callerID, accept, KindSettle)
}

// respond records one receiver's vote. The request row stays locked for
// the whole transaction so the approvedBy update and the unanimity check
// are serialized per request.
func (s *Service) respond(ctx context.Context, requestID, callerID string, accept bool, kind Kind) (*RespondResult, error) {
	var result RespondResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		request, err := tx.LockApprovalRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Kind() != kind {
			return ErrRequestNotFound
		}
		if !request.IsReceiver(callerID) {
			return ErrNotReceiver
		}
		if request.Rejected {
			return ErrRequestResolved
		}
		if request.HasApproved(callerID) {
			return ErrAlreadyResponded
		}

		result = RespondResult{
			RequestID: request.ID,
			Kind:      kind,
			ExpenseID: request.ExpenseID,
		}

		switch payload := request.Payload.(type) {
		case ExpenseApproval:
			return s.respondExpense(ctx, tx, request, callerID, accept, &result)
		case SettleApproval:
			return s.respondSettle(ctx, tx, request, payload, callerID, accept, &result)
		default:
			return fmt.Errorf("approval request %s: unsupported payload %T", request.ID, payload)
		}
	})
	if err != nil {
		return nil, err
	}

	s.recorder.ApprovalTransition(result.Kind, result.Outcome)
	return &result, nil
}

func (s *Service) respondExpense(ctx context.Context, tx Repository, request *ApprovalRequest, callerID string, accept bool, result *RespondResult) error {
	if !accept {
		if err := tx.SetExpenseStatus(ctx, request.ExpenseID, StatusRejected); err != nil {
			return err
		}
		if err := tx.DeleteApprovalRequest(ctx, request.ID); err != nil {
			return err
		}
		result.Outcome = OutcomeRejected
		return nil
	}

	added, err := tx.MarkApproved(ctx, request.ID, callerID)
	if err != nil {
		return err
	}
	if !added {
		return ErrAlreadyResponded
	}
	request.ApprovedBy = append(request.ApprovedBy, callerID)

	if !request.FullyApproved() {
		result.Outcome = OutcomePending
		return nil
	}

	if err := tx.SetExpenseStatus(ctx, request.ExpenseID, StatusApproved); err != nil {
		return err
	}
	if err := tx.DeleteApprovalRequest(ctx, request.ID); err != nil {
		return err
	}
	result.Outcome = OutcomeApproved
	return nil
}

// respondSettle resolves a SETTLE request. Either way a settlement is
// appended to the expense; only accepted ones reduce the debt.
func (s *Service) respondSettle(ctx context.Context, tx Repository, request *ApprovalRequest, payload SettleApproval, callerID string, accept bool, result *RespondResult) error {
	expense, err := tx.LockExpense(ctx, request.ExpenseID)
	if err != nil {
		return err
	}

	// A payment that no longer fits the outstanding debt is resolved as
	// rejected so the request does not linger.
	if accept && payload.Amount.Sub(expense.Outstanding(request.SenderID)).GreaterThan(Tolerance) {
		accept = false
		result.Outdated = true
	}

	settlement := Settlement{
		ID:         uuid.NewString(),
		ExpenseID:  expense.ID,
		FromUserID: request.SenderID,
		ToUserID:   callerID,
		Amount:     payload.Amount,
		Approved:   accept,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.AppendSettlement(ctx, &settlement); err != nil {
		return err
	}
	if err := tx.DeleteApprovalRequest(ctx, request.ID); err != nil {
		return err
	}

	result.Settlement = &settlement
	if accept {
		result.Outcome = OutcomeApproved
	} else {
		result.Outcome = OutcomeRejected
	}
	return nil
}
