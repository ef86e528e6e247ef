package ledger

import "splitledger/internal/domain/errs"

var (
	ErrExpenseNotFound      = errs.NotFound("expense not found")
	ErrRequestNotFound      = errs.NotFound("approval request not found")
	ErrUnknownUser          = errs.NotFound("involved user not found")
	ErrDescriptionRequired  = errs.Validation("description is required")
	ErrAmountNotPositive    = errs.Validation("amount must be positive")
	ErrAmountTooLarge       = errs.Validation("amount must be below 10000000000")
	ErrNoParticipants       = errs.Validation("involved must not be empty")
	ErrPayerNotInvolved     = errs.Validation("payer must be in involved")
	ErrSplitUserNotInvolved = errs.Validation("split contains a user that is not involved")
	ErrNegativeShare        = errs.Validation("split shares must not be negative")
	ErrSplitSumMismatch     = errs.Validation("custom split must sum to the expense amount")
	ErrUnknownSplitType     = errs.Validation("split type must be equal or custom")
	ErrInvolvedNotMember    = errs.Validation("involved users must be group members")
	ErrSelfSettlement       = errs.Validation("cannot settle with yourself")
	ErrReceiverNotPayer     = errs.Validation("settlements must be paid to the expense payer")
	ErrOverSettlement       = errs.Validation("settlement exceeds the outstanding amount")
	ErrNotGroupMember       = errs.Forbidden("not a member of this group")
	ErrNotInvolved          = errs.Forbidden("not involved in this expense")
	ErrNotReceiver          = errs.Forbidden("not a receiver of this request")
	ErrAlreadyResponded     = errs.Conflict("already responded to this request")
	ErrRequestResolved      = errs.Conflict("approval request already resolved")
	ErrExpenseNotApproved   = errs.Conflict("expense is not approved")
	ErrNothingOwed          = errs.Conflict("nothing is owed on this expense")
)
