package group

import "splitledger/internal/domain/errs"

var (
	ErrGroupNotFound = errs.NotFound("group not found")
	ErrNameRequired  = errs.Validation("name is required")
	ErrEmailRequired = errs.Validation("email is required")
	ErrUnknownMember = errs.NotFound("member user not found")
	ErrGroupNotEmpty = errs.Validation("remove all but one member first")
	ErrNotMember     = errs.Forbidden("not a member of this group")
	ErrLastMember    = errs.Conflict("last member cannot leave, delete the group instead")
)
