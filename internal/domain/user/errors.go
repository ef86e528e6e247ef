package user

import "splitledger/internal/domain/errs"

var (
	ErrUserNotFound       = errs.NotFound("user not found")
	ErrEmailTaken         = errs.Conflict("email already registered")
	ErrNameRequired       = errs.Validation("name is required")
	ErrInvalidEmail       = errs.Validation("a valid email is required")
	ErrWeakPassword       = errs.Validation("password must be at least 8 characters")
	ErrInvalidCredentials = errs.Unauthorized("invalid email or password")
)
