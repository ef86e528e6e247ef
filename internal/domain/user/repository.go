package user

import "context"

type Repository interface {
	// CreateUser returns ErrEmailTaken when the email is already stored.
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, userIDs []string) ([]User, error)
}
