package group

import (
	"context"

	"splitledger/internal/domain/user"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	CreateGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, groupID string) (*Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]Group, error)
	// AddMember is a no-op when the user is already a member.
	AddMember(ctx context.Context, member *Member) error
	DeleteMember(ctx context.Context, groupID, userID string) error
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
	DeleteGroup(ctx context.Context, groupID string) error
}

// Users is the slice of the account service groups depend on.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Profiles(ctx context.Context, userIDs []string) (map[string]user.Profile, error)
}
