package group

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"splitledger/internal/domain/user"
)

type Service struct {
	repo     Repository
	users    Users
	cache    Cache
	cacheTTL time.Duration
}

type Option func(*Service)

// WithCache keeps member id lists in cache for ttl. Every membership
// change drops the cached entry.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

func NewService(repo Repository, users Users, opts ...Option) *Service {
	s := &Service{repo: repo, users: users, cache: noopCache{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGroup stores a group whose members are the caller plus any
// requested users. The caller is always a member.
func (s *Service) CreateGroup(ctx context.Context, callerID string, input CreateGroupInput) (*Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	memberIDs := []string{callerID}
	seen := map[string]struct{}{callerID: {}}
	for _, id := range input.MemberIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		memberIDs = append(memberIDs, id)
	}

	if len(memberIDs) > 1 {
		profiles, err := s.users.Profiles(ctx, memberIDs[1:])
		if err != nil {
			return nil, err
		}
		for _, id := range memberIDs[1:] {
			if _, ok := profiles[id]; !ok {
				return nil, ErrUnknownMember
			}
		}
	}

	group := Group{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: callerID,
	}
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateGroup(ctx, &group); err != nil {
			return err
		}
		for _, id := range memberIDs {
			if err := tx.AddMember(ctx, &Member{GroupID: group.ID, UserID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroup returns the group with member profiles. Only members may read it.
func (s *Service) GetGroup(ctx context.Context, callerID, groupID string) (*Details, error) {
	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	memberIDs, err := s.MemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs, callerID) {
		return nil, ErrNotMember
	}

	profiles, err := s.users.Profiles(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	members := make([]user.Profile, 0, len(memberIDs))
	for _, id := range memberIDs {
		if profile, ok := profiles[id]; ok {
			members = append(members, profile)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})

	return &Details{Group: *group, Members: members}, nil
}

func (s *Service) ListGroups(ctx context.Context, callerID string) ([]Group, error) {
	return s.repo.ListGroupsByUser(ctx, callerID)
}

func (s *Service) JoinGroup(ctx context.Context, callerID, groupID string) (*Group, error) {
	var result Group
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if err := tx.AddMember(ctx, &Member{GroupID: group.ID, UserID: callerID}); err != nil {
			return err
		}
		result = *group
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.DeleteMembers(groupID)
	return &result, nil
}

// LeaveGroup removes the caller. Outstanding debts do not block leaving;
// the last member has to delete the group instead.
func (s *Service) LeaveGroup(ctx context.Context, callerID, groupID string) error {
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetGroup(ctx, groupID); err != nil {
			return err
		}
		memberIDs, err := tx.ListMemberIDs(ctx, groupID)
		if err != nil {
			return err
		}
		if !contains(memberIDs, callerID) {
			return ErrNotMember
		}
		if len(memberIDs) == 1 {
			return ErrLastMember
		}
		return tx.DeleteMember(ctx, groupID, callerID)
	})
	if err != nil {
		return err
	}
	s.cache.DeleteMembers(groupID)
	return nil
}

// InviteByEmail adds the user registered under email. Inviting an existing
// member succeeds without changes.
func (s *Service) InviteByEmail(ctx context.Context, callerID, groupID, email string) (*user.Profile, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}

	invitee, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetGroup(ctx, groupID); err != nil {
			return err
		}
		memberIDs, err := tx.ListMemberIDs(ctx, groupID)
		if err != nil {
			return err
		}
		if !contains(memberIDs, callerID) {
			return ErrNotMember
		}
		if invitee == nil {
			return ErrUnknownMember
		}
		return tx.AddMember(ctx, &Member{GroupID: groupID, UserID: invitee.ID})
	})
	if err != nil {
		return nil, err
	}
	s.cache.DeleteMembers(groupID)
	added := invitee.Profile()
	return &added, nil
}

// DeleteGroup removes a group once the caller is its only member.
func (s *Service) DeleteGroup(ctx context.Context, callerID, groupID string) error {
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetGroup(ctx, groupID); err != nil {
			return err
		}
		memberIDs, err := tx.ListMemberIDs(ctx, groupID)
		if err != nil {
			return err
		}
		if !contains(memberIDs, callerID) {
			return ErrNotMember
		}
		if len(memberIDs) > 1 {
			return ErrGroupNotEmpty
		}
		return tx.DeleteGroup(ctx, groupID)
	})
	if err != nil {
		return err
	}
	s.cache.DeleteMembers(groupID)
	return nil
}

// MemberIDs returns the group's member ids, or ErrGroupNotFound.
func (s *Service) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	if cached, ok := s.cache.GetMembers(groupID); ok {
		return cached, nil
	}

	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	memberIDs, err := s.repo.ListMemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.cache.SetMembers(groupID, memberIDs, s.cacheTTL)
	return memberIDs, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
