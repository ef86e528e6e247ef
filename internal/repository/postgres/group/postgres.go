package group

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	groupdomain "splitledger/internal/domain/group"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(groupdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateGroup(ctx context.Context, group *groupdomain.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *PostgresRepository) GetGroup(ctx context.Context, groupID string) (*groupdomain.Group, error) {
	if uuid.Validate(groupID) != nil {
		return nil, groupdomain.ErrGroupNotFound
	}
	var group groupdomain.Group
	if err := r.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, groupdomain.ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *PostgresRepository) ListGroupsByUser(ctx context.Context, userID string) ([]groupdomain.Group, error) {
	groups := make([]groupdomain.Group, 0)
	if uuid.Validate(userID) != nil {
		return groups, nil
	}
	if err := r.db.WithContext(ctx).
		Table("groups").
		Joins("join group_members on group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.created_at desc").
		Select("groups.*").
		Scan(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, member *groupdomain.Member) error {
	return r.db.WithContext(ctx).
		Omit("Group").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member).Error
}

func (r *PostgresRepository) DeleteMember(ctx context.Context, groupID, userID string) error {
	return r.db.WithContext(ctx).Delete(&groupdomain.Member{}, "group_id = ? AND user_id = ?", groupID, userID).Error
}

func (r *PostgresRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	ids := make([]string, 0)
	if err := r.db.WithContext(ctx).
		Model(&groupdomain.Member{}).
		Where("group_id = ?", groupID).
		Order("joined_at asc").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteGroup relies on ON DELETE CASCADE for members and group expenses.
func (r *PostgresRepository) DeleteGroup(ctx context.Context, groupID string) error {
	return r.db.WithContext(ctx).Delete(&groupdomain.Group{}, "id = ?", groupID).Error
}
