package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "splitledger/internal/domain/user"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *PostgresRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if uuid.Validate(userID) != nil {
		return nil, domain.ErrUserNotFound
	}
	var user domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context, userIDs []string) ([]domain.User, error) {
	valid := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if uuid.Validate(id) == nil {
			valid = append(valid, id)
		}
	}
	users := make([]domain.User, 0, len(valid))
	if len(valid) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", valid).Order("name asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
