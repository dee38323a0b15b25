package repository

import (
	"context"
	"fmt"

	"TuneBox/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByName(ctx context.Context, name string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id, role string) error
}

// gormUserRepository GORM 实现
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new UserRepository backed by GORM.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create adds a new user. A unique index violation returns ErrDuplicateUser.
func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormUserRepository) getBy(ctx context.Context, column, value string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &user, nil
}

// GetByID retrieves a user by id, nil when absent.
func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByName retrieves a user by name, nil when absent.
func (r *gormUserRepository) GetByName(ctx context.Context, name string) (*model.User, error) {
	return r.getBy(ctx, "name", name)
}

// GetByEmail retrieves a user by email, nil when absent.
func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", email)
}

// UpdateRole 修改用户角色
func (r *gormUserRepository) UpdateRole(ctx context.Context, id, role string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("failed to update role for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
