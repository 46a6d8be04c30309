package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/manobala/peer-chat/internal/domain"
)

var errUserNotFound = fmt.Errorf("%w: user not found", domain.ErrNotFound)

// GormUserDirectory reads the shared users table.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (r *GormUserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, storeError(ctx, err, "failed to get user")
	}
	user := model.ToDomain()
	return &user, nil
}

// GetUsers returns the users found among userIDs, keyed by id.
func (r *GormUserDirectory) GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&models).Error; err != nil {
		return nil, storeError(ctx, err, "failed to get users")
	}
	for i := range models {
		users[models[i].ID] = models[i].ToDomain()
	}
	return users, nil
}

func (r *GormUserDirectory) ListExperts(ctx context.Context) ([]domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("is_expert = ?", true).Order("name ASC").Find(&models).Error; err != nil {
		return nil, storeError(ctx, err, "failed to list experts")
	}

	experts := make([]domain.User, len(models))
	for i := range models {
		experts[i] = models[i].ToDomain()
	}
	return experts, nil
}

// UpsertUser writes a directory entry. Only the seed command and tests
// write users; production rows belong to the identity system.
func (r *GormUserDirectory) UpsertUser(ctx context.Context, user *domain.User) error {
	model := domain.UserModel{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		IsExpert: user.IsExpert,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "is_expert"}),
	}).Create(&model).Error
	if err != nil {
		return storeError(ctx, err, "failed to upsert user")
	}
	return nil
}
