package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
)

// Bootstrap makes sure the admin account and the uncategorized category
// exist. It is safe to run on every start.
func Bootstrap(ctx context.Context, users repository.UserRepository, categories repository.CategoryRepository, adminEmail string) error {
	_, err := users.ByID(ctx, model.AdminID)
	if errors.Is(err, repository.ErrUserNotFound) {
		admin := &model.User{
			ID:       model.AdminID,
			Name:     model.AdminName,
			Username: model.AdminUsername,
			Email:    adminEmail,
			Picture:  model.AdminPicture,
			About:    model.AdminAbout,
		}
		err = users.Insert(ctx, admin)
		if err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}
		slog.Info("created admin account", "user_id", admin.ID)
	} else if err != nil {
		return fmt.Errorf("failed to get admin account: %w", err)
	}

	_, err = categories.ByID(ctx, model.UncategorizedID)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		category := &model.Category{
			ID:          model.UncategorizedID,
			Name:        model.UncategorizedName,
			Description: model.UncategorizedDescription,
			UserID:      model.AdminID,
			Public:      true,
		}
		err = categories.Insert(ctx, category)
		if err != nil {
			return fmt.Errorf("failed to create uncategorized category: %w", err)
		}
		slog.Info("created uncategorized category", "category_id", category.ID)
	} else if err != nil {
		return fmt.Errorf("failed to get uncategorized category: %w", err)
	}

	return nil
}
