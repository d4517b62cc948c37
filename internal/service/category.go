package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/validation"
)

// CategoryScope selects which categories List returns.
type CategoryScope int

const (
	// ScopeAllVisible lists public categories plus the viewer's own.
	ScopeAllVisible CategoryScope = iota
	// ScopeOwnOnly lists only the viewer's own categories.
	ScopeOwnOnly
)

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description" label:"Description" validate:"max=250"`
	Public      bool   `json:"public"`
}

const msgPublicNameTaken = "This public category already exists"

type CategoryService struct {
	categoryRepository repository.CategoryRepository
	userRepository     repository.UserRepository
}

func NewCategoryService(categoryRepository repository.CategoryRepository, userRepository repository.UserRepository) *CategoryService {
	return &CategoryService{
		categoryRepository: categoryRepository,
		userRepository:     userRepository,
	}
}

func (in CategoryInput) normalized() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	err := validation.ValidateCategoryName(in.Name)
	if err != nil {
		return in, apperror.ValidationFailed("name", err.Error())
	}

	err = validation.Struct(in)
	if err != nil {
		return in, fieldError(err)
	}
	return in, nil
}

// NameExists reports whether a public category other than excludingID has
// exactly this name.
func (s *CategoryService) NameExists(ctx context.Context, name string, excludingID *int64) (bool, error) {
	exists, err := s.categoryRepository.PublicNameExists(ctx, strings.TrimSpace(name), excludingID)
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}

func (s *CategoryService) List(ctx context.Context, viewer model.Viewer, scope CategoryScope) ([]*model.Category, error) {
	filter := repository.CategoryFilter{Viewer: viewer}
	if scope == ScopeOwnOnly {
		if !viewer.LoggedIn {
			return nil, apperror.Forbidden("Please log in to view your categories")
		}
		filter.OwnerID = &viewer.UserID
	}

	categories, err := s.categoryRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Get fetches a single category. The uncategorized sentinel can be fetched
// this way. Categories the viewer may not see are reported as missing.
func (s *CategoryService) Get(ctx context.Context, viewer model.Viewer, id int64) (*model.Category, error) {
	category, err := s.categoryRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return nil, apperror.NotFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if !CanViewCategory(category, viewer) {
		return nil, apperror.NotFound("category", id)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, viewer model.Viewer, input CategoryInput) (*model.Category, error) {
	if !viewer.LoggedIn {
		return nil, apperror.Forbidden("Please log in to create categories.")
	}

	// A viewer can outlive their account; anonymized users own nothing new.
	owner, err := s.userRepository.ByID(ctx, viewer.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.Forbidden("Please log in to create categories.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if owner.IsDeleted() {
		return nil, apperror.Forbidden("Please log in to create categories.")
	}

	return createCategory(ctx, s.categoryRepository, viewer.UserID, input)
}

// createCategory is shared with item creation, which runs it inside its own
// transaction.
func createCategory(ctx context.Context, categories repository.CategoryRepository, ownerID int64, input CategoryInput) (*model.Category, error) {
	input, err := input.normalized()
	if err != nil {
		return nil, err
	}

	if input.Public {
		exists, err := categories.PublicNameExists(ctx, input.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to check category name: %w", err)
		}
		if exists {
			return nil, apperror.ValidationFailed("name", msgPublicNameTaken)
		}
	}

	category := &model.Category{
		Name:        input.Name,
		Description: input.Description,
		UserID:      ownerID,
		Public:      input.Public,
	}
	err = categories.Create(ctx, category)
	if errors.Is(err, repository.ErrDuplicatePublicName) {
		return nil, apperror.ValidationFailed("name", msgPublicNameTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("category created", "category_id", category.ID, "user_id", ownerID, "public", category.Public)
	return category, nil
}

// owned loads a category that viewer may change. verb is "edit" or "delete".
func (s *CategoryService) owned(ctx context.Context, viewer model.Viewer, id int64, verb string) (*model.Category, error) {
	if id == model.UncategorizedID {
		return nil, apperror.Forbidden("The catchall category cannot be changed")
	}
	if !viewer.LoggedIn {
		return nil, apperror.Forbidden(fmt.Sprintf("Please log in to %s categories.", verb))
	}

	category, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(category.UserID) {
		return nil, apperror.Forbidden(fmt.Sprintf("You can only %s categories that you have created yourself", verb))
	}
	return category, nil
}

// AllowPrivate reports whether every item in the category belongs to the
// category's owner. A category holding other users' items stays public.
func (s *CategoryService) AllowPrivate(ctx context.Context, category *model.Category) (bool, error) {
	foreign, err := s.categoryRepository.CountForeignItems(ctx, category.ID)
	if err != nil {
		return false, fmt.Errorf("failed to inspect category items: %w", err)
	}
	return foreign == 0, nil
}

// Edit changes name, description and visibility. A request to go private is
// overridden when other users' items are in the category. A public name that
// collides with another public category rejects the whole edit.
func (s *CategoryService) Edit(ctx context.Context, viewer model.Viewer, id int64, input CategoryInput) (*model.Category, error) {
	category, err := s.owned(ctx, viewer, id, "edit")
	if err != nil {
		return nil, err
	}

	input, err = input.normalized()
	if err != nil {
		return nil, err
	}

	public := input.Public
	if !public {
		allowed, err := s.AllowPrivate(ctx, category)
		if err != nil {
			return nil, err
		}
		public = !allowed
	}

	if public {
		exists, err := s.NameExists(ctx, input.Name, &category.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.ValidationFailed("name", msgPublicNameTaken)
		}
	}

	category.Name = input.Name
	category.Description = input.Description
	category.Public = public

	err = s.categoryRepository.Update(ctx, category)
	if errors.Is(err, repository.ErrDuplicatePublicName) {
		return nil, apperror.ValidationFailed("name", msgPublicNameTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// Delete removes an empty category owned by viewer.
func (s *CategoryService) Delete(ctx context.Context, viewer model.Viewer, id int64) error {
	category, err := s.owned(ctx, viewer, id, "delete")
	if err != nil {
		return err
	}

	count, err := s.categoryRepository.CountItems(ctx, category.ID)
	if err != nil {
		return fmt.Errorf("failed to count category items: %w", err)
	}
	if count > 0 {
		return apperror.Conflict("This category has items in it. You can only delete an empty category (There may be private items in there)")
	}

	err = s.categoryRepository.Delete(ctx, category.ID)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return apperror.NotFound("category", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	slog.Info("category deleted", "category_id", category.ID, "user_id", viewer.UserID)
	return nil
}
