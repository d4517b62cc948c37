package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/db"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/storage"
	"github.com/Kyushi/pemoi/internal/validation"
	"github.com/jmoiron/sqlx"
)

// NewUser is a completed signup.
type NewUser struct {
	Name     string `json:"name" label:"Name" validate:"max=250"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Picture  string `json:"picture" label:"Picture" validate:"max=500"`
	About    string `json:"about" label:"About" validate:"max=2000"`
}

// ProfileUpdate holds the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	Name     *string `json:"name" label:"Name" validate:"omitempty,max=250"`
	Username *string `json:"username"`
	About    *string `json:"about" label:"About" validate:"omitempty,max=2000"`
}

type UserService struct {
	db                 *sqlx.DB
	userRepository     repository.UserRepository
	categoryRepository repository.CategoryRepository
	itemRepository     repository.ItemRepository
	storage            storage.Storage
	emailService       *EmailService
	links              uploadLinks
}

func NewUserService(
	database *sqlx.DB,
	userRepository repository.UserRepository,
	categoryRepository repository.CategoryRepository,
	itemRepository repository.ItemRepository,
	storage storage.Storage,
	emailService *EmailService,
	uploadURLPrefix string,
) *UserService {
	return &UserService{
		db:                 database,
		userRepository:     userRepository,
		categoryRepository: categoryRepository,
		itemRepository:     itemRepository,
		storage:            storage,
		emailService:       emailService,
		links:              newUploadLinks(uploadURLPrefix),
	}
}

func fieldError(err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return apperror.ValidationFailed(fe.Field, fe.Message)
	}
	return err
}

// reservedUsername matches the placeholders given to deleted accounts.
func reservedUsername(username string) bool {
	id, ok := strings.CutPrefix(username, "user_")
	if !ok {
		return false
	}
	id, ok = strings.CutSuffix(id, "_deleted")
	if !ok {
		return false
	}
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}

// ValidateUsername checks length, characters and availability, in that
// order. selfID excludes the user's own row from the availability check.
func (s *UserService) ValidateUsername(ctx context.Context, candidate string, selfID *int64) error {
	err := validation.ValidateUsername(candidate)
	if err != nil {
		return apperror.ValidationFailed("username", err.Error())
	}

	taken, err := s.userRepository.UsernameTaken(ctx, candidate, selfID)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken || reservedUsername(candidate) {
		return apperror.ValidationFailed("username", validation.ErrUsernameTaken(candidate).Error())
	}

	return nil
}

// Create registers a user after a completed signup and provisions their
// upload area.
func (s *UserService) Create(ctx context.Context, input NewUser) (*model.User, error) {
	err := validation.Struct(input)
	if err != nil {
		return nil, fieldError(err)
	}

	email := validation.NormalizeEmail(input.Email)
	err = validation.ValidateEmail(email)
	if err != nil {
		return nil, apperror.ValidationFailed("email", err.Error())
	}

	err = s.ValidateUsername(ctx, input.Username, nil)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(input.Name),
		Username: input.Username,
		Email:    email,
		Picture:  input.Picture,
		About:    input.About,
	}

	// Duplicates here slipped past validation and are not masked
	err = s.userRepository.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = s.storage.CreateArea(user.Username)
	if err != nil {
		slog.Warn("failed to provision upload area", "error", err, "user_id", user.ID, "area", user.Username)
	}

	err = s.emailService.SendWelcomeEmail(ctx, user.Email, user.Name, user.Username)
	if err != nil {
		slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *UserService) ByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) ByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepository.ByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "This user does not exist"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns accounts in id order, anonymized ones included.
func (s *UserService) List(ctx context.Context, page repository.Page) ([]*model.User, error) {
	users, err := s.userRepository.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Profile returns the public view of a user. The email is only shown to
// the user themselves.
func (s *UserService) Profile(ctx context.Context, viewer model.Viewer, id int64) (*model.User, error) {
	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(user.ID) {
		user.Email = ""
	}
	return user, nil
}

// owned loads a live account that viewer may modify.
func (s *UserService) owned(ctx context.Context, viewer model.Viewer, id int64, forbidden string) (*model.User, error) {
	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, apperror.NotFound("user", id)
	}
	if !viewer.Owns(user.ID) {
		return nil, apperror.Forbidden(forbidden)
	}
	return user, nil
}

// EditProfile updates name, bio and username. A username change rewrites the
// user's upload links and renames the upload area as one unit: when the
// rename fails nothing is persisted.
func (s *UserService) EditProfile(ctx context.Context, viewer model.Viewer, id int64, update ProfileUpdate) (*model.User, error) {
	user, err := s.owned(ctx, viewer, id, "You can only edit your own profile")
	if err != nil {
		return nil, err
	}

	err = validation.Struct(update)
	if err != nil {
		return nil, fieldError(err)
	}

	oldUsername := user.Username
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.About != nil {
		user.About = *update.About
	}
	if update.Username != nil && *update.Username != oldUsername {
		err = s.ValidateUsername(ctx, *update.Username, &user.ID)
		if err != nil {
			return nil, err
		}
		user.Username = *update.Username
	}
	renamed := user.Username != oldUsername

	areaMoved := false
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := s.userRepository.WithTx(tx).Update(ctx, user)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateUsername) {
				return apperror.ValidationFailed("username", validation.ErrUsernameTaken(user.Username).Error())
			}
			return fmt.Errorf("failed to update user: %w", err)
		}

		if !renamed {
			return nil
		}

		items := s.itemRepository.WithTx(tx)
		owned, err := items.AllByOwner(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		for _, item := range owned {
			link, ok := s.links.Rename(item.Link, oldUsername, user.Username)
			if !ok {
				continue
			}
			err = items.UpdateLink(ctx, item.ID, link)
			if err != nil {
				return fmt.Errorf("failed to rewrite link of item %d: %w", item.ID, err)
			}
		}

		// Last step, so a failed rename rolls back the rows above
		err = s.storage.RenameArea(oldUsername, user.Username)
		if errors.Is(err, storage.ErrAreaNotFound) {
			err = s.storage.CreateArea(user.Username)
			if err != nil {
				return fmt.Errorf("failed to provision upload area: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to rename upload area: %w", err)
		}
		areaMoved = true
		return nil
	})
	if err != nil {
		if areaMoved {
			rbErr := s.storage.RenameArea(user.Username, oldUsername)
			if rbErr != nil {
				slog.Error("failed to restore upload area", "error", rbErr, "user_id", user.ID, "area", user.Username)
			}
		}
		return nil, err
	}

	if renamed {
		slog.Info("username changed", "user_id", user.ID, "old", oldUsername, "new", user.Username)
	}
	return user, nil
}

// DeleteAccount removes a user's items and categories and anonymizes the
// account. Public categories that still hold items are handed to the admin.
//
// Uploads are moved aside to a tombstone area before the database changes
// and purged after commit. A failed transaction moves them back, so the
// deletion either happens completely or not at all. If the process dies
// between the move and the commit, calling DeleteAccount again picks up
// the tombstone and finishes.
func (s *UserService) DeleteAccount(ctx context.Context, viewer model.Viewer, id int64) error {
	user, err := s.owned(ctx, viewer, id, "You can only delete your own profile.")
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return apperror.NotFound("user", id)
	}

	owned, err := s.itemRepository.AllByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	tombstone := tombstoneArea(user.ID)
	moved, err := s.moveAreaAside(user, owned, tombstone)
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		categories := s.categoryRepository.WithTx(tx)

		_, err := s.itemRepository.WithTx(tx).DeleteByOwner(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to delete items: %w", err)
		}

		_, err = categories.DeleteOwnedPrivate(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to delete private categories: %w", err)
		}

		_, err = categories.DeleteOwnedEmptyPublic(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to delete empty public categories: %w", err)
		}

		adopted, err := categories.ReassignOwner(ctx, user.ID, model.AdminID)
		if err != nil {
			return fmt.Errorf("failed to reassign categories: %w", err)
		}
		if adopted > 0 {
			slog.Info("admin adopted categories", "user_id", user.ID, "count", adopted)
		}

		anonymized := *user
		anonymized.Anonymize()
		err = s.userRepository.WithTx(tx).Update(ctx, &anonymized)
		if err != nil {
			return fmt.Errorf("failed to anonymize user: %w", err)
		}
		return nil
	})
	if err != nil {
		if moved {
			rbErr := s.storage.RenameArea(tombstone, user.Username)
			if rbErr != nil {
				slog.Error("failed to restore upload area", "error", rbErr, "user_id", user.ID, "area", tombstone)
			}
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if moved {
		err = purgeArea(s.storage, tombstone)
		if err != nil {
			slog.Warn("failed to purge deleted upload area", "error", err, "user_id", user.ID, "area", tombstone)
		}
	}

	err = s.emailService.SendAccountDeletedEmail(ctx, user.Email, user.Name)
	if err != nil {
		slog.Warn("failed to send account deleted email", "error", err, "user_id", user.ID)
	}

	slog.Info("account deleted", "user_id", user.ID)
	return nil
}

// moveAreaAside renames the user's upload area to tombstone. It refuses when
// the area holds files no item links to, and reports whether the tombstone
// now holds the user's files.
func (s *UserService) moveAreaAside(user *model.User, owned []*model.Item, tombstone string) (bool, error) {
	exists, err := s.storage.AreaExists(user.Username)
	if err != nil {
		return false, fmt.Errorf("failed to inspect upload area: %w", err)
	}
	if !exists {
		// Already moved by an interrupted deletion
		return s.storage.AreaExists(tombstone)
	}

	files, err := s.storage.List(user.Username)
	if err != nil {
		return false, fmt.Errorf("failed to list upload area: %w", err)
	}

	referenced := make(map[string]bool, len(owned))
	for _, item := range owned {
		file, ok := s.links.File(item.Link, user.Username)
		if ok {
			referenced[file] = true
		}
	}
	for _, file := range files {
		if !referenced[file] {
			return false, fmt.Errorf("upload area %s holds unknown file %s: %w", user.Username, file, storage.ErrAreaNotEmpty)
		}
	}

	err = s.storage.RenameArea(user.Username, tombstone)
	if err != nil {
		return false, fmt.Errorf("failed to move upload area aside: %w", err)
	}
	return true, nil
}

// PurgeDeletedArea removes what is left of a deleted account's uploads.
func (s *UserService) PurgeDeletedArea(ctx context.Context, id int64) error {
	user, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsDeleted() {
		return apperror.Conflict("account is not deleted")
	}

	err = purgeArea(s.storage, tombstoneArea(id))
	if errors.Is(err, storage.ErrAreaNotFound) {
		return nil
	}
	return err
}
