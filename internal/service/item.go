package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/db"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/storage"
	"github.com/Kyushi/pemoi/internal/validation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ItemInput struct {
	Link       string `json:"link"`
	Title      string `json:"title" label:"Title" validate:"max=250"`
	Artist     string `json:"artist" label:"Artist" validate:"max=250"`
	Note       string `json:"note" label:"Note" validate:"max=5000"`
	Keywords   string `json:"keywords" label:"Keywords" validate:"max=500"`
	CategoryID int64  `json:"category_id"`
	Public     bool   `json:"public"`

	// NewCategory is created and used when CategoryID is the uncategorized
	// sentinel and a name is given.
	NewCategory *CategoryInput `json:"new_category,omitempty"`
}

// Upload is an image file sent along with a new item.
type Upload struct {
	Filename string
	Body     io.Reader
}

// ExternalItem is an image found elsewhere, saved privately and uncategorized.
type ExternalItem struct {
	Link     string `json:"link"`
	Title    string `json:"title" label:"Title" validate:"max=250"`
	Note     string `json:"note" label:"Note" validate:"max=5000"`
	Keywords string `json:"keywords" label:"Keywords" validate:"max=500"`
}

type ItemService struct {
	db                 *sqlx.DB
	itemRepository     repository.ItemRepository
	categoryRepository repository.CategoryRepository
	userRepository     repository.UserRepository
	storage            storage.Storage
	links              uploadLinks
}

func NewItemService(
	database *sqlx.DB,
	itemRepository repository.ItemRepository,
	categoryRepository repository.CategoryRepository,
	userRepository repository.UserRepository,
	storage storage.Storage,
	uploadURLPrefix string,
) *ItemService {
	return &ItemService{
		db:                 database,
		itemRepository:     itemRepository,
		categoryRepository: categoryRepository,
		userRepository:     userRepository,
		storage:            storage,
		links:              newUploadLinks(uploadURLPrefix),
	}
}

// author loads the signed-in user behind viewer.
func (s *ItemService) author(ctx context.Context, viewer model.Viewer) (*model.User, error) {
	if !viewer.LoggedIn {
		return nil, apperror.Forbidden("Please log in to save inspiration")
	}

	user, err := s.userRepository.ByID(ctx, viewer.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.Forbidden("Please log in to save inspiration")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsDeleted() {
		return nil, apperror.Forbidden("Please log in to save inspiration")
	}
	return user, nil
}

// checkCategory makes sure items only go into categories their owner can
// see, so nobody can put items into someone else's private category.
func (s *ItemService) checkCategory(ctx context.Context, viewer model.Viewer, id int64) error {
	category, err := s.categoryRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return apperror.NotFound("category", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get category: %w", err)
	}
	if !CanViewCategory(category, viewer) {
		return apperror.NotFound("category", id)
	}
	return nil
}

func (in ItemInput) wantsNewCategory() bool {
	return in.CategoryID == model.UncategorizedID && in.NewCategory != nil && strings.TrimSpace(in.NewCategory.Name) != ""
}

// Create saves a new item for viewer. The link comes from the upload when it
// is an allowed image, otherwise from input.Link.
func (s *ItemService) Create(ctx context.Context, viewer model.Viewer, input ItemInput, upload *Upload) (*model.Item, error) {
	owner, err := s.author(ctx, viewer)
	if err != nil {
		return nil, err
	}

	err = validation.Struct(input)
	if err != nil {
		return nil, fieldError(err)
	}

	useUpload := upload != nil && validation.AllowedImageName(upload.Filename)
	link := strings.TrimSpace(input.Link)
	if !useUpload {
		err = validation.ValidateImageLink(link)
		if err != nil {
			return nil, apperror.ValidationFailed("link", err.Error())
		}
	}

	if input.CategoryID != model.UncategorizedID {
		err = s.checkCategory(ctx, viewer, input.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	var key string
	if useUpload {
		file := storedFileName(uuid.NewString(), upload.Filename)
		key = storage.Key(owner.Username, file)

		err = s.storage.Save(key, upload.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to save upload: %w", err)
		}
		link = s.links.Link(owner.Username, file)
	}

	item := &model.Item{
		Link:       link,
		Title:      strings.TrimSpace(input.Title),
		Artist:     strings.TrimSpace(input.Artist),
		Note:       input.Note,
		Keywords:   strings.TrimSpace(input.Keywords),
		CategoryID: input.CategoryID,
		UserID:     owner.ID,
		Public:     input.Public,
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if input.wantsNewCategory() {
			category, err := createCategory(ctx, s.categoryRepository.WithTx(tx), owner.ID, *input.NewCategory)
			if err != nil {
				return err
			}
			item.CategoryID = category.ID
		}

		err := s.itemRepository.WithTx(tx).Create(ctx, item)
		if err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
		return nil
	})
	if err != nil {
		if key != "" {
			delErr := s.storage.Delete(key)
			if delErr != nil {
				slog.Error("failed to delete upload during cleanup", "error", delErr, "key", key)
			}
		}
		return nil, err
	}

	slog.Info("item created", "item_id", item.ID, "user_id", owner.ID, "category_id", item.CategoryID)
	return item, nil
}

// SaveExternal stores an outside image link as a private, uncategorized item.
func (s *ItemService) SaveExternal(ctx context.Context, viewer model.Viewer, external ExternalItem) (*model.Item, error) {
	return s.Create(ctx, viewer, ItemInput{
		Link:       external.Link,
		Title:      external.Title,
		Note:       external.Note,
		Keywords:   external.Keywords,
		CategoryID: model.UncategorizedID,
		Public:     false,
	}, nil)
}

// Get returns an item the viewer may see.
func (s *ItemService) Get(ctx context.Context, viewer model.Viewer, id int64) (*model.Item, error) {
	item, err := s.itemRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apperror.NotFound("item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if !CanViewItem(item, viewer) {
		return nil, apperror.NotFound("item", id)
	}
	return item, nil
}

func (s *ItemService) owned(ctx context.Context, viewer model.Viewer, id int64, forbidden string) (*model.Item, error) {
	if !viewer.LoggedIn {
		return nil, apperror.Forbidden(forbidden)
	}

	item, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(item.UserID) {
		return nil, apperror.Forbidden(forbidden)
	}
	return item, nil
}

// Edit updates the mutable fields of an item owned by viewer.
func (s *ItemService) Edit(ctx context.Context, viewer model.Viewer, id int64, input ItemInput) (*model.Item, error) {
	item, err := s.owned(ctx, viewer, id, "You can only edit your own items")
	if err != nil {
		return nil, err
	}

	err = validation.Struct(input)
	if err != nil {
		return nil, fieldError(err)
	}

	if input.CategoryID != item.CategoryID && input.CategoryID != model.UncategorizedID {
		err = s.checkCategory(ctx, viewer, input.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	item.Title = strings.TrimSpace(input.Title)
	item.Artist = strings.TrimSpace(input.Artist)
	item.Note = input.Note
	item.Keywords = strings.TrimSpace(input.Keywords)
	item.CategoryID = input.CategoryID
	item.Public = input.Public
	item.EditDate = &now

	err = s.itemRepository.Update(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// Delete removes an item owned by viewer and, when it was an upload, its
// file. File removal is best-effort.
func (s *ItemService) Delete(ctx context.Context, viewer model.Viewer, id int64) error {
	item, err := s.owned(ctx, viewer, id, "You can only delete your own items!")
	if err != nil {
		return err
	}

	owner, err := s.userRepository.ByID(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("failed to get owner: %w", err)
	}

	err = s.itemRepository.Delete(ctx, item.ID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return apperror.NotFound("item", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	file, ok := s.links.File(item.Link, owner.Username)
	if ok {
		err = s.storage.Delete(storage.Key(owner.Username, file))
		if err != nil {
			slog.Warn("failed to delete uploaded file", "error", err, "item_id", item.ID, "file", file)
		}
	}

	slog.Info("item deleted", "item_id", item.ID, "user_id", owner.ID)
	return nil
}

// ListIndex returns the newest items the viewer may see.
func (s *ItemService) ListIndex(ctx context.Context, viewer model.Viewer, page repository.Page) ([]*model.Item, error) {
	return s.list(ctx, repository.ItemFilter{Viewer: viewer}, page)
}

// ListByOwner returns a user's items as far as viewer may see them.
func (s *ItemService) ListByOwner(ctx context.Context, viewer model.Viewer, ownerID int64, page repository.Page) ([]*model.Item, error) {
	return s.list(ctx, repository.ItemFilter{Viewer: viewer, OwnerID: &ownerID}, page)
}

// ListByCategory returns the visible items of a visible category.
func (s *ItemService) ListByCategory(ctx context.Context, viewer model.Viewer, categoryID int64, page repository.Page) ([]*model.Item, error) {
	err := s.checkCategory(ctx, viewer, categoryID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.ItemFilter{Viewer: viewer, CategoryID: &categoryID}, page)
}

func (s *ItemService) list(ctx context.Context, filter repository.ItemFilter, page repository.Page) ([]*model.Item, error) {
	items, err := s.itemRepository.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}
