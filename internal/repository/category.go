package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrDuplicatePublicName = errors.New("a public category with this name already exists")
)

// CategoryFilter selects categories for listing. The uncategorized sentinel
// is never listed.
type CategoryFilter struct {
	Viewer  model.Viewer
	OwnerID *int64
}

type CategoryRepository interface {
	WithTx(tx *sqlx.Tx) CategoryRepository

	Create(ctx context.Context, category *model.Category) error
	// Insert stores a category under its preset id. Used for the uncategorized sentinel.
	Insert(ctx context.Context, category *model.Category) error
	ByID(ctx context.Context, id int64) (*model.Category, error)
	// PublicNameExists reports whether a public category other than excludeID is named name.
	PublicNameExists(ctx context.Context, name string, excludeID *int64) (bool, error)
	List(ctx context.Context, filter CategoryFilter) ([]*model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id int64) error

	// CountItems counts all items in the category, whoever owns them.
	CountItems(ctx context.Context, id int64) (int, error)
	// CountForeignItems counts items in the category not owned by its owner.
	CountForeignItems(ctx context.Context, id int64) (int, error)

	DeleteOwnedPrivate(ctx context.Context, ownerID int64) (int64, error)
	DeleteOwnedEmptyPublic(ctx context.Context, ownerID int64) (int64, error)
	// ReassignOwner hands every category of from over to to.
	ReassignOwner(ctx context.Context, from, to int64) (int64, error)
}

type categoryRepository struct {
	db sqlx.ExtContext
}

func NewCategoryRepository(db sqlx.ExtContext) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) WithTx(tx *sqlx.Tx) CategoryRepository {
	return &categoryRepository{db: tx}
}

func categoryConstraintError(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicatePublicName
	}
	return err
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	if category.AddDate.IsZero() {
		category.AddDate = time.Now().UTC()
	}

	query, args, err := psql.Insert("categories").
		Columns("name", "description", "user_id", "public", "add_date").
		Values(category.Name, category.Description, category.UserID, category.Public, category.AddDate).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql: %w", err)
	}

	err = sqlx.GetContext(ctx, r.db, &category.ID, query, args...)
	if err != nil {
		return categoryConstraintError(err)
	}
	return nil
}

func (r *categoryRepository) Insert(ctx context.Context, category *model.Category) error {
	if category.AddDate.IsZero() {
		category.AddDate = time.Now().UTC()
	}

	query := `INSERT INTO categories (id, name, description, user_id, public, add_date) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		category.ID, category.Name, category.Description, category.UserID, category.Public, category.AddDate)
	if err != nil {
		return categoryConstraintError(err)
	}
	return nil
}

func (r *categoryRepository) ByID(ctx context.Context, id int64) (*model.Category, error) {
	category := &model.Category{}
	query := `SELECT * FROM categories WHERE id = $1`

	err := sqlx.GetContext(ctx, r.db, category, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepository) PublicNameExists(ctx context.Context, name string, excludeID *int64) (bool, error) {
	b := psql.Select("COUNT(*)").From("categories").
		Where(squirrel.Eq{"name": name, "public": true})
	if excludeID != nil {
		b = b.Where(squirrel.NotEq{"id": *excludeID})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build sql: %w", err)
	}

	var count int
	err = sqlx.GetContext(ctx, r.db, &count, query, args...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]*model.Category, error) {
	b := psql.Select("c.*").From("categories c").
		Where(visibleTo(filter.Viewer, "c")).
		Where(squirrel.NotEq{"c.id": model.UncategorizedID}).
		OrderBy("c.name", "c.id")
	if filter.OwnerID != nil {
		b = b.Where(squirrel.Eq{"c.user_id": *filter.OwnerID})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}

	categories := []*model.Category{}
	err = sqlx.SelectContext(ctx, r.db, &categories, query, args...)
	return categories, err
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	query := `UPDATE categories SET name = $1, description = $2, user_id = $3, public = $4 WHERE id = $5`

	res, err := r.db.ExecContext(ctx, query,
		category.Name, category.Description, category.UserID, category.Public, category.ID)
	if err != nil {
		return categoryConstraintError(err)
	}
	return expectRow(res, ErrCategoryNotFound)
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, ErrCategoryNotFound)
}

func (r *categoryRepository) count(ctx context.Context, b squirrel.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql: %w", err)
	}

	var count int
	err = sqlx.GetContext(ctx, r.db, &count, query, args...)
	return count, err
}

func (r *categoryRepository) CountItems(ctx context.Context, id int64) (int, error) {
	return r.count(ctx, psql.Select("COUNT(*)").From("items").Where(squirrel.Eq{"category_id": id}))
}

func (r *categoryRepository) CountForeignItems(ctx context.Context, id int64) (int, error) {
	return r.count(ctx, psql.Select("COUNT(*)").
		From("items i").
		Join("categories c ON c.id = i.category_id").
		Where(squirrel.Eq{"c.id": id}).
		Where("i.user_id <> c.user_id"))
}

func (r *categoryRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *categoryRepository) DeleteOwnedPrivate(ctx context.Context, ownerID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM categories WHERE user_id = $1 AND public = $2 AND id <> $3`,
		ownerID, false, model.UncategorizedID)
}

func (r *categoryRepository) DeleteOwnedEmptyPublic(ctx context.Context, ownerID int64) (int64, error) {
	query := `DELETE FROM categories
	          WHERE user_id = $1 AND public = $2 AND id <> $3
	          AND NOT EXISTS (SELECT 1 FROM items WHERE items.category_id = categories.id)`

	return r.exec(ctx, query, ownerID, true, model.UncategorizedID)
}

func (r *categoryRepository) ReassignOwner(ctx context.Context, from, to int64) (int64, error) {
	return r.exec(ctx, `UPDATE categories SET user_id = $1 WHERE user_id = $2`, to, from)
}
