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
	ErrItemNotFound = errors.New("item not found")
)

// ItemFilter selects items for listing. Results are always limited to what
// Viewer may see.
type ItemFilter struct {
	Viewer     model.Viewer
	OwnerID    *int64
	CategoryID *int64
}

type ItemRepository interface {
	WithTx(tx *sqlx.Tx) ItemRepository

	Create(ctx context.Context, item *model.Item) error
	ByID(ctx context.Context, id int64) (*model.Item, error)
	// List returns visible items, newest first.
	List(ctx context.Context, filter ItemFilter, page Page) ([]*model.Item, error)
	// AllByOwner returns every item of a user, private ones included. It is
	// meant for the owner's own write paths, never for display to others.
	AllByOwner(ctx context.Context, ownerID int64) ([]*model.Item, error)
	Update(ctx context.Context, item *model.Item) error
	UpdateLink(ctx context.Context, id int64, link string) error
	Delete(ctx context.Context, id int64) error
	DeleteByOwner(ctx context.Context, ownerID int64) (int64, error)
}

type itemRepository struct {
	db sqlx.ExtContext
}

func NewItemRepository(db sqlx.ExtContext) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) WithTx(tx *sqlx.Tx) ItemRepository {
	return &itemRepository{db: tx}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	if item.AddDate.IsZero() {
		item.AddDate = time.Now().UTC()
	}

	query, args, err := psql.Insert("items").
		Columns("link", "title", "artist", "note", "keywords", "add_date", "edit_date", "category_id", "user_id", "public").
		Values(item.Link, item.Title, item.Artist, item.Note, item.Keywords, item.AddDate, item.EditDate,
			item.CategoryID, item.UserID, item.Public).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql: %w", err)
	}

	return sqlx.GetContext(ctx, r.db, &item.ID, query, args...)
}

func (r *itemRepository) ByID(ctx context.Context, id int64) (*model.Item, error) {
	item := &model.Item{}
	query := `SELECT * FROM items WHERE id = $1`

	err := sqlx.GetContext(ctx, r.db, item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter, page Page) ([]*model.Item, error) {
	b := psql.Select("i.*").From("items i").
		Where(visibleTo(filter.Viewer, "i")).
		OrderBy("i.add_date DESC", "i.id DESC")
	if filter.OwnerID != nil {
		b = b.Where(squirrel.Eq{"i.user_id": *filter.OwnerID})
	}
	if filter.CategoryID != nil {
		b = b.Where(squirrel.Eq{"i.category_id": *filter.CategoryID})
	}

	query, args, err := page.apply(b).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}

	items := []*model.Item{}
	err = sqlx.SelectContext(ctx, r.db, &items, query, args...)
	return items, err
}

func (r *itemRepository) AllByOwner(ctx context.Context, ownerID int64) ([]*model.Item, error) {
	items := []*model.Item{}
	query := `SELECT * FROM items WHERE user_id = $1 ORDER BY id`

	err := sqlx.SelectContext(ctx, r.db, &items, query, ownerID)
	return items, err
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	query := `UPDATE items
	          SET title = $1, artist = $2, note = $3, keywords = $4, category_id = $5, public = $6, edit_date = $7
	          WHERE id = $8`

	res, err := r.db.ExecContext(ctx, query,
		item.Title, item.Artist, item.Note, item.Keywords, item.CategoryID, item.Public, item.EditDate, item.ID)
	if err != nil {
		return err
	}
	return expectRow(res, ErrItemNotFound)
}

func (r *itemRepository) UpdateLink(ctx context.Context, id int64, link string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET link = $1 WHERE id = $2`, link, id)
	if err != nil {
		return err
	}
	return expectRow(res, ErrItemNotFound)
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, ErrItemNotFound)
}

func (r *itemRepository) DeleteByOwner(ctx context.Context, ownerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE user_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// expectRow turns an update that matched nothing into notFound.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
