package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

type UserRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *sqlx.Tx) UserRepository

	// Create inserts a user and sets its generated id.
	Create(ctx context.Context, user *model.User) error
	// Insert stores a user under its preset id. Used for the admin sentinel.
	Insert(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id int64) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByUsername(ctx context.Context, username string) (*model.User, error)
	// UsernameTaken reports whether another user than excludeID holds username.
	UsernameTaken(ctx context.Context, username string, excludeID *int64) (bool, error)
	List(ctx context.Context, page Page) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type userRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepository{db: tx}
}

func userConstraintError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	if strings.Contains(err.Error(), "username") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.RegisterDate.IsZero() {
		user.RegisterDate = time.Now().UTC()
	}

	query, args, err := psql.Insert("users").
		Columns("name", "username", "email", "picture", "about", "register_date").
		Values(user.Name, user.Username, user.Email, user.Picture, user.About, user.RegisterDate).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql: %w", err)
	}

	err = sqlx.GetContext(ctx, r.db, &user.ID, query, args...)
	if err != nil {
		return userConstraintError(err)
	}
	return nil
}

func (r *userRepository) Insert(ctx context.Context, user *model.User) error {
	if user.RegisterDate.IsZero() {
		user.RegisterDate = time.Now().UTC()
	}

	query := `INSERT INTO users (id, name, username, email, picture, about, register_date) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.Picture, user.About, user.RegisterDate)
	if err != nil {
		return userConstraintError(err)
	}
	return nil
}

func (r *userRepository) by(ctx context.Context, column string, value any) (*model.User, error) {
	query, args, err := psql.Select("*").From("users").Where(squirrel.Eq{column: value}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}

	user := &model.User{}
	err = sqlx.GetContext(ctx, r.db, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) ByID(ctx context.Context, id int64) (*model.User, error) {
	return r.by(ctx, "id", id)
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.by(ctx, "email", email)
}

func (r *userRepository) ByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.by(ctx, "username", username)
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID *int64) (bool, error) {
	b := psql.Select("COUNT(*)").From("users").Where(squirrel.Eq{"username": username})
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

func (r *userRepository) List(ctx context.Context, page Page) ([]*model.User, error) {
	query, args, err := page.apply(psql.Select("*").From("users").OrderBy("id")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}

	users := []*model.User{}
	err = sqlx.SelectContext(ctx, r.db, &users, query, args...)
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET name = $1, username = $2, email = $3, picture = $4, about = $5 WHERE id = $6`

	res, err := r.db.ExecContext(ctx, query, user.Name, user.Username, user.Email, user.Picture, user.About, user.ID)
	if err != nil {
		return userConstraintError(err)
	}
	return expectRow(res, ErrUserNotFound)
}
