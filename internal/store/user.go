package store

import (
	"context"
	"fmt"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

var userColumns = utils.StructTagValues(types.User{})

// unique constraint name -> field name reported to clients
var userUniqueFields = map[string]string{
	"users_email_key":        "Email",
	"users_username_key":     "Username",
	"users_phone_number_key": "PhoneNumber",
}

type UserRepository struct {
	pool Pool
}

func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	return r.getUser(ctx, query, args...)
}

func (r *UserRepository) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user by email query: %w", err)
	}

	return r.getUser(ctx, query, args...)
}

func (r *UserRepository) getUser(ctx context.Context, query string, args ...any) (*types.User, error) {
	var user types.User
	err := pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) Users(ctx context.Context) ([]*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users query: %w", err)
	}

	return r.selectUsers(ctx, query, args...)
}

func (r *UserRepository) UsersByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"blood_group": group}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users by blood group query: %w", err)
	}

	return r.selectUsers(ctx, query, args...)
}

// UsersByBloodGroupAndCity compares city case-insensitively.
func (r *UserRepository) UsersByBloodGroupAndCity(ctx context.Context, group types.BloodGroup, city string) ([]*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"blood_group": group}).
		Where("lower(city) = lower(?)", city).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users by blood group and city query: %w", err)
	}

	return r.selectUsers(ctx, query, args...)
}

func (r *UserRepository) selectUsers(ctx context.Context, query string, args ...any) ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, nil
}

// Cities lists each city once regardless of case, matching how donors are
// searched.
func (r *UserRepository) Cities(ctx context.Context) ([]string, error) {
	query, args, err := psql().
		Select("city").
		Options("DISTINCT ON (lower(city))").
		From(userTableName).
		Where(sq.NotEq{"city": ""}).
		OrderBy("lower(city)", "city").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cities query: %w", err)
	}

	cities := make([]string, 0)
	err = pgxscan.Select(ctx, r.pool, &cities, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cities: %w", err)
	}

	return cities, nil
}

func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		if dup := duplicateUserField(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *types.User) error {
	user.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(userTableName).
		SetMap(utils.StructToMap(user, "id", "created_at")).
		Where(sq.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update user query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if dup := duplicateUserField(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}

func duplicateUserField(err error) error {
	pgErr, ok := uniqueViolation(err)
	if !ok {
		return nil
	}

	field, ok := userUniqueFields[pgErr.ConstraintName]
	if !ok {
		return nil
	}

	return &types.DuplicateError{Field: field}
}
