package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RevokedTokenRepository is the logout denylist, keyed by token id.
type RevokedTokenRepository struct {
	pool Pool
}

func NewRevokedTokenRepository(pool Pool) *RevokedTokenRepository {
	return &RevokedTokenRepository{pool: pool}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	query, args, err := psql().
		Insert(revokedTokenTableName).
		Columns("jti", "expires_at").
		Values(tokenID, expiresAt).
		Suffix("ON CONFLICT (jti) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate revoke token query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	query, args, err := psql().
		Select("1").
		From(revokedTokenTableName).
		Where(sq.Eq{"jti": tokenID}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate revoked token query: %w", err)
	}

	var revoked bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&revoked); err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}

	return revoked, nil
}

// Purge drops denylist entries whose tokens have expired on their own.
func (r *RevokedTokenRepository) Purge(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql().
		Delete(revokedTokenTableName).
		Where(sq.Lt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate purge revoked tokens query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
