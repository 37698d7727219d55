package store

import (
	"context"
	"fmt"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
)

var donationColumns = utils.StructTagValues(types.Donation{})

type DonationRepository struct {
	pool Pool
}

func NewDonationRepository(pool Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

// DonationsByUser lists a donor's history, most recent first.
func (r *DonationRepository) DonationsByUser(ctx context.Context, userID string) ([]*types.Donation, error) {
	query, args, err := psql().
		Select(donationColumns...).
		From(donationTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("date DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donations query: %w", err)
	}

	donations := make([]*types.Donation, 0)
	err = pgxscan.Select(ctx, r.pool, &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations: %w", err)
	}

	return donations, nil
}

func (r *DonationRepository) Create(ctx context.Context, donation *types.Donation) error {
	return insertDonation(ctx, r.pool, donation)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertDonation(ctx context.Context, db execer, donation *types.Donation) error {
	donation.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(donationTableName).
		SetMap(utils.StructToMap(donation)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create donation query: %w", err)
	}

	_, err = db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}

	return nil
}
