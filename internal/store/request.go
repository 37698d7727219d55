package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

var requestColumns = utils.StructTagValues(types.BloodRequest{})

type RequestRepository struct {
	pool Pool
}

func NewRequestRepository(pool Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.BloodRequest, error) {
	query, args, err := psql().
		Select(requestColumns...).
		From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate blood request query: %w", err)
	}

	var request types.BloodRequest
	err = pgxscan.Get(ctx, r.pool, &request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch blood request: %w", err)
	}

	return &request, nil
}

func (r *RequestRepository) Requests(ctx context.Context) ([]*types.BloodRequest, error) {
	return r.selectRequests(ctx, psql().
		Select(requestColumns...).
		From(requestTableName).
		OrderBy("created_at DESC"))
}

func (r *RequestRepository) ActiveRequestsByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.BloodRequest, error) {
	return r.selectRequests(ctx, psql().
		Select(requestColumns...).
		From(requestTableName).
		Where(sq.Eq{"blood_group": group, "status": types.RequestStatusActive}).
		OrderBy("created_at DESC"))
}

func (r *RequestRepository) RequestsByCreator(ctx context.Context, userID string) ([]*types.BloodRequest, error) {
	return r.selectRequests(ctx, psql().
		Select(requestColumns...).
		From(requestTableName).
		Where(sq.Eq{"created_by": userID}).
		OrderBy("created_at DESC"))
}

func (r *RequestRepository) selectRequests(ctx context.Context, builder sq.SelectBuilder) ([]*types.BloodRequest, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate blood requests query: %w", err)
	}

	requests := make([]*types.BloodRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blood requests: %w", err)
	}

	return requests, nil
}

func (r *RequestRepository) Create(ctx context.Context, request *types.BloodRequest) error {
	now := time.Now()
	request.CreatedAt = now
	request.UpdatedAt = now

	query, args, err := psql().
		Insert(requestTableName).
		SetMap(utils.StructToMap(request)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create blood request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create blood request: %w", err)
	}

	return nil
}

// UpdateStatus writes status only if the row is still at revision and bumps
// the revision. A stale revision yields types.ErrVersionConflict.
func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID string, status types.RequestStatus, revision int) (*types.BloodRequest, error) {
	query, args, err := psql().
		Update(requestTableName).
		Set("status", status).
		Set("revision", sq.Expr("revision + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": requestID, "revision": revision}).
		Suffix("RETURNING " + strings.Join(requestColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update blood request status query: %w", err)
	}

	var request types.BloodRequest
	err = pgxscan.Get(ctx, r.pool, &request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to update blood request status: %w", err)
	}

	return &request, nil
}
