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
	"github.com/jackc/pgx/v5"
)

var appointmentColumns = utils.StructTagValues(types.Appointment{})

type AppointmentRepository struct {
	pool Pool
}

func NewAppointmentRepository(pool Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Appointment(ctx context.Context, appointmentID string) (*types.Appointment, error) {
	query, args, err := psql().
		Select(appointmentColumns...).
		From(appointmentTableName).
		Where(sq.Eq{"id": appointmentID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate appointment query: %w", err)
	}

	var appointment types.Appointment
	err = pgxscan.Get(ctx, r.pool, &appointment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment: %w", err)
	}

	return &appointment, nil
}

// UpcomingAppointments returns the user's Scheduled appointments dated on or
// after from, earliest first.
func (r *AppointmentRepository) UpcomingAppointments(ctx context.Context, userID string, from time.Time) ([]*types.Appointment, error) {
	query, args, err := psql().
		Select(appointmentColumns...).
		From(appointmentTableName).
		Where(sq.Eq{"user_id": userID, "status": types.AppointmentStatusScheduled}).
		Where(sq.GtOrEq{"date": from}).
		OrderBy("date ASC", "time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upcoming appointments query: %w", err)
	}

	appointments := make([]*types.Appointment, 0)
	err = pgxscan.Select(ctx, r.pool, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upcoming appointments: %w", err)
	}

	return appointments, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, appointment *types.Appointment) error {
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	query, args, err := psql().
		Insert(appointmentTableName).
		SetMap(utils.StructToMap(appointment)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create appointment query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, appointmentID string, status types.AppointmentStatus, revision int) (*types.Appointment, error) {
	return updateAppointmentStatus(ctx, r.pool, appointmentID, status, revision)
}

// Complete marks the appointment Completed, appends the donation and flags the
// donor as having donated, all in one transaction.
func (r *AppointmentRepository) Complete(ctx context.Context, appointmentID string, revision int, donation *types.Donation) (*types.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin complete appointment transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	appointment, err := updateAppointmentStatus(ctx, tx, appointmentID, types.AppointmentStatusCompleted, revision)
	if err != nil {
		return nil, err
	}

	if err := insertDonation(ctx, tx, donation); err != nil {
		return nil, err
	}

	query, args, err := psql().
		Update(userTableName).
		Set("has_donated_before", true).
		Set("last_donation_date", donation.Date).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": donation.UserID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mark donor query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to mark donor as donated: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit complete appointment transaction: %w", err)
	}

	return appointment, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func updateAppointmentStatus(ctx context.Context, db querier, appointmentID string, status types.AppointmentStatus, revision int) (*types.Appointment, error) {
	query, args, err := psql().
		Update(appointmentTableName).
		Set("status", status).
		Set("revision", sq.Expr("revision + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": appointmentID, "revision": revision}).
		Suffix("RETURNING " + strings.Join(appointmentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update appointment status query: %w", err)
	}

	var appointment types.Appointment
	err = pgxscan.Get(ctx, db, &appointment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	return &appointment, nil
}
