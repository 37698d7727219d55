package store

import (
	"testing"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/pkg/types"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return mock
}

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleUser(id string, group types.BloodGroup, city string) *types.User {
	return &types.User{
		ID:           id,
		Username:     "user-" + id,
		Email:        id + "@example.com",
		PasswordHash: "$2a$10$hash",
		PhoneNumber:  "98000" + id,
		Age:          30,
		Gender:       "female",
		BloodGroup:   group,
		Weight:       62.5,
		City:         city,
		State:        "Maharashtra",
		PinCode:      "411001",
		Role:         types.RoleUser,
		CreatedAt:    fixedTime,
		UpdatedAt:    fixedTime,
	}
}

func userRows(users ...*types.User) *pgxmock.Rows {
	rows := pgxmock.NewRows(userColumns)
	for _, u := range users {
		rows.AddRow(
			u.ID, u.Username, u.Email, u.PasswordHash, u.PhoneNumber, u.Age, u.Gender,
			u.BloodGroup, u.Weight, u.City, u.State, u.PinCode, u.Role, u.HasDonatedBefore,
			u.LastDonationDate, u.CreatedAt, u.UpdatedAt,
		)
	}
	return rows
}

func sampleRequest(id string, status types.RequestStatus, revision int) *types.BloodRequest {
	return &types.BloodRequest{
		ID:            id,
		RequesterName: "Chetan",
		BloodGroup:    types.BloodGroupOPos,
		Units:         2,
		Location:      "Ruby Hall",
		City:          "Pune",
		State:         "Maharashtra",
		Hospital:      utils.StringPtr("Ruby Hall Clinic"),
		ContactNumber: "9800000003",
		ContactEmail:  "chetan@example.com",
		Urgency:       types.UrgencyImmediate,
		Status:        status,
		Revision:      revision,
		CreatedBy:     "requester",
		CreatedAt:     fixedTime,
		UpdatedAt:     fixedTime,
	}
}

func requestRows(requests ...*types.BloodRequest) *pgxmock.Rows {
	rows := pgxmock.NewRows(requestColumns)
	for _, r := range requests {
		rows.AddRow(
			r.ID, r.RequesterName, r.BloodGroup, r.Units, r.Location, r.City, r.State,
			r.Hospital, r.ContactNumber, r.ContactEmail, r.Urgency, r.AdditionalInfo,
			r.Status, r.Revision, r.CreatedBy, r.CreatedAt, r.UpdatedAt,
		)
	}
	return rows
}

func appointmentRows(appointments ...*types.Appointment) *pgxmock.Rows {
	rows := pgxmock.NewRows(appointmentColumns)
	for _, a := range appointments {
		rows.AddRow(a.ID, a.UserID, a.Date, a.Time, a.Center, a.Address, a.Status, a.Revision, a.CreatedAt, a.UpdatedAt)
	}
	return rows
}

// Arguments follow squirrel's sorted SetMap column order. Timestamps stamped
// by the repository are matched with AnyArg.

func userInsertArgs(u *types.User) []any {
	return []any{
		u.Age, u.BloodGroup, u.City, pgxmock.AnyArg(), u.Email, u.Gender, u.HasDonatedBefore,
		u.ID, u.LastDonationDate, u.PasswordHash, u.PhoneNumber, u.PinCode, u.Role, u.State,
		pgxmock.AnyArg(), u.Username, u.Weight,
	}
}

func userUpdateArgs(u *types.User) []any {
	return []any{
		u.Age, u.BloodGroup, u.City, u.Email, u.Gender, u.HasDonatedBefore, u.LastDonationDate,
		u.PasswordHash, u.PhoneNumber, u.PinCode, u.Role, u.State, pgxmock.AnyArg(), u.Username,
		u.Weight, u.ID,
	}
}

func requestInsertArgs(r *types.BloodRequest) []any {
	return []any{
		r.AdditionalInfo, r.BloodGroup, r.City, r.ContactEmail, r.ContactNumber, pgxmock.AnyArg(),
		r.CreatedBy, r.Hospital, r.ID, r.Location, r.RequesterName, r.Revision, r.State, r.Status,
		r.Units, pgxmock.AnyArg(), r.Urgency,
	}
}

func appointmentInsertArgs(a *types.Appointment) []any {
	return []any{
		a.Address, a.Center, pgxmock.AnyArg(), a.Date, a.ID, a.Revision, a.Status, a.Time,
		pgxmock.AnyArg(), a.UserID,
	}
}

func donationInsertArgs(d *types.Donation) []any {
	return []any{
		d.Address, d.AppointmentID, d.BloodGroup, d.Center, pgxmock.AnyArg(), d.Date, d.ID,
		d.Status, d.Units, d.UserID,
	}
}
