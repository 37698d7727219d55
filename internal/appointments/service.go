package appointments

import (
	"context"
	"strings"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/internal/validate"
	"lifedrop/pkg/types"

	"github.com/sirupsen/logrus"
)

type AppointmentStore interface {
	Appointment(ctx context.Context, appointmentID string) (*types.Appointment, error)
	UpcomingAppointments(ctx context.Context, userID string, from time.Time) ([]*types.Appointment, error)
	Create(ctx context.Context, appointment *types.Appointment) error
	UpdateStatus(ctx context.Context, appointmentID string, status types.AppointmentStatus, revision int) (*types.Appointment, error)
	Complete(ctx context.Context, appointmentID string, revision int, donation *types.Donation) (*types.Appointment, error)
}

type DonationStore interface {
	DonationsByUser(ctx context.Context, userID string) ([]*types.Donation, error)
	Create(ctx context.Context, donation *types.Donation) error
}

type UserLookup interface {
	User(ctx context.Context, userID string) (*types.User, error)
}

type Service struct {
	logger       logrus.FieldLogger
	appointments AppointmentStore
	donations    DonationStore
	users        UserLookup
	validate     *validate.Validator
	now          func() time.Time
}

func New(logger logrus.FieldLogger, appointments AppointmentStore, donations DonationStore, users UserLookup, validator *validate.Validator) *Service {
	return &Service{
		logger:       logger,
		appointments: appointments,
		donations:    donations,
		users:        users,
		validate:     validator,
		now:          time.Now,
	}
}

type ScheduleInput struct {
	Date    string `json:"date" validate:"required,isodate"`
	Time    string `json:"time" validate:"required"`
	Center  string `json:"center" validate:"required"`
	Address string `json:"address" validate:"required"`
}

func (in *ScheduleInput) normalize() {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Center = strings.TrimSpace(in.Center)
	in.Address = strings.TrimSpace(in.Address)
}

type RecordInput struct {
	UserID     string               `json:"userId" label:"User" validate:"required"`
	Date       string               `json:"date" validate:"required,isodate"`
	Center     string               `json:"center" validate:"required"`
	Address    string               `json:"address" validate:"required"`
	BloodGroup *types.BloodGroup    `json:"bloodGroup" label:"Blood Group" validate:"omitnil,bloodgroup"`
	Units      int                  `json:"units" validate:"min=1"`
	Status     types.DonationStatus `json:"status" validate:"oneof=Completed Pending Cancelled"`
}

func (in *RecordInput) normalize() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Date = strings.TrimSpace(in.Date)
	in.Center = strings.TrimSpace(in.Center)
	in.Address = strings.TrimSpace(in.Address)
	if in.Units == 0 {
		in.Units = 1
	}
	if in.Status == "" {
		in.Status = types.DonationStatusCompleted
	}
}

// today is the current calendar date as stored in DATE columns.
func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) Schedule(ctx context.Context, userID string, in ScheduleInput) (*types.Appointment, error) {
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	date, _ := time.Parse(types.DateLayout, in.Date)
	if date.Before(s.today()) {
		return nil, types.NewValidationError("Date cannot be in the past")
	}

	appointment := &types.Appointment{
		ID:       utils.NanoID(),
		UserID:   userID,
		Date:     date,
		Time:     in.Time,
		Center:   in.Center,
		Address:  in.Address,
		Status:   types.AppointmentStatusScheduled,
		Revision: 1,
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"user_id":        userID,
		"date":           in.Date,
	}).Info("appointment scheduled")

	return appointment, nil
}

// ListUpcoming returns the user's Scheduled appointments from today onward,
// earliest first.
func (s *Service) ListUpcoming(ctx context.Context, userID string) ([]*types.Appointment, error) {
	return s.appointments.UpcomingAppointments(ctx, userID, s.today())
}

// Cancel marks the caller's own appointment Cancelled. Appointments are never
// deleted.
func (s *Service) Cancel(ctx context.Context, callerID, appointmentID string) (*types.Appointment, error) {
	appointment, err := s.appointments.Appointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.UserID != callerID {
		return nil, types.ErrForbidden
	}

	if err := checkTransition(appointment, types.AppointmentStatusCancelled); err != nil {
		return nil, err
	}

	return s.appointments.UpdateStatus(ctx, appointmentID, types.AppointmentStatusCancelled, appointment.Revision)
}

// Complete is the admin path that closes an appointment and records the
// resulting donation atomically.
func (s *Service) Complete(ctx context.Context, caller types.Caller, appointmentID string, units int) (*types.Appointment, error) {
	if !caller.IsAdmin() {
		return nil, types.ErrForbidden
	}
	if units == 0 {
		units = 1
	}
	if units < 0 {
		return nil, types.NewValidationError("Units must be at least 1")
	}

	appointment, err := s.appointments.Appointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(appointment, types.AppointmentStatusCompleted); err != nil {
		return nil, err
	}

	donor, err := s.users.User(ctx, appointment.UserID)
	if err != nil {
		return nil, err
	}
	group := donor.BloodGroup

	donation := &types.Donation{
		ID:            utils.NanoID(),
		UserID:        appointment.UserID,
		AppointmentID: &appointment.ID,
		Date:          appointment.Date,
		Center:        appointment.Center,
		Address:       appointment.Address,
		BloodGroup:    &group,
		Units:         units,
		Status:        types.DonationStatusCompleted,
	}

	completed, err := s.appointments.Complete(ctx, appointmentID, appointment.Revision, donation)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": appointmentID,
		"donation_id":    donation.ID,
		"user_id":        appointment.UserID,
	}).Info("appointment completed")

	return completed, nil
}

func (s *Service) History(ctx context.Context, userID string) ([]*types.Donation, error) {
	return s.donations.DonationsByUser(ctx, userID)
}

// Record appends a donation directly, for donations made outside a
// scheduled appointment. Admin only.
func (s *Service) Record(ctx context.Context, caller types.Caller, in RecordInput) (*types.Donation, error) {
	if !caller.IsAdmin() {
		return nil, types.ErrForbidden
	}

	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.users.User(ctx, in.UserID); err != nil {
		return nil, err
	}

	date, _ := time.Parse(types.DateLayout, in.Date)
	donation := &types.Donation{
		ID:         utils.NanoID(),
		UserID:     in.UserID,
		Date:       date,
		Center:     in.Center,
		Address:    in.Address,
		BloodGroup: in.BloodGroup,
		Units:      in.Units,
		Status:     in.Status,
	}

	if err := s.donations.Create(ctx, donation); err != nil {
		return nil, err
	}

	return donation, nil
}

func checkTransition(appointment *types.Appointment, next types.AppointmentStatus) error {
	if !appointment.Status.CanTransitionTo(next) {
		return &types.TransitionError{Entity: "appointment", From: string(appointment.Status), To: string(next)}
	}
	return nil
}
