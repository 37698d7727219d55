package requests

import (
	"context"
	"strings"
	"time"

	"lifedrop/internal/notify"
	"lifedrop/internal/utils"
	"lifedrop/internal/validate"
	"lifedrop/pkg/types"

	"github.com/sirupsen/logrus"
)

const defaultNotifyTimeout = 30 * time.Second

type Ledger interface {
	Request(ctx context.Context, requestID string) (*types.BloodRequest, error)
	Requests(ctx context.Context) ([]*types.BloodRequest, error)
	ActiveRequestsByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.BloodRequest, error)
	RequestsByCreator(ctx context.Context, userID string) ([]*types.BloodRequest, error)
	Create(ctx context.Context, request *types.BloodRequest) error
	UpdateStatus(ctx context.Context, requestID string, status types.RequestStatus, revision int) (*types.BloodRequest, error)
}

type DonorMatcher interface {
	FindMatches(ctx context.Context, group types.BloodGroup, city string) ([]*types.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []notify.Recipient, details notify.Details) notify.Result
	Configured() bool
}

type Service struct {
	logger        logrus.FieldLogger
	ledger        Ledger
	donors        DonorMatcher
	notifier      Notifier
	validate      *validate.Validator
	notifyTimeout time.Duration
}

func New(logger logrus.FieldLogger, ledger Ledger, donors DonorMatcher, notifier Notifier, validator *validate.Validator, notifyTimeout time.Duration) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &Service{
		logger:        logger,
		ledger:        ledger,
		donors:        donors,
		notifier:      notifier,
		validate:      validator,
		notifyTimeout: notifyTimeout,
	}
}

type CreateInput struct {
	RequesterName  string           `json:"requesterName" label:"Requester Name" validate:"required"`
	BloodGroup     types.BloodGroup `json:"bloodGroup" label:"Blood Group" validate:"required,bloodgroup"`
	Units          int              `json:"units" validate:"required,min=1"`
	Location       string           `json:"location" validate:"required"`
	City           string           `json:"city" validate:"required"`
	State          string           `json:"state" validate:"required"`
	Hospital       *string          `json:"hospital"`
	ContactNumber  string           `json:"contactNumber" label:"Contact Number" validate:"required"`
	ContactEmail   string           `json:"contactEmail" label:"Contact Email" validate:"required,emailshape"`
	Urgency        types.Urgency    `json:"urgency" validate:"urgency"`
	AdditionalInfo *string          `json:"additionalInfo"`
}

func (in *CreateInput) normalize() {
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.Location = strings.TrimSpace(in.Location)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.Hospital = utils.TrimmedOrNil(in.Hospital)
	in.AdditionalInfo = utils.TrimmedOrNil(in.AdditionalInfo)
	if in.Urgency == "" {
		in.Urgency = types.DefaultRequestUrgency
	}
}

// CreateResult is a persisted request plus what happened when its donors
// were notified.
type CreateResult struct {
	Request         *types.BloodRequest
	MatchedCount    int
	Notification    notify.Result
	EmailConfigured bool
}

// Create persists the request and then notifies matching donors. Once the
// row is written, directory or mail failures only degrade the notification
// outcome.
func (s *Service) Create(ctx context.Context, requesterID string, in CreateInput) (*CreateResult, error) {
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	request := &types.BloodRequest{
		ID:             utils.NanoID(),
		RequesterName:  in.RequesterName,
		BloodGroup:     in.BloodGroup,
		Units:          in.Units,
		Location:       in.Location,
		City:           in.City,
		State:          in.State,
		Hospital:       in.Hospital,
		ContactNumber:  in.ContactNumber,
		ContactEmail:   in.ContactEmail,
		Urgency:        in.Urgency,
		AdditionalInfo: in.AdditionalInfo,
		Status:         types.RequestStatusActive,
		Revision:       1,
		CreatedBy:      requesterID,
	}

	if err := s.ledger.Create(ctx, request); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"request_id":  request.ID,
		"blood_group": request.BloodGroup,
		"city":        request.City,
	})
	log.Info("blood request created")

	result := &CreateResult{
		Request:         request,
		EmailConfigured: s.notifier.Configured(),
	}

	// the client may hang up, the batch should still finish
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	donors, err := s.donors.FindMatches(notifyCtx, request.BloodGroup, request.City)
	if err != nil {
		log.WithError(err).Error("failed to find matching donors, skipping notifications")
		return result, nil
	}
	result.MatchedCount = len(donors)

	recipients := make([]notify.Recipient, 0, len(donors))
	for _, donor := range donors {
		recipients = append(recipients, notify.Recipient{
			UserID: donor.ID,
			Name:   donor.Username,
			Email:  donor.Email,
		})
	}

	result.Notification = s.notifier.Notify(notifyCtx, recipients, notify.Details{
		RequestID:      request.ID,
		RequesterName:  request.RequesterName,
		BloodGroup:     request.BloodGroup,
		Units:          request.Units,
		City:           request.City,
		State:          request.State,
		Hospital:       utils.PtrString(request.Hospital),
		ContactNumber:  request.ContactNumber,
		ContactEmail:   request.ContactEmail,
		Urgency:        request.Urgency,
		AdditionalInfo: utils.PtrString(request.AdditionalInfo),
	})

	return result, nil
}

// UpdateStatus moves a request through its state machine. expectedRevision,
// when given, must match the stored revision.
func (s *Service) UpdateStatus(ctx context.Context, caller types.Caller, requestID string, status types.RequestStatus, expectedRevision *int) (*types.BloodRequest, error) {
	if !status.Valid() {
		return nil, types.NewValidationError("Status must be one of Active, Fulfilled, Cancelled")
	}

	request, err := s.ledger.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !caller.Owns(request.CreatedBy) {
		return nil, types.ErrForbidden
	}

	if !request.Status.CanTransitionTo(status) {
		return nil, &types.TransitionError{Entity: "blood request", From: string(request.Status), To: string(status)}
	}

	if expectedRevision != nil && *expectedRevision != request.Revision {
		return nil, types.ErrVersionConflict
	}

	updated, err := s.ledger.UpdateStatus(ctx, requestID, status, request.Revision)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"from":       request.Status,
		"to":         updated.Status,
		"user_id":    caller.UserID,
	}).Info("blood request status updated")

	return updated, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*types.BloodRequest, error) {
	return s.ledger.Requests(ctx)
}

func (s *Service) ListActiveByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.BloodRequest, error) {
	if !group.Valid() {
		return nil, types.NewValidationError("Blood Group must be one of A+, A-, B+, B-, O+, O-, AB+, AB-")
	}
	return s.ledger.ActiveRequestsByBloodGroup(ctx, group)
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]*types.BloodRequest, error) {
	return s.ledger.RequestsByCreator(ctx, userID)
}
