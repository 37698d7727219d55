package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"lifedrop/internal/accounts"
	"lifedrop/internal/appointments"
	"lifedrop/internal/requests"
	"lifedrop/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Accounts interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*types.User, error)
	Authenticate(ctx context.Context, email, password string) (*types.User, string, error)
	Profile(ctx context.Context, userID string) (*types.User, error)
	Update(ctx context.Context, caller types.Caller, userID string, in accounts.UpdateInput) (*types.User, error)
}

type Directory interface {
	All(ctx context.Context) ([]*types.User, error)
	FindByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.User, error)
	FindMatches(ctx context.Context, group types.BloodGroup, city string) ([]*types.User, error)
	ListCities(ctx context.Context) ([]string, error)
}

type Requests interface {
	Create(ctx context.Context, requesterID string, in requests.CreateInput) (*requests.CreateResult, error)
	UpdateStatus(ctx context.Context, caller types.Caller, requestID string, status types.RequestStatus, expectedRevision *int) (*types.BloodRequest, error)
	ListAll(ctx context.Context) ([]*types.BloodRequest, error)
	ListActiveByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.BloodRequest, error)
	ListMine(ctx context.Context, userID string) ([]*types.BloodRequest, error)
}

type Appointments interface {
	Schedule(ctx context.Context, userID string, in appointments.ScheduleInput) (*types.Appointment, error)
	ListUpcoming(ctx context.Context, userID string) ([]*types.Appointment, error)
	Cancel(ctx context.Context, callerID, appointmentID string) (*types.Appointment, error)
	Complete(ctx context.Context, caller types.Caller, appointmentID string, units int) (*types.Appointment, error)
	History(ctx context.Context, userID string) ([]*types.Donation, error)
	Record(ctx context.Context, caller types.Caller, in appointments.RecordInput) (*types.Donation, error)
}

type Tokens interface {
	Verify(ctx context.Context, raw string) (types.Caller, error)
	Revoke(ctx context.Context, raw string) error
}

// Pinger reports database liveness for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	accounts     Accounts
	directory    Directory
	requests     Requests
	appointments Appointments
	tokens       Tokens
	db           Pinger

	cookie *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	accounts Accounts,
	directory Directory,
	requests Requests,
	appointments Appointments,
	tokens Tokens,
	db Pinger,
) (*Service, error) {
	mux := flow.New()

	cookie, err := newSecureCookie(config, logger)
	if err != nil {
		return nil, err
	}

	s := &Service{
		logger:       logger,
		config:       config,
		accounts:     accounts,
		directory:    directory,
		requests:     requests,
		appointments: appointments,
		tokens:       tokens,
		db:           db,
		cookie:       cookie,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)
	// wraps the mux itself so unmatched "/path/" still reaches its route
	s.server.Handler = s.StripTrailingSlash(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.NotFound = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowed = http.HandlerFunc(s.handleMethodNotAllowed)

	r.Use(s.Recoverer)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/user-api/user", s.handleRegister, http.MethodPost)
	r.HandleFunc("/user-api/login", s.handleLogin, http.MethodPost)
	r.HandleFunc("/user-api/users", s.handleListUsers, http.MethodGet)
	r.HandleFunc("/user-api/users/:bloodGroup", s.handleUsersByBloodGroup, http.MethodGet)
	r.HandleFunc("/user-api/donors", s.handleFindDonors, http.MethodGet)
	r.HandleFunc("/user-api/cities", s.handleListCities, http.MethodGet)

	r.HandleFunc("/request-api/all", s.handleListRequests, http.MethodGet)
	r.HandleFunc("/request-api/byBloodGroup/:group", s.handleRequestsByBloodGroup, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/user-api/logout", s.handleLogout, http.MethodPost)
		r.HandleFunc("/user-api/profile", s.handleProfile, http.MethodGet)
		r.HandleFunc("/user-api/user", s.handleUpdateUser, http.MethodPut)

		r.HandleFunc("/request-api/create", s.handleCreateRequest, http.MethodPost)
		r.HandleFunc("/request-api/myRequests", s.handleMyRequests, http.MethodGet)
		r.HandleFunc("/request-api/updateStatus/:id", s.handleUpdateRequestStatus, http.MethodPut)

		r.HandleFunc("/donation-api/history", s.handleDonationHistory, http.MethodGet)
		r.HandleFunc("/donation-api/appointments", s.handleListAppointments, http.MethodGet)
		r.HandleFunc("/donation-api/appointments", s.handleScheduleAppointment, http.MethodPost)
		r.HandleFunc("/donation-api/appointments/:id", s.handleCancelAppointment, http.MethodDelete)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireAdmin)

			r.HandleFunc("/donation-api/appointments/:id/complete", s.handleCompleteAppointment, http.MethodPut)
			r.HandleFunc("/donation-api/record", s.handleRecordDonation, http.MethodPost)
		})
	})
}

// newSecureCookie decodes the configured cookie keys. Missing keys are
// replaced with random ones, which invalidates cookies across restarts.
func newSecureCookie(config *types.Config, logger *logrus.Logger) (*securecookie.SecureCookie, error) {
	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode COOKIE_HASH_KEY: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode COOKIE_BLOCK_KEY: %w", err)
	}

	if len(hashKey) == 0 || len(blockKey) == 0 {
		logger.Warn("cookie keys not configured, generating ephemeral keys")
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
	}

	cookie := securecookie.New(hashKey, blockKey)
	cookie.MaxAge(int((24 * time.Hour).Seconds()))

	return cookie, nil
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.WithError(err).Error("health check failed")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeFailure(w, http.StatusNotFound, "Route not found")
}

func (s *Service) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
}
