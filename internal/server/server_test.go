package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lifedrop/internal"
	"lifedrop/internal/accounts"
	"lifedrop/internal/appointments"
	"lifedrop/internal/auth"
	"lifedrop/internal/notify"
	"lifedrop/internal/requests"
	"lifedrop/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccounts struct {
	register     func(context.Context, accounts.RegisterInput) (*types.User, error)
	authenticate func(context.Context, string, string) (*types.User, string, error)
	profile      func(context.Context, string) (*types.User, error)
	update       func(context.Context, types.Caller, string, accounts.UpdateInput) (*types.User, error)
}

func (s *stubAccounts) Register(ctx context.Context, in accounts.RegisterInput) (*types.User, error) {
	return s.register(ctx, in)
}

func (s *stubAccounts) Authenticate(ctx context.Context, email, password string) (*types.User, string, error) {
	return s.authenticate(ctx, email, password)
}

func (s *stubAccounts) Profile(ctx context.Context, userID string) (*types.User, error) {
	return s.profile(ctx, userID)
}

func (s *stubAccounts) Update(ctx context.Context, caller types.Caller, userID string, in accounts.UpdateInput) (*types.User, error) {
	return s.update(ctx, caller, userID, in)
}

type stubDirectory struct {
	all         func(context.Context) ([]*types.User, error)
	byGroup     func(context.Context, types.BloodGroup) ([]*types.User, error)
	findMatches func(context.Context, types.BloodGroup, string) ([]*types.User, error)
	cities      func(context.Context) ([]string, error)
}

func (s *stubDirectory) All(ctx context.Context) ([]*types.User, error) { return s.all(ctx) }

func (s *stubDirectory) FindByBloodGroup(ctx context.Context, g types.BloodGroup) ([]*types.User, error) {
	return s.byGroup(ctx, g)
}

func (s *stubDirectory) FindMatches(ctx context.Context, g types.BloodGroup, city string) ([]*types.User, error) {
	return s.findMatches(ctx, g, city)
}

func (s *stubDirectory) ListCities(ctx context.Context) ([]string, error) { return s.cities(ctx) }

type stubRequests struct {
	create       func(context.Context, string, requests.CreateInput) (*requests.CreateResult, error)
	updateStatus func(context.Context, types.Caller, string, types.RequestStatus, *int) (*types.BloodRequest, error)
	listAll      func(context.Context) ([]*types.BloodRequest, error)
	byGroup      func(context.Context, types.BloodGroup) ([]*types.BloodRequest, error)
}

func (s *stubRequests) Create(ctx context.Context, requesterID string, in requests.CreateInput) (*requests.CreateResult, error) {
	return s.create(ctx, requesterID, in)
}

func (s *stubRequests) UpdateStatus(ctx context.Context, caller types.Caller, id string, status types.RequestStatus, rev *int) (*types.BloodRequest, error) {
	return s.updateStatus(ctx, caller, id, status, rev)
}

func (s *stubRequests) ListAll(ctx context.Context) ([]*types.BloodRequest, error) {
	return s.listAll(ctx)
}

func (s *stubRequests) ListActiveByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.BloodRequest, error) {
	if s.byGroup == nil {
		return []*types.BloodRequest{}, nil
	}
	return s.byGroup(ctx, group)
}

func (s *stubRequests) ListMine(context.Context, string) ([]*types.BloodRequest, error) {
	return []*types.BloodRequest{}, nil
}

type stubAppointments struct {
	cancel   func(context.Context, string, string) (*types.Appointment, error)
	complete func(context.Context, types.Caller, string, int) (*types.Appointment, error)
}

func (s *stubAppointments) Schedule(_ context.Context, userID string, in appointments.ScheduleInput) (*types.Appointment, error) {
	return &types.Appointment{ID: "appt-1", UserID: userID, Center: in.Center, Status: types.AppointmentStatusScheduled}, nil
}

func (s *stubAppointments) ListUpcoming(context.Context, string) ([]*types.Appointment, error) {
	return []*types.Appointment{}, nil
}

func (s *stubAppointments) Cancel(ctx context.Context, callerID, id string) (*types.Appointment, error) {
	return s.cancel(ctx, callerID, id)
}

func (s *stubAppointments) Complete(ctx context.Context, caller types.Caller, id string, units int) (*types.Appointment, error) {
	return s.complete(ctx, caller, id, units)
}

func (s *stubAppointments) History(context.Context, string) ([]*types.Donation, error) {
	return []*types.Donation{}, nil
}

func (s *stubAppointments) Record(_ context.Context, _ types.Caller, in appointments.RecordInput) (*types.Donation, error) {
	return &types.Donation{ID: "don-1", UserID: in.UserID, Units: in.Units}, nil
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (d *memDenylist) Revoke(_ context.Context, id string, _ time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = true
	return nil
}

func (d *memDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked[id], nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type harness struct {
	svc          *Service
	handler      http.Handler
	tokens       *auth.TokenService
	accounts     *stubAccounts
	directory    *stubDirectory
	requests     *stubRequests
	appointments *stubAppointments
	db           *stubPinger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger, _ := test.NewNullLogger()

	h := &harness{
		tokens:       auth.NewTokenService([]byte("server-test-secret"), &memDenylist{revoked: map[string]bool{}}),
		accounts:     &stubAccounts{},
		directory:    &stubDirectory{},
		requests:     &stubRequests{},
		appointments: &stubAppointments{},
		db:           &stubPinger{},
	}

	svc, err := New(
		&types.Config{ServerPort: 0, ReadTimeoutSec: 5, WriteTimeoutSec: 5},
		logger,
		h.accounts,
		h.directory,
		h.requests,
		h.appointments,
		h.tokens,
		h.db,
	)
	require.NoError(t, err)

	h.svc = svc
	h.handler = svc.Handler()
	return h
}

func (h *harness) token(t *testing.T, userID string, role types.Role) string {
	t.Helper()
	token, err := h.tokens.Issue(userID, userID+"@example.com", role)
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	h.db.err = errors.New("connection refused")
	rec = h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "Route not found", body["message"])

	rec = h.do(t, http.MethodDelete, "/user-api/cities", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/user-api/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required. No token provided.", decodeBody(t, rec)["message"])

	rec = h.do(t, http.MethodGet, "/user-api/profile", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["message"])
}

func TestLoginEmptyEmailIsUnknown(t *testing.T) {
	h := newHarness(t)

	var gotEmail *string
	h.accounts.authenticate = func(_ context.Context, email, _ string) (*types.User, string, error) {
		gotEmail = &email
		return nil, "", types.ErrUnknownEmail
	}

	rec := h.do(t, http.MethodPost, "/user-api/login", `{"email":"","password":"whatever"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email", decodeBody(t, rec)["message"])
	require.NotNil(t, gotEmail)
	assert.Empty(t, *gotEmail)
}

func TestLoginCookieAndLogout(t *testing.T) {
	h := newHarness(t)

	h.accounts.authenticate = func(_ context.Context, email, password string) (*types.User, string, error) {
		if password != "correct horse" {
			return nil, "", types.ErrBadSecret
		}
		token, err := h.tokens.Issue("u1", email, types.RoleUser)
		return &types.User{ID: "u1", Email: email}, token, err
	}
	h.accounts.profile = func(_ context.Context, userID string) (*types.User, error) {
		return &types.User{ID: userID}, nil
	}

	rec := h.do(t, http.MethodPost, "/user-api/login", `{"email":"a@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid password", decodeBody(t, rec)["message"])

	rec = h.do(t, http.MethodPost, "/user-api/login", `{"email":"a@example.com","password":"correct horse"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "login success", body["message"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == internal.COOKIE_ACCESS_TOKEN_NAME {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotEqual(t, token, cookie.Value)

	// the encrypted cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/user-api/profile", nil)
	req.AddCookie(cookie)
	cookieRec := httptest.NewRecorder()
	h.handler.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)

	rec = h.do(t, http.MethodPost, "/user-api/logout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/user-api/profile", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTamperedCookieIsInvalid(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/user-api/profile", nil)
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_ACCESS_TOKEN_NAME, Value: "garbage"})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["message"])

	token, err := h.svc.accessToken(req)
	assert.Empty(t, token)
	require.ErrorIs(t, err, types.ErrTokenInvalid)
}

func TestRegisterErrors(t *testing.T) {
	h := newHarness(t)

	h.accounts.register = func(context.Context, accounts.RegisterInput) (*types.User, error) {
		return nil, &types.DuplicateError{Field: "Email"}
	}

	rec := h.do(t, http.MethodPost, "/user-api/user", `{"email":"dup@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decodeBody(t, rec)["message"])

	rec = h.do(t, http.MethodPost, "/user-api/user", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody(t, rec)["message"])
}

func TestFindDonorsDecodesQuery(t *testing.T) {
	h := newHarness(t)

	var gotGroup types.BloodGroup
	var gotCity string
	h.directory.findMatches = func(_ context.Context, g types.BloodGroup, city string) ([]*types.User, error) {
		gotGroup, gotCity = g, city
		return []*types.User{{ID: "d1"}}, nil
	}

	// an unescaped "+" arrives as a space
	rec := h.do(t, http.MethodGet, "/user-api/donors?bloodGroup=O+&city=Pune", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.BloodGroupOPos, gotGroup)
	assert.Equal(t, "Pune", gotCity)

	rec = h.do(t, http.MethodGet, "/user-api/donors?bloodGroup=C%2B", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersByBloodGroupPath(t *testing.T) {
	h := newHarness(t)

	h.directory.byGroup = func(_ context.Context, g types.BloodGroup) ([]*types.User, error) {
		assert.Equal(t, types.BloodGroupABNeg, g)
		return []*types.User{}, nil
	}

	rec := h.do(t, http.MethodGet, "/user-api/users/ab-", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/user-api/users/XY", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed: Blood Group must be one of A+, A-, B+, B-, O+, O-, AB+, AB-", decodeBody(t, rec)["message"])
}

func TestBloodGroupPathWithLiteralPlus(t *testing.T) {
	h := newHarness(t)

	var gotUsers []types.BloodGroup
	h.directory.byGroup = func(_ context.Context, g types.BloodGroup) ([]*types.User, error) {
		gotUsers = append(gotUsers, g)
		return []*types.User{}, nil
	}
	var gotRequests []types.BloodGroup
	h.requests.byGroup = func(_ context.Context, g types.BloodGroup) ([]*types.BloodRequest, error) {
		gotRequests = append(gotRequests, g)
		return []*types.BloodRequest{}, nil
	}

	for _, path := range []string{"/user-api/users/O+", "/user-api/users/ab+", "/user-api/users/O%2B"} {
		rec := h.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, []types.BloodGroup{types.BloodGroupOPos, types.BloodGroupABPos, types.BloodGroupOPos}, gotUsers)

	rec := h.do(t, http.MethodGet, "/request-api/byBloodGroup/AB+", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []types.BloodGroup{types.BloodGroupABPos}, gotRequests)
}

func TestNormalizeBloodGroup(t *testing.T) {
	tests := map[string]types.BloodGroup{
		"O ":   types.BloodGroupOPos,
		" ab ": types.BloodGroupABPos,
		"b-":   types.BloodGroupBNeg,
		"A+":   types.BloodGroupAPos,
	}

	for raw, want := range tests {
		assert.Equal(t, want, normalizeBloodGroup(raw), "%q", raw)
	}
}

func TestTrailingSlashIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.directory.cities = func(context.Context) ([]string, error) {
		return []string{"Mumbai", "Pune"}, nil
	}

	rec := h.do(t, http.MethodGet, "/user-api/cities/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Mumbai", "Pune"}, decodeBody(t, rec)["payload"])
}

func TestCreateRequestResponse(t *testing.T) {
	h := newHarness(t)

	h.requests.create = func(_ context.Context, requesterID string, in requests.CreateInput) (*requests.CreateResult, error) {
		assert.Equal(t, "c1", requesterID)
		return &requests.CreateResult{
			Request: &types.BloodRequest{
				ID:         "req-1",
				BloodGroup: in.BloodGroup,
				City:       in.City,
				Status:     types.RequestStatusActive,
				Revision:   1,
			},
			MatchedCount:    2,
			Notification:    notify.Result{SentCount: 2, Delivered: 1, Failed: 1},
			EmailConfigured: true,
		}, nil
	}

	rec := h.do(t, http.MethodPost, "/request-api/create", `{"bloodGroup":"O+","city":"Pune"}`, h.token(t, "c1", types.RoleUser))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Blood request created successfully", body["message"])
	assert.Equal(t, false, body["error"])
	assert.Equal(t, false, body["dummy"])
	assert.Equal(t, true, body["emailConfigured"])
	assert.EqualValues(t, 2, body["matchedCount"])

	payload, ok := body["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "req-1", payload["id"])
	assert.Equal(t, "Active", payload["status"])
	assert.Equal(t, false, payload["notificationSent"])
	assert.EqualValues(t, 2, payload["notifiedDonors"])
	assert.EqualValues(t, 1, payload["failedNotifications"])
}

func TestUpdateRequestStatusErrors(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "u1", types.RoleUser)

	h.requests.updateStatus = func(_ context.Context, _ types.Caller, id string, status types.RequestStatus, rev *int) (*types.BloodRequest, error) {
		switch id {
		case "other":
			return nil, types.ErrForbidden
		case "missing":
			return nil, types.ErrRequestNotFound
		case "stale":
			require.NotNil(t, rev)
			return nil, types.ErrVersionConflict
		}
		return nil, &types.TransitionError{Entity: "blood request", From: "Cancelled", To: string(status)}
	}

	rec := h.do(t, http.MethodPut, "/request-api/updateStatus/other", `{"status":"Fulfilled"}`, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized to update this request", decodeBody(t, rec)["message"])

	rec = h.do(t, http.MethodPut, "/request-api/updateStatus/missing", `{"status":"Fulfilled"}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Blood request not found", decodeBody(t, rec)["message"])

	rec = h.do(t, http.MethodPut, "/request-api/updateStatus/stale", `{"status":"Fulfilled","revision":1}`, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPut, "/request-api/updateStatus/done", `{"status":"Active"}`, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Cannot change blood request status from Cancelled to Active", decodeBody(t, rec)["message"])
}

func TestCancelAppointmentOfAnotherUser(t *testing.T) {
	h := newHarness(t)

	h.appointments.cancel = func(_ context.Context, callerID, id string) (*types.Appointment, error) {
		assert.Equal(t, "u2", callerID)
		assert.Equal(t, "appt-1", id)
		return nil, types.ErrForbidden
	}

	rec := h.do(t, http.MethodDelete, "/donation-api/appointments/appt-1", "", h.token(t, "u2", types.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You are not authorized to cancel this appointment", decodeBody(t, rec)["message"])
}

func TestCompleteAppointmentRequiresAdmin(t *testing.T) {
	h := newHarness(t)

	var gotUnits int
	h.appointments.complete = func(_ context.Context, caller types.Caller, id string, units int) (*types.Appointment, error) {
		gotUnits = units
		return &types.Appointment{ID: id, Status: types.AppointmentStatusCompleted}, nil
	}

	rec := h.do(t, http.MethodPut, "/donation-api/appointments/appt-1/complete", "", h.token(t, "u1", types.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", decodeBody(t, rec)["message"])

	rec = h.do(t, http.MethodPut, "/donation-api/appointments/appt-1/complete", "", h.token(t, "admin", types.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gotUnits)

	rec = h.do(t, http.MethodPut, "/donation-api/appointments/appt-1/complete", `{"units":2}`, h.token(t, "admin", types.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, gotUnits)
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	h := newHarness(t)
	h.requests.listAll = func(context.Context) ([]*types.BloodRequest, error) {
		return nil, errors.New("failed to query requests: pq: relation does not exist")
	}

	rec := h.do(t, http.MethodGet, "/request-api/all", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["message"])
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.directory.all = func(context.Context) ([]*types.User, error) {
		panic("boom")
	}

	rec := h.do(t, http.MethodGet, "/user-api/users", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
