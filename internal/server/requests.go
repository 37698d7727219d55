package server

import (
	"net/http"
	"strings"

	"lifedrop/internal/requests"
	"lifedrop/pkg/types"
)

type createdRequest struct {
	*types.BloodRequest
	NotificationSent    bool `json:"notificationSent"`
	NotifiedDonors      int  `json:"notifiedDonors"`
	FailedNotifications int  `json:"failedNotifications"`
}

type createRequestResponse struct {
	Message         string         `json:"message"`
	Error           bool           `json:"error"`
	Dummy           bool           `json:"dummy"`
	EmailConfigured bool           `json:"emailConfigured"`
	MatchedCount    int            `json:"matchedCount"`
	Payload         createdRequest `json:"payload"`
}

type statusInput struct {
	Status   types.RequestStatus `json:"status"`
	Revision *int                `json:"revision"`
}

func (s *Service) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var in requests.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.requests.Create(r.Context(), caller.UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createRequestResponse{
		Message:         "Blood request created successfully",
		Dummy:           !result.EmailConfigured,
		EmailConfigured: result.EmailConfigured,
		MatchedCount:    result.MatchedCount,
		Payload: createdRequest{
			BloodRequest:        result.Request,
			NotificationSent:    result.Notification.AllDelivered(),
			NotifiedDonors:      result.Notification.SentCount,
			FailedNotifications: result.Notification.Failed,
		},
	})
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	list, err := s.requests.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Blood requests fetched successfully", list)
}

func (s *Service) handleRequestsByBloodGroup(w http.ResponseWriter, r *http.Request) {
	group := normalizeBloodGroup(pathParam(r, "group"))
	if !group.Valid() {
		s.writeError(w, r, invalidBloodGroup())
		return
	}

	list, err := s.requests.ListActiveByBloodGroup(r.Context(), group)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Blood requests fetched successfully", list)
}

func (s *Service) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	list, err := s.requests.ListMine(r.Context(), caller.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Blood requests fetched successfully", list)
}

func (s *Service) handleUpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var in statusInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	status := types.RequestStatus(strings.TrimSpace(string(in.Status)))

	updated, err := s.requests.UpdateStatus(r.Context(), caller, pathParam(r, "id"), status, in.Revision)
	if err != nil {
		s.writeErrorAs(w, r, err, map[int]string{
			http.StatusForbidden: "Unauthorized to update this request",
		})
		return
	}

	s.writeSuccess(w, http.StatusOK, "Request status updated successfully", updated)
}
