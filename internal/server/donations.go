package server

import (
	"errors"
	"io"
	"net/http"

	"lifedrop/internal/appointments"
)

type completeInput struct {
	Units int `json:"units"`
}

func (s *Service) handleDonationHistory(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	donations, err := s.appointments.History(r.Context(), caller.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Donation history fetched successfully", donations)
}

func (s *Service) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	list, err := s.appointments.ListUpcoming(r.Context(), caller.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Appointments fetched successfully", list)
}

func (s *Service) handleScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var in appointments.ScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	appointment, err := s.appointments.Schedule(r.Context(), caller.UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusCreated, "Appointment scheduled successfully", appointment)
}

func (s *Service) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	appointment, err := s.appointments.Cancel(r.Context(), caller.UserID, pathParam(r, "id"))
	if err != nil {
		s.writeErrorAs(w, r, err, map[int]string{
			http.StatusForbidden: "You are not authorized to cancel this appointment",
		})
		return
	}

	s.writeSuccess(w, http.StatusOK, "Appointment cancelled successfully", appointment)
}

// handleCompleteAppointment accepts an empty body, in which case one unit
// is recorded.
func (s *Service) handleCompleteAppointment(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	in := completeInput{Units: 1}
	if err := decodeJSON(w, r, &in); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}

	appointment, err := s.appointments.Complete(r.Context(), caller, pathParam(r, "id"), in.Units)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Appointment completed successfully", appointment)
}

func (s *Service) handleRecordDonation(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var in appointments.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	donation, err := s.appointments.Record(r.Context(), caller, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusCreated, "Donation recorded successfully", donation)
}
