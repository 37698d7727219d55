package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"lifedrop/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	internalErrorMessage = "Internal server error"
	maxBodyBytes         = 1 << 20
)

type successEnvelope struct {
	Message string `json:"message"`
	Error   bool   `json:"error"`
	Payload any    `json:"payload"`
}

type failureEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// errInvalidBody marks a request body that is not a single JSON object.
var errInvalidBody = errors.New("invalid request body")

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeSuccess(w http.ResponseWriter, status int, message string, payload any) {
	s.writeJSON(w, status, successEnvelope{Message: message, Payload: payload})
}

func (s *Service) writeFailure(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, failureEnvelope{Error: true, Message: message})
}

// writeError maps a service error onto its status code and envelope.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorAs(w, r, err, nil)
}

// writeErrorAs is writeError with per-status message overrides.
func (s *Service) writeErrorAs(w http.ResponseWriter, r *http.Request, err error, overrides map[int]string) {
	status, message := classify(err)

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}

	if override, ok := overrides[status]; ok {
		message = override
	}

	s.writeFailure(w, status, message)
}

func classify(err error) (int, string) {
	var (
		validationErr *types.ValidationError
		duplicateErr  *types.DuplicateError
		transitionErr *types.TransitionError
	)

	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &duplicateErr):
		return http.StatusBadRequest, duplicateErr.Error()
	case errors.Is(err, types.ErrUnknownEmail):
		return http.StatusBadRequest, "Invalid email"
	case errors.Is(err, types.ErrBadSecret):
		return http.StatusBadRequest, "Invalid password"
	case errors.Is(err, types.ErrTokenMissing):
		return http.StatusUnauthorized, "Authentication required. No token provided."
	case errors.Is(err, types.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden, "You are not authorized to perform this action"
	case errors.Is(err, types.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, types.ErrRequestNotFound):
		return http.StatusNotFound, "Blood request not found"
	case errors.Is(err, types.ErrAppointmentNotFound):
		return http.StatusNotFound, "Appointment not found"
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.As(err, &transitionErr):
		return http.StatusConflict, fmt.Sprintf("Cannot change %s status from %s to %s", transitionErr.Entity, transitionErr.From, transitionErr.To)
	case errors.Is(err, types.ErrVersionConflict):
		return http.StatusConflict, "The record was modified by another request, reload and try again"
	}

	return http.StatusInternalServerError, internalErrorMessage
}

// decodeJSON reads exactly one JSON object into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	// unknown fields are ignored so clients may echo whole records back
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errInvalidBody)
	}

	return nil
}

// pathParam returns the flow route parameter, already unescaped by the mux.
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// normalizeBloodGroup undoes the "+" to space rewrite of path and query
// decoding before trimming, so "O " becomes "O+".
func normalizeBloodGroup(raw string) types.BloodGroup {
	raw = strings.TrimLeftFunc(raw, unicode.IsSpace)
	raw = strings.TrimSpace(strings.ReplaceAll(raw, " ", "+"))
	return types.BloodGroup(strings.ToUpper(raw))
}

func invalidBloodGroup() error {
	return types.NewValidationError("Blood Group must be one of A+, A-, B+, B-, O+, O-, AB+, AB-")
}
