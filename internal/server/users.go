package server

import (
	"net/http"
	"strings"

	"lifedrop/internal/accounts"
)

// donorFilter is the query string of GET /user-api/donors.
type donorFilter struct {
	BloodGroup string `form:"bloodGroup"`
	City       string `form:"city"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in accounts.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusCreated, "User created successfully", user)
}

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.directory.All(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Users fetched successfully", users)
}

func (s *Service) handleUsersByBloodGroup(w http.ResponseWriter, r *http.Request) {
	group := normalizeBloodGroup(pathParam(r, "bloodGroup"))
	if !group.Valid() {
		s.writeError(w, r, invalidBloodGroup())
		return
	}

	users, err := s.directory.FindByBloodGroup(r.Context(), group)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Users fetched successfully", users)
}

func (s *Service) handleFindDonors(w http.ResponseWriter, r *http.Request) {
	var filter donorFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		s.logger.WithError(err).Debug("failed to decode donor filter")
		s.writeFailure(w, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	group := normalizeBloodGroup(filter.BloodGroup)
	if !group.Valid() {
		s.writeError(w, r, invalidBloodGroup())
		return
	}

	donors, err := s.directory.FindMatches(r.Context(), group, filter.City)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Donors fetched successfully", donors)
}

func (s *Service) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.directory.ListCities(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Cities fetched successfully", cities)
}

func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	user, err := s.accounts.Profile(r.Context(), caller.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, "Profile fetched successfully", user)
}

// handleUpdateUser edits the caller's own profile, or the user named by
// ?id= when the caller is an admin.
func (s *Service) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	userID := strings.TrimSpace(r.URL.Query().Get("id"))
	if userID == "" {
		userID = caller.UserID
	}

	var in accounts.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.accounts.Update(r.Context(), caller, userID, in)
	if err != nil {
		s.writeErrorAs(w, r, err, map[int]string{
			http.StatusForbidden: "You are not authorized to update this user",
		})
		return
	}

	s.writeSuccess(w, http.StatusOK, "User updated successfully", user)
}
