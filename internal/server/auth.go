package server

import (
	"net/http"
	"time"

	"lifedrop/internal"
	"lifedrop/pkg/types"
)

const accessTokenMaxAge = 24 * time.Hour

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string      `json:"message"`
	Error   bool        `json:"error"`
	Token   string      `json:"token"`
	Payload *types.User `json:"payload"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	// an empty email is looked up like any other and fails as "Invalid email"
	user, token, err := s.accounts.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, token)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.writeFailure(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	s.setAccessTokenCookie(w, encryptedToken, int(accessTokenMaxAge.Seconds()))

	s.logger.WithField("user_id", user.ID).Info("user logged in")

	s.writeJSON(w, http.StatusOK, loginResponse{
		Message: "login success",
		Token:   token,
		Payload: user,
	})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.tokens.Revoke(r.Context(), tokenFromContext(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setAccessTokenCookie(w, "", -1)

	s.writeSuccess(w, http.StatusOK, "logout success", nil)
}

func (s *Service) setAccessTokenCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    value,
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Path:     "/",
	})
}
