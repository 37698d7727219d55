package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/internal/validate"
	"lifedrop/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
	Update(ctx context.Context, user *types.User) error
}

type TokenIssuer interface {
	Issue(userID, email string, role types.Role) (string, error)
}

type Service struct {
	logger   logrus.FieldLogger
	users    UserStore
	tokens   TokenIssuer
	validate *validate.Validator
	cost     int

	// compared against when the email is unknown so both login failures
	// cost one bcrypt comparison
	dummyHash []byte
}

func New(logger logrus.FieldLogger, users UserStore, tokens TokenIssuer, validator *validate.Validator, cost int) (*Service, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	dummyHash, err := bcrypt.GenerateFromPassword([]byte(utils.NanoID()), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &Service{
		logger:    logger,
		users:     users,
		tokens:    tokens,
		validate:  validator,
		cost:      cost,
		dummyHash: dummyHash,
	}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		ID:               utils.NanoID(),
		Username:         in.Username,
		Email:            in.Email,
		PasswordHash:     hash,
		PhoneNumber:      in.PhoneNumber,
		Age:              in.Age,
		Gender:           in.Gender,
		BloodGroup:       in.BloodGroup,
		Weight:           in.Weight,
		City:             in.City,
		State:            in.State,
		PinCode:          in.PinCode,
		Role:             types.RoleUser,
		HasDonatedBefore: in.HasDonatedBefore,
		LastDonationDate: parseDate(in.LastDonationDate),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"blood_group": user.BloodGroup,
		"city":        user.City,
	}).Info("user registered")

	return user, nil
}

// Authenticate checks the email/password pair and returns the user with a
// freshly issued token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*types.User, string, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, "", types.ErrUnknownEmail
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", types.ErrBadSecret
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*types.User, error) {
	return s.users.User(ctx, userID)
}

// Update applies the non-nil fields of in to userID. Only the owner or an
// admin may update a profile, and only an admin may change a role.
func (s *Service) Update(ctx context.Context, caller types.Caller, userID string, in UpdateInput) (*types.User, error) {
	if !caller.Owns(userID) {
		return nil, types.ErrForbidden
	}

	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	// echoing the current role back is allowed, changing it is not
	if in.Role != nil && *in.Role != user.Role && !caller.IsAdmin() {
		return nil, types.ErrForbidden
	}

	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	in.apply(user)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
