package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifedrop/pkg/types"

	"golang.org/x/crypto/bcrypt"
)

type UserWriter interface {
	User(ctx context.Context, userID string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
	Update(ctx context.Context, user *types.User) error
}

type demoUser struct {
	ID         string
	Username   string
	Email      string
	Phone      string
	Age        int
	Gender     string
	BloodGroup types.BloodGroup
	Weight     float64
	City       string
	State      string
	PinCode    string
	Role       types.Role
}

// Two O+ donors share Pune so a fresh database can demonstrate matching.
var demoUsers = []demoUser{
	{ID: "seeddonor00000000000000000000001", Username: "Aarav Sharma", Email: "aarav.sharma+seed1@example.com", Phone: "9000000001", Age: 28, Gender: "Male", BloodGroup: types.BloodGroupOPos, Weight: 72, City: "Pune", State: "Maharashtra", PinCode: "411001", Role: types.RoleUser},
	{ID: "seeddonor00000000000000000000002", Username: "Diya Patel", Email: "diya.patel+seed2@example.com", Phone: "9000000002", Age: 31, Gender: "Female", BloodGroup: types.BloodGroupOPos, Weight: 58, City: "Pune", State: "Maharashtra", PinCode: "411004", Role: types.RoleUser},
	{ID: "seeddonor00000000000000000000003", Username: "Kabir Singh", Email: "kabir.singh+seed3@example.com", Phone: "9000000003", Age: 40, Gender: "Male", BloodGroup: types.BloodGroupBNeg, Weight: 80, City: "Mumbai", State: "Maharashtra", PinCode: "400001", Role: types.RoleUser},
	{ID: "seeddonor00000000000000000000004", Username: "Meera Iyer", Email: "meera.iyer+seed4@example.com", Phone: "9000000004", Age: 26, Gender: "Female", BloodGroup: types.BloodGroupAPos, Weight: 55, City: "Bengaluru", State: "Karnataka", PinCode: "560001", Role: types.RoleUser},
	{ID: "seeddonor00000000000000000000005", Username: "Rohan Das", Email: "rohan.das+seed5@example.com", Phone: "9000000005", Age: 35, Gender: "Male", BloodGroup: types.BloodGroupABPos, Weight: 68, City: "Kolkata", State: "West Bengal", PinCode: "700001", Role: types.RoleUser},
	{ID: "seedadmin00000000000000000000001", Username: "LifeDrop Admin", Email: "admin+seed@example.com", Phone: "9000000099", Age: 45, Gender: "Female", BloodGroup: types.BloodGroupONeg, Weight: 62, City: "Pune", State: "Maharashtra", PinCode: "411002", Role: types.RoleAdmin},
}

// SeedUsers upserts the demo accounts, all sharing password, and returns
// them as stored.
func SeedUsers(ctx context.Context, repo UserWriter, password string, cost int) ([]*types.User, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("seed password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed password: %w", err)
	}

	seeded := make([]*types.User, 0, len(demoUsers))
	for _, demo := range demoUsers {
		existing, err := repo.User(ctx, demo.ID)
		if err != nil {
			if !errors.Is(err, types.ErrUserNotFound) {
				return nil, fmt.Errorf("failed to fetch demo user %s: %w", demo.ID, err)
			}

			user := demo.toUser(string(hash))
			if err := repo.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create demo user %s: %w", demo.ID, err)
			}
			seeded = append(seeded, user)
			continue
		}

		user := demo.toUser(string(hash))
		user.HasDonatedBefore = existing.HasDonatedBefore
		user.LastDonationDate = existing.LastDonationDate
		user.CreatedAt = existing.CreatedAt

		if err := repo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update demo user %s: %w", demo.ID, err)
		}
		seeded = append(seeded, user)
	}

	return seeded, nil
}

func (d demoUser) toUser(passwordHash string) *types.User {
	now := time.Now().UTC()
	return &types.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: passwordHash,
		PhoneNumber:  d.Phone,
		Age:          d.Age,
		Gender:       d.Gender,
		BloodGroup:   d.BloodGroup,
		Weight:       d.Weight,
		City:         d.City,
		State:        d.State,
		PinCode:      d.PinCode,
		Role:         d.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
