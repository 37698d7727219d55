package seed

import (
	"context"
	"math/rand/v2"
	"testing"

	"lifedrop/internal/utils"
	"lifedrop/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	users   map[string]*types.User
	created int
	updated int
}

func (f *fakeUsers) User(_ context.Context, id string) (*types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Create(_ context.Context, u *types.User) error {
	cp := *u
	f.users[u.ID] = &cp
	f.created++
	return nil
}

func (f *fakeUsers) Update(_ context.Context, u *types.User) error {
	cp := *u
	f.users[u.ID] = &cp
	f.updated++
	return nil
}

type fakeDonations struct {
	byUser map[string][]*types.Donation
}

func (f *fakeDonations) DonationsByUser(_ context.Context, userID string) ([]*types.Donation, error) {
	return f.byUser[userID], nil
}

func (f *fakeDonations) Create(_ context.Context, d *types.Donation) error {
	f.byUser[d.UserID] = append(f.byUser[d.UserID], d)
	return nil
}

func TestSeedUsersIsIdempotent(t *testing.T) {
	repo := &fakeUsers{users: map[string]*types.User{}}

	users, err := SeedUsers(context.Background(), repo, "demo-password", bcrypt.MinCost)
	require.NoError(t, err)
	require.Len(t, users, len(demoUsers))
	assert.Equal(t, len(demoUsers), repo.created)

	for _, u := range users {
		assert.True(t, utils.IsNanoID(u.ID), u.ID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("demo-password")))
	}

	_, err = SeedUsers(context.Background(), repo, "demo-password", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, len(demoUsers), repo.created)
	assert.Equal(t, len(demoUsers), repo.updated)
}

func TestSeedUsersRejectsShortPassword(t *testing.T) {
	_, err := SeedUsers(context.Background(), &fakeUsers{users: map[string]*types.User{}}, "short", bcrypt.MinCost)
	require.Error(t, err)
}

func TestSeedDonations(t *testing.T) {
	users := &fakeUsers{users: map[string]*types.User{}}
	seeded, err := SeedUsers(context.Background(), users, "demo-password", bcrypt.MinCost)
	require.NoError(t, err)

	donations := &fakeDonations{byUser: map[string][]*types.Donation{}}
	rng := rand.New(rand.NewPCG(1, 2))

	created, err := SeedDonations(context.Background(), donations, users, seeded, rng)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, created, len(seeded))

	for _, u := range seeded {
		history := donations.byUser[u.ID]
		require.NotEmpty(t, history)

		stored := users.users[u.ID]
		assert.True(t, stored.HasDonatedBefore)
		require.NotNil(t, stored.LastDonationDate)
		assert.True(t, stored.LastDonationDate.Equal(history[0].Date))

		for i := 1; i < len(history); i++ {
			gap := history[i-1].Date.Sub(history[i].Date).Hours() / 24
			assert.GreaterOrEqual(t, gap, 90.0)
		}
	}

	again, err := SeedDonations(context.Background(), donations, users, seeded, rng)
	require.NoError(t, err)
	assert.Zero(t, again)
}
