package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"lifedrop/internal/utils"
	"lifedrop/pkg/types"
)

type DonationWriter interface {
	DonationsByUser(ctx context.Context, userID string) ([]*types.Donation, error)
	Create(ctx context.Context, donation *types.Donation) error
}

var demoCenters = []struct{ Name, Address string }{
	{"Ruby Hall Blood Bank", "40 Sassoon Road, Pune"},
	{"KEM Hospital Blood Centre", "Acharya Donde Marg, Mumbai"},
	{"Rotary TTK Blood Bank", "Indiranagar, Bengaluru"},
}

// SeedDonations gives every user without history a few past donations and
// marks them as previous donors. Users that already have donations are left
// alone so reruns are idempotent.
func SeedDonations(ctx context.Context, repo DonationWriter, userRepo UserWriter, users []*types.User, rng *rand.Rand) (int, error) {
	created := 0

	for _, user := range users {
		existing, err := repo.DonationsByUser(ctx, user.ID)
		if err != nil {
			return created, fmt.Errorf("failed to fetch donations for %s: %w", user.ID, err)
		}
		if len(existing) > 0 {
			continue
		}

		count := 1 + rng.IntN(3)
		today := utils.StartOfDay(time.Now().UTC())
		var latest time.Time

		for i := range count {
			center := demoCenters[rng.IntN(len(demoCenters))]
			group := user.BloodGroup

			// donations are at least 90 days apart
			donation := &types.Donation{
				ID:         utils.NanoID(),
				UserID:     user.ID,
				Date:       today.AddDate(0, 0, -(i+1)*120-rng.IntN(30)),
				Center:     center.Name,
				Address:    center.Address,
				BloodGroup: &group,
				Units:      1,
				Status:     types.DonationStatusCompleted,
			}

			if err := repo.Create(ctx, donation); err != nil {
				return created, fmt.Errorf("failed to create donation for %s: %w", user.ID, err)
			}
			created++

			if donation.Date.After(latest) {
				latest = donation.Date
			}
		}

		user.HasDonatedBefore = true
		user.LastDonationDate = utils.TimePtr(latest)
		if err := userRepo.Update(ctx, user); err != nil {
			return created, fmt.Errorf("failed to mark %s as a donor: %w", user.ID, err)
		}
	}

	return created, nil
}
