// Package directory answers donor lookups by blood group and city.
package directory

import (
	"context"
	"strings"

	"lifedrop/pkg/types"
)

type UserFinder interface {
	Users(ctx context.Context) ([]*types.User, error)
	UsersByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.User, error)
	UsersByBloodGroupAndCity(ctx context.Context, group types.BloodGroup, city string) ([]*types.User, error)
	Cities(ctx context.Context) ([]string, error)
}

type Directory struct {
	users UserFinder
}

func New(users UserFinder) *Directory {
	return &Directory{users: users}
}

func (d *Directory) All(ctx context.Context) ([]*types.User, error) {
	return d.users.Users(ctx)
}

func (d *Directory) FindByBloodGroup(ctx context.Context, group types.BloodGroup) ([]*types.User, error) {
	if !group.Valid() {
		return nil, invalidGroup()
	}
	return d.users.UsersByBloodGroup(ctx, group)
}

// FindMatches returns donors of group living in city, comparing city
// case-insensitively. An empty city matches on blood group alone.
func (d *Directory) FindMatches(ctx context.Context, group types.BloodGroup, city string) ([]*types.User, error) {
	if !group.Valid() {
		return nil, invalidGroup()
	}

	city = strings.TrimSpace(city)
	if city == "" {
		return d.users.UsersByBloodGroup(ctx, group)
	}

	return d.users.UsersByBloodGroupAndCity(ctx, group, city)
}

func (d *Directory) ListCities(ctx context.Context) ([]string, error) {
	return d.users.Cities(ctx)
}

func invalidGroup() error {
	return types.NewValidationError("Blood Group must be one of A+, A-, B+, B-, O+, O-, AB+, AB-")
}
