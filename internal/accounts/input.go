package accounts

import (
	"strings"

	"lifedrop/pkg/types"
)

type RegisterInput struct {
	Username         string           `json:"username" validate:"required"`
	Email            string           `json:"email" validate:"required,emailshape"`
	Password         string           `json:"password" validate:"required,min=8,max=72"`
	PhoneNumber      string           `json:"phoneNumber" label:"Phone Number" validate:"required"`
	Age              int              `json:"age" validate:"required,min=18,max=65"`
	Gender           string           `json:"gender" validate:"required"`
	BloodGroup       types.BloodGroup `json:"bloodGroup" label:"Blood Group" validate:"required,bloodgroup"`
	Weight           float64          `json:"weight" validate:"required,min=50"`
	City             string           `json:"city" validate:"required"`
	State            string           `json:"state" validate:"required"`
	PinCode          string           `json:"pinCode" label:"Pin Code" validate:"required"`
	HasDonatedBefore bool             `json:"hasDonatedBefore"`
	LastDonationDate string           `json:"lastDonationDate" label:"Last Donation Date" validate:"omitempty,isodate"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Gender = strings.TrimSpace(in.Gender)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.PinCode = strings.TrimSpace(in.PinCode)
}

// UpdateInput carries a partial profile; nil fields are left untouched.
type UpdateInput struct {
	Username         *string           `json:"username" validate:"omitnil,min=1"`
	Email            *string           `json:"email" validate:"omitnil,emailshape"`
	Password         *string           `json:"password" validate:"omitnil,min=8,max=72"`
	PhoneNumber      *string           `json:"phoneNumber" label:"Phone Number" validate:"omitnil,min=1"`
	Age              *int              `json:"age" validate:"omitnil,min=18,max=65"`
	Gender           *string           `json:"gender" validate:"omitnil,min=1"`
	BloodGroup       *types.BloodGroup `json:"bloodGroup" label:"Blood Group" validate:"omitnil,bloodgroup"`
	Weight           *float64          `json:"weight" validate:"omitnil,min=50"`
	City             *string           `json:"city" validate:"omitnil,min=1"`
	State            *string           `json:"state" validate:"omitnil,min=1"`
	PinCode          *string           `json:"pinCode" label:"Pin Code" validate:"omitnil,min=1"`
	HasDonatedBefore *bool             `json:"hasDonatedBefore"`
	LastDonationDate *string           `json:"lastDonationDate" label:"Last Donation Date" validate:"omitnil,isodate"`
	Role             *types.Role       `json:"role" validate:"omitnil,oneof=user admin"`
}

func (in *UpdateInput) normalize() {
	for _, field := range []*string{in.Username, in.PhoneNumber, in.Gender, in.City, in.State, in.PinCode} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if in.Email != nil {
		*in.Email = normalizeEmail(*in.Email)
	}
}

func (in *UpdateInput) apply(user *types.User) {
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.Age != nil {
		user.Age = *in.Age
	}
	if in.Gender != nil {
		user.Gender = *in.Gender
	}
	if in.BloodGroup != nil {
		user.BloodGroup = *in.BloodGroup
	}
	if in.Weight != nil {
		user.Weight = *in.Weight
	}
	if in.City != nil {
		user.City = *in.City
	}
	if in.State != nil {
		user.State = *in.State
	}
	if in.PinCode != nil {
		user.PinCode = *in.PinCode
	}
	if in.HasDonatedBefore != nil {
		user.HasDonatedBefore = *in.HasDonatedBefore
	}
	if in.LastDonationDate != nil {
		user.LastDonationDate = parseDate(*in.LastDonationDate)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
}
