package types

import "time"

type User struct {
	ID               string     `db:"id" json:"id"`
	Username         string     `db:"username" json:"username"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	PhoneNumber      string     `db:"phone_number" json:"phoneNumber"`
	Age              int        `db:"age" json:"age"`
	Gender           string     `db:"gender" json:"gender"`
	BloodGroup       BloodGroup `db:"blood_group" json:"bloodGroup"`
	Weight           float64    `db:"weight" json:"weight"`
	City             string     `db:"city" json:"city"`
	State            string     `db:"state" json:"state"`
	PinCode          string     `db:"pin_code" json:"pinCode"`
	Role             Role       `db:"role" json:"role"`
	HasDonatedBefore bool       `db:"has_donated_before" json:"hasDonatedBefore"`
	LastDonationDate *time.Time `db:"last_donation_date" json:"lastDonationDate,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}
