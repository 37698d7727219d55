package types

import "time"

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

type Appointment struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"userId"`
	Date      time.Time         `db:"date" json:"date"`
	Time      string            `db:"time" json:"time"`
	Center    string            `db:"center" json:"center"`
	Address   string            `db:"address" json:"address"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Revision  int               `db:"revision" json:"revision"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time         `db:"updated_at" json:"updatedAt"`
}

type Donation struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"userId"`
	AppointmentID *string        `db:"appointment_id" json:"appointmentId,omitempty"`
	Date          time.Time      `db:"date" json:"date"`
	Center        string         `db:"center" json:"center"`
	Address       string         `db:"address" json:"address"`
	BloodGroup    *BloodGroup    `db:"blood_group" json:"bloodGroup,omitempty"`
	Units         int            `db:"units" json:"units"`
	Status        DonationStatus `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}
