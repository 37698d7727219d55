package types

import "time"

type BloodRequest struct {
	ID             string        `db:"id" json:"id"`
	RequesterName  string        `db:"requester_name" json:"requesterName"`
	BloodGroup     BloodGroup    `db:"blood_group" json:"bloodGroup"`
	Units          int           `db:"units" json:"units"`
	Location       string        `db:"location" json:"location"`
	City           string        `db:"city" json:"city"`
	State          string        `db:"state" json:"state"`
	Hospital       *string       `db:"hospital" json:"hospital,omitempty"`
	ContactNumber  string        `db:"contact_number" json:"contactNumber"`
	ContactEmail   string        `db:"contact_email" json:"contactEmail"`
	Urgency        Urgency       `db:"urgency" json:"urgency"`
	AdditionalInfo *string       `db:"additional_info" json:"additionalInfo,omitempty"`
	Status         RequestStatus `db:"status" json:"status"`
	Revision       int           `db:"revision" json:"revision"`
	CreatedBy      string        `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}
