package types

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
)

var AllBloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupOPos, BloodGroupONeg,
	BloodGroupABPos, BloodGroupABNeg,
}

func (g BloodGroup) Valid() bool {
	for _, v := range AllBloodGroups {
		if g == v {
			return true
		}
	}
	return false
}

func (g BloodGroup) String() string {
	return string(g)
}

type Urgency string

const (
	UrgencyImmediate      Urgency = "Immediate"
	UrgencyWithin24Hours  Urgency = "Within 24 hours"
	UrgencyWithin3Days    Urgency = "Within 3 days"
	UrgencyWithinAWeek    Urgency = "Within a week"
	DefaultRequestUrgency         = UrgencyWithin24Hours
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyImmediate, UrgencyWithin24Hours, UrgencyWithin3Days, UrgencyWithinAWeek:
		return true
	}
	return false
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID string
	Email  string
	Role   Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Owns reports whether the caller may act on a record owned by userID.
func (c Caller) Owns(userID string) bool {
	return c.UserID == userID || c.IsAdmin()
}
