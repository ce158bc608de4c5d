package domain

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Principal is the verified identity attached to a connection after
// the authorization gate admits it.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
