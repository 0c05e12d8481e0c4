package identity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

const (
	UnknownDoctor  = "Unknown Doctor"
	UnknownPatient = "Unknown Patient"
)

// User is an identity record. Legacy imports left some users with only a
// partial set of name fields, so every field except ID may be empty.
type User struct {
	ID        uuid.UUID `json:"id"`
	LegacyID  *string   `json:"legacy_id,omitempty"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var validRoles = map[string]bool{
	RolePatient: true, RoleDoctor: true, RoleAdmin: true,
}

// DisplayName builds a human-readable name from whichever name fields the
// record carries, in preference order, falling back to the given default.
func (u *User) DisplayName(fallback string) string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return fallback
}

// ActorID is a doctor or patient identifier as it appears on the wire: a
// single string that is either a structured internal id or a legacy short
// code such as "doc1". The two schemes co-exist in stored appointments, so
// lookups must handle both.
type ActorID struct {
	raw      string
	internal uuid.UUID
	isUUID   bool
}

// ParseActorID classifies a raw identifier. It never fails: anything that
// is not a valid internal id is treated as a legacy code.
func ParseActorID(raw string) ActorID {
	if id, err := uuid.Parse(raw); err == nil {
		return ActorID{raw: raw, internal: id, isUUID: true}
	}
	return ActorID{raw: raw}
}

func (a ActorID) String() string { return a.raw }

// IsInternal reports whether the identifier is a structured internal id.
func (a ActorID) IsInternal() bool { return a.isUUID }

// Internal returns the structured form, valid only when IsInternal is true.
func (a ActorID) Internal() (uuid.UUID, bool) { return a.internal, a.isUUID }

// IsEmpty reports whether no identifier was supplied.
func (a ActorID) IsEmpty() bool { return a.raw == "" }
