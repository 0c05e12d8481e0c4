package identity

import (
	"context"

	"github.com/rs/zerolog"
)

// DefaultLegacyDoctors is the historical short-code table carried over from
// the pre-migration data set. It stays injected (not inlined at call sites)
// so it can be retired via configuration once the rows are migrated.
var DefaultLegacyDoctors = map[string]string{
	"doc1": "Dr. Jhon",
	"doc2": "Dr. Jack",
	"doc3": "Dr. Monk",
	"doc4": "Dr. Rohan",
}

// legacyAliasCode is the one legacy code known to also exist as a real
// identity record; its appointments live under both identifiers.
const legacyAliasCode = "doc4"

// legacyAliasFragment is the name fragment used to locate that record.
const legacyAliasFragment = "Rohan"

// Resolver turns doctor/patient identifiers into display names. Lookups
// are best-effort: any store failure degrades to the "Unknown ..." default
// and is never surfaced to the caller.
type Resolver struct {
	users         UserRepository
	legacyDoctors map[string]string
	logger        zerolog.Logger
}

func NewResolver(users UserRepository, legacyDoctors map[string]string, logger zerolog.Logger) *Resolver {
	if legacyDoctors == nil {
		legacyDoctors = DefaultLegacyDoctors
	}
	return &Resolver{users: users, legacyDoctors: legacyDoctors, logger: logger}
}

// ResolveDoctorName resolves a doctor identifier to a display name.
// Legacy short codes win over store lookups.
func (r *Resolver) ResolveDoctorName(ctx context.Context, doctorID string) string {
	if doctorID == "" {
		return UnknownDoctor
	}
	if name, ok := r.legacyDoctors[doctorID]; ok {
		return name
	}
	u, err := r.users.FindByIdentifier(ctx, doctorID, RoleDoctor)
	if err != nil || u == nil {
		r.logger.Debug().Str("doctor_id", doctorID).Msg("doctor name resolution missed")
		return UnknownDoctor
	}
	return u.DisplayName(UnknownDoctor)
}

// ResolvePatientName resolves a patient identifier to a display name.
// Unlike doctor resolution the lookup is not role-restricted.
func (r *Resolver) ResolvePatientName(ctx context.Context, patientID string) string {
	if patientID == "" {
		return UnknownPatient
	}
	u, err := r.users.FindByIdentifier(ctx, patientID, "")
	if err != nil || u == nil {
		r.logger.Debug().Str("patient_id", patientID).Msg("patient name resolution missed")
		return UnknownPatient
	}
	return u.DisplayName(UnknownPatient)
}

// ResolvePatient returns the full identity record for a patient, or nil
// when nothing matches. Errors are swallowed like name resolution.
func (r *Resolver) ResolvePatient(ctx context.Context, patientID string) *User {
	if patientID == "" {
		return nil
	}
	u, err := r.users.FindByIdentifier(ctx, patientID, "")
	if err != nil {
		return nil
	}
	return u
}

// DoctorQueryIDs returns every identifier a doctor's appointments may be
// stored under. New bookings store the canonical identity id, so every
// legacy short code with a migrated record fans out to both identifiers;
// read paths must see rows under either until the data is migrated.
func (r *Resolver) DoctorQueryIDs(ctx context.Context, doctorID string) []string {
	ids := []string{doctorID}
	if _, isLegacy := r.legacyDoctors[doctorID]; !isLegacy {
		return ids
	}
	if real := r.CanonicalDoctorID(ctx, doctorID); real != doctorID {
		ids = append(ids, real)
	}
	return ids
}

// CanonicalDoctorID maps a legacy short code to the real identity id for
// storage consistency on newly created appointments. Best-effort: when no
// record matches, the short code is kept as-is.
func (r *Resolver) CanonicalDoctorID(ctx context.Context, doctorID string) string {
	if _, isLegacy := r.legacyDoctors[doctorID]; !isLegacy {
		return doctorID
	}
	if doctorID == legacyAliasCode {
		if u, err := r.users.FindDoctorByNameLike(ctx, legacyAliasFragment); err == nil && u != nil {
			return u.ID.String()
		}
		return doctorID
	}
	if u, err := r.users.FindByIdentifier(ctx, doctorID, RoleDoctor); err == nil && u != nil {
		return u.ID.String()
	}
	return doctorID
}
