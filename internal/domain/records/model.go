package records

import (
	"time"

	"github.com/google/uuid"
)

// PatientRecord is a single visit entry in a patient's chart. PatientID and
// DoctorID follow the same mixed identifier scheme as appointments. VisitDate
// is a plain YYYY-MM-DD string.
type PatientRecord struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	VisitDate string    `json:"visit_date"`
	Diagnosis string    `json:"diagnosis"`
	Treatment string    `json:"treatment,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
