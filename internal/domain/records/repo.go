package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("record not found")

type RecordRepository interface {
	Create(ctx context.Context, r *PatientRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
	Update(ctx context.Context, r *PatientRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID string) ([]*PatientRecord, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PatientRecord, int, error)
}
