package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no document matches the given id.
var ErrNotFound = errors.New("document not found")

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID string) ([]*Document, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Document, int, error)
}
