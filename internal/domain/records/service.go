package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
)

type Service struct {
	records RecordRepository
	logger  zerolog.Logger
}

func NewService(records RecordRepository, logger zerolog.Logger) *Service {
	return &Service{records: records, logger: logger}
}

func (s *Service) Create(ctx context.Context, rec *PatientRecord) error {
	if rec.PatientID == "" || rec.DoctorID == "" || rec.VisitDate == "" {
		return httperr.Validation("patient_id, doctor_id and visit_date are required")
	}
	if rec.Diagnosis == "" {
		return httperr.Validation("diagnosis is required")
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return httperr.Internal("creating patient record", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("record not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading patient record", err)
	}
	return rec, nil
}

// UpdateRequest carries a partial record update. Nil fields are unchanged.
type UpdateRequest struct {
	VisitDate *string
	Diagnosis *string
	Treatment *string
	Notes     *string
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*PatientRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("record not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading patient record", err)
	}
	if req.VisitDate != nil {
		if *req.VisitDate == "" {
			return nil, httperr.Validation("visit_date cannot be empty")
		}
		rec.VisitDate = *req.VisitDate
	}
	if req.Diagnosis != nil {
		if *req.Diagnosis == "" {
			return nil, httperr.Validation("diagnosis cannot be empty")
		}
		rec.Diagnosis = *req.Diagnosis
	}
	if req.Treatment != nil {
		rec.Treatment = *req.Treatment
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, httperr.Internal("updating patient record", err)
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.records.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httperr.NotFound("record not found")
		}
		return httperr.Internal("loading patient record", err)
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return httperr.Internal("deleting patient record", err)
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*PatientRecord, error) {
	if patientID == "" {
		return nil, httperr.Validation("patient_id is required")
	}
	items, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, httperr.Internal("listing patient records", err)
	}
	return items, nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PatientRecord, int, error) {
	items, total, err := s.records.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, httperr.Internal("searching patient records", err)
	}
	return items, total, nil
}
