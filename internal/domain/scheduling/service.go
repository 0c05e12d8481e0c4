package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raidenx1212/meditech-sub001/internal/domain/identity"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
)

// IdentityResolver is the slice of identity resolution the scheduler needs.
// Implementations must never fail: misses degrade to default names.
type IdentityResolver interface {
	ResolveDoctorName(ctx context.Context, doctorID string) string
	ResolvePatientName(ctx context.Context, patientID string) string
	ResolvePatient(ctx context.Context, patientID string) *identity.User
	DoctorQueryIDs(ctx context.Context, doctorID string) []string
	CanonicalDoctorID(ctx context.Context, doctorID string) string
}

// Notifier dispatches best-effort notifications after a state change.
type Notifier interface {
	Notify(ctx context.Context, templateID string, data map[string]string, recipient string)
}

type Service struct {
	appts    AppointmentRepository
	ids      IdentityResolver
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(appts AppointmentRepository, ids IdentityResolver, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{appts: appts, ids: ids, notifier: notifier, logger: logger}
}

const slotTakenMessage = "This time slot is already booked"

// conflictError wraps the occupying appointment so the 409 body carries it.
func conflictError(existing *Appointment) error {
	e := httperr.Conflict(slotTakenMessage)
	if existing != nil {
		return e.WithDetails(map[string]interface{}{"appointment": existing})
	}
	return e
}

// conflictIDs collects every identifier the slot may be occupied under:
// the identifier as supplied, its canonical mapping, and any legacy alias.
func (s *Service) conflictIDs(ctx context.Context, doctorID, canonicalID string) []string {
	ids := s.ids.DoctorQueryIDs(ctx, doctorID)
	if canonicalID != "" && canonicalID != doctorID {
		found := false
		for _, id := range ids {
			if id == canonicalID {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, canonicalID)
		}
	}
	return ids
}

// HasConflict reports whether a non-cancelled appointment already occupies
// (doctorID, date, timeSlot), excluding excludeID when non-nil.
func (s *Service) HasConflict(ctx context.Context, doctorID, date, timeSlot string, excludeID uuid.UUID) (bool, error) {
	if doctorID == "" || date == "" || timeSlot == "" {
		return false, httperr.Validation("doctor_id, date and time are required")
	}
	existing, err := s.appts.FindConflict(ctx, s.conflictIDs(ctx, doctorID, ""), date, timeSlot, excludeID)
	if err != nil {
		return false, httperr.Internal("checking slot conflict", err)
	}
	return existing != nil, nil
}

// CreateRequest carries a booking. ActorRole/ActorID come from the
// authenticated caller, never from the payload.
type CreateRequest struct {
	DoctorID   string
	PatientID  string
	DoctorName string
	Date       string
	Time       string
	Notes      string
	Status     string

	ActorRole string
	ActorID   string
}

// Create books a slot. A doctor or patient caller always books as
// themselves regardless of the identifiers in the payload.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	switch req.ActorRole {
	case identity.RoleDoctor:
		if req.ActorID != "" {
			req.DoctorID = req.ActorID
		}
	case identity.RolePatient:
		if req.ActorID != "" {
			req.PatientID = req.ActorID
		}
	}

	if req.DoctorID == "" || req.PatientID == "" || req.Date == "" || req.Time == "" {
		return nil, httperr.Validation("doctor_id, patient_id, date and time are required")
	}
	if !ValidSlot(req.Time) {
		return nil, httperr.Validation("time must be one of the bookable slots")
	}
	if req.Status == "" {
		req.Status = StatusScheduled
	}
	if !ValidStatus(req.Status) {
		return nil, httperr.Validation("invalid status: " + req.Status)
	}

	// Legacy short codes are mapped to the real identity id for new rows
	// when one exists; the short code is kept on a miss.
	storeID := s.ids.CanonicalDoctorID(ctx, req.DoctorID)

	checkIDs := s.conflictIDs(ctx, req.DoctorID, storeID)
	existing, err := s.appts.FindConflict(ctx, checkIDs, req.Date, req.Time, uuid.Nil)
	if err != nil {
		return nil, httperr.Internal("checking slot conflict", err)
	}
	if existing != nil {
		return nil, conflictError(existing)
	}

	doctorName := req.DoctorName
	if doctorName == "" {
		doctorName = s.ids.ResolveDoctorName(ctx, req.DoctorID)
	}

	a := &Appointment{
		DoctorID:    storeID,
		PatientID:   req.PatientID,
		DoctorName:  doctorName,
		PatientName: s.ids.ResolvePatientName(ctx, req.PatientID),
		Date:        req.Date,
		Time:        req.Time,
		Status:      req.Status,
		Notes:       req.Notes,
	}

	if err := s.appts.Create(ctx, a); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			// Lost the race to a concurrent booking; surface the winner.
			winner, ferr := s.appts.FindConflict(ctx, checkIDs, req.Date, req.Time, uuid.Nil)
			if ferr != nil {
				winner = nil
			}
			return nil, conflictError(winner)
		}
		return nil, httperr.Internal("creating appointment", err)
	}

	s.notifyPatient(ctx, a, "appointment-booked", nil)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading appointment", err)
	}
	return a, nil
}

// UpdateRequest carries a general update. Nil fields are left unchanged.
type UpdateRequest struct {
	Date  *string
	Time  *string
	Notes *string
}

// Update changes date/time/notes. The slot conflict is re-checked only
// when date or time actually change; a notes-only update can never fail
// on a slot collision.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading appointment", err)
	}

	newDate, newTime := a.Date, a.Time
	if req.Date != nil && *req.Date != "" {
		newDate = *req.Date
	}
	if req.Time != nil && *req.Time != "" {
		if !ValidSlot(*req.Time) {
			return nil, httperr.Validation("time must be one of the bookable slots")
		}
		newTime = *req.Time
	}

	slotChanged := newDate != a.Date || newTime != a.Time
	if slotChanged {
		existing, err := s.appts.FindConflict(ctx, s.conflictIDs(ctx, a.DoctorID, ""), newDate, newTime, a.ID)
		if err != nil {
			return nil, httperr.Internal("checking slot conflict", err)
		}
		if existing != nil {
			return nil, conflictError(existing)
		}
	}

	a.Date = newDate
	a.Time = newTime
	if req.Notes != nil {
		a.Notes = *req.Notes
	}

	if err := s.appts.Update(ctx, a); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			winner, ferr := s.appts.FindConflict(ctx, s.conflictIDs(ctx, a.DoctorID, ""), newDate, newTime, a.ID)
			if ferr != nil {
				winner = nil
			}
			return nil, conflictError(winner)
		}
		return nil, httperr.Internal("updating appointment", err)
	}
	return a, nil
}

// UpdateStatus applies a status-only transition. Any enumerated status may
// move to any other; there is deliberately no state machine here.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status, notes string, notesProvided bool) (*Appointment, error) {
	if status == "" {
		return nil, httperr.Validation("status is required")
	}
	if !ValidStatus(status) {
		return nil, httperr.Validation("invalid status: " + status)
	}

	a, err := s.appts.UpdateStatus(ctx, id, status, notes, notesProvided)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, httperr.Internal("updating appointment status", err)
	}

	template := "appointment-status-changed"
	if status == StatusCancelled {
		template = "appointment-cancelled"
	}
	s.notifyPatient(ctx, a, template, map[string]string{"status": status})
	return a, nil
}

// Delete removes an appointment outright, bypassing the status workflow.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.appts.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httperr.NotFound("appointment not found")
		}
		return httperr.Internal("loading appointment", err)
	}
	if err := s.appts.Delete(ctx, id); err != nil {
		return httperr.Internal("deleting appointment", err)
	}
	return nil
}

// AvailableSlots subtracts booked times from the slot catalog for a
// doctor/date, preserving catalog order.
func (s *Service) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if doctorID == "" || date == "" {
		return nil, httperr.Validation("doctor_id and date are required")
	}
	booked, err := s.appts.BookedTimes(ctx, s.ids.DoctorQueryIDs(ctx, doctorID), date)
	if err != nil {
		return nil, httperr.Internal("loading booked slots", err)
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}
	available := make([]string, 0, len(SlotCatalog))
	for _, slot := range SlotCatalog {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	return available, nil
}

// ListByDoctor returns a doctor's appointments. For the aliased legacy
// code the query matches rows stored under either identifier. Patient
// names are enriched best-effort; an enrichment miss leaves the row as-is.
func (s *Service) ListByDoctor(ctx context.Context, doctorID, status, date string) ([]*Appointment, error) {
	if doctorID == "" {
		return nil, httperr.Validation("doctor_id is required")
	}
	if status != "" && !ValidStatus(status) {
		return nil, httperr.Validation("invalid status: " + status)
	}
	items, err := s.appts.ListByDoctor(ctx, s.ids.DoctorQueryIDs(ctx, doctorID), status, date)
	if err != nil {
		return nil, httperr.Internal("listing doctor appointments", err)
	}
	for _, a := range items {
		if a.PatientName == "" || a.PatientName == identity.UnknownPatient {
			if name := s.ids.ResolvePatientName(ctx, a.PatientID); name != identity.UnknownPatient {
				a.PatientName = name
			}
		}
	}
	return items, nil
}

// ListByPatient returns a patient's appointments with best-effort doctor
// name enrichment.
func (s *Service) ListByPatient(ctx context.Context, patientID, status string) ([]*Appointment, error) {
	if patientID == "" {
		return nil, httperr.Validation("patient_id is required")
	}
	if status != "" && !ValidStatus(status) {
		return nil, httperr.Validation("invalid status: " + status)
	}
	items, err := s.appts.ListByPatient(ctx, patientID, status)
	if err != nil {
		return nil, httperr.Internal("listing patient appointments", err)
	}
	for _, a := range items {
		if a.DoctorName == "" || a.DoctorName == identity.UnknownDoctor {
			if name := s.ids.ResolveDoctorName(ctx, a.DoctorID); name != identity.UnknownDoctor {
				a.DoctorName = name
			}
		}
	}
	return items, nil
}

// Search backs the paginated GET /appointments listing.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.appts.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, httperr.Internal("searching appointments", err)
	}
	return items, total, nil
}

// RefreshPatientInfo re-resolves and persists the denormalized patient
// display name on a single appointment.
func (s *Service) RefreshPatientInfo(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading appointment", err)
	}
	a.PatientName = s.ids.ResolvePatientName(ctx, a.PatientID)
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, httperr.Internal("persisting patient info", err)
	}
	return a, nil
}

// notifyPatient fires a best-effort notification to the appointment's
// patient. Resolution or delivery failures never affect the caller.
func (s *Service) notifyPatient(ctx context.Context, a *Appointment, template string, extra map[string]string) {
	if s.notifier == nil {
		return
	}
	patient := s.ids.ResolvePatient(ctx, a.PatientID)
	if patient == nil || patient.Email == "" {
		return
	}
	data := map[string]string{
		"patient_name": a.PatientName,
		"doctor_name":  a.DoctorName,
		"date":         a.Date,
		"time":         a.Time,
	}
	for k, v := range extra {
		data[k] = v
	}
	s.notifier.Notify(ctx, template, data, patient.Email)
}
