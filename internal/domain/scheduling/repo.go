package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrSlotTaken is returned by Create or Update when the store's uniqueness
// constraint rejects a booking for an occupied (doctor, date, time) slot.
// The constraint, not the application pre-check, is what makes concurrent
// bookings safe.
var ErrSlotTaken = errors.New("slot already booked")

// ErrNotFound is returned when no appointment matches the given id.
var ErrNotFound = errors.New("appointment not found")

// AppointmentRepository persists appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, notes string, overwriteNotes bool) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// FindConflict returns the first non-cancelled appointment occupying
	// (any of doctorIDs, date, time), excluding excludeID when non-nil.
	// A nil result with nil error means the slot is free.
	FindConflict(ctx context.Context, doctorIDs []string, date, timeSlot string, excludeID uuid.UUID) (*Appointment, error)

	// BookedTimes returns the slot labels occupied for the doctor on date.
	BookedTimes(ctx context.Context, doctorIDs []string, date string) ([]string, error)

	// ListByDoctor returns appointments under any of doctorIDs, optionally
	// filtered by status and date, ascending by (date, time).
	ListByDoctor(ctx context.Context, doctorIDs []string, status, date string) ([]*Appointment, error)

	// ListByPatient returns a patient's appointments, optionally filtered
	// by status, ascending by (date, time).
	ListByPatient(ctx context.Context, patientID, status string) ([]*Appointment, error)

	// Search supports the filters of GET /appointments.
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}
