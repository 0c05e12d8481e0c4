package scheduling

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusMissed    = "missed"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCancelled: true,
	StatusCompleted: true, StatusMissed: true,
}

// ValidStatus reports whether s is one of the enumerated appointment statuses.
func ValidStatus(s string) bool { return validStatuses[s] }

// SlotCatalog is the fixed set of daily bookable slots. Availability is
// computed by subtraction against this list, preserving declaration order.
var SlotCatalog = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
	"05:00 PM",
}

var slotSet = func() map[string]bool {
	m := make(map[string]bool, len(SlotCatalog))
	for _, s := range SlotCatalog {
		m[s] = true
	}
	return m
}()

// ValidSlot reports whether t is a catalog slot label.
func ValidSlot(t string) bool { return slotSet[t] }

// Appointment occupies one (doctor, date, time) slot. Doctor and patient
// identifiers are raw strings: depending on the record's age they hold
// either a legacy short code or a structured internal id. Dates are plain
// YYYY-MM-DD strings with no timezone semantics.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    string    `json:"doctor_id"`
	PatientID   string    `json:"patient_id"`
	DoctorName  string    `json:"doctor_name"`
	PatientName string    `json:"patient_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Occupies reports whether the appointment blocks its slot.
// Cancelled rows never do.
func (a *Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}
