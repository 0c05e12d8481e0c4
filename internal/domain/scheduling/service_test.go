package scheduling

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raidenx1212/meditech-sub001/internal/domain/identity"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
)

// mockApptRepo is a map-backed repository enforcing the same uniqueness
// invariant as the database's partial unique index.
type mockApptRepo struct {
	appts            map[uuid.UUID]*Appointment
	failWith         error
	conflictCalls    int
	rejectNextCreate bool // simulate losing a booking race
	rejectedOccupant *Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) occupant(doctorIDs []string, date, timeSlot string, exclude uuid.UUID) *Appointment {
	for _, a := range m.appts {
		if !a.Occupies() || a.Date != date || a.Time != timeSlot {
			continue
		}
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		for _, id := range doctorIDs {
			if a.DoctorID == id {
				return a
			}
		}
	}
	return nil
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	if m.failWith != nil {
		return m.failWith
	}
	if m.rejectNextCreate {
		m.rejectNextCreate = false
		if m.rejectedOccupant != nil {
			m.appts[m.rejectedOccupant.ID] = m.rejectedOccupant
		}
		return ErrSlotTaken
	}
	if a.Occupies() && m.occupant([]string{a.DoctorID}, a.Date, a.Time, uuid.Nil) != nil {
		return ErrSlotTaken
	}
	a.ID = uuid.New()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	if a.Occupies() && m.occupant([]string{a.DoctorID}, a.Date, a.Time, a.ID) != nil {
		return ErrSlotTaken
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status, notes string, overwriteNotes bool) (*Appointment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	if overwriteNotes {
		a.Notes = notes
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.appts, id)
	return nil
}

func (m *mockApptRepo) FindConflict(_ context.Context, doctorIDs []string, date, timeSlot string, excludeID uuid.UUID) (*Appointment, error) {
	m.conflictCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	if a := m.occupant(doctorIDs, date, timeSlot, excludeID); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *mockApptRepo) BookedTimes(_ context.Context, doctorIDs []string, date string) ([]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	seen := make(map[string]bool)
	var times []string
	for _, a := range m.appts {
		if !a.Occupies() || a.Date != date {
			continue
		}
		for _, id := range doctorIDs {
			if a.DoctorID == id && !seen[a.Time] {
				seen[a.Time] = true
				times = append(times, a.Time)
			}
		}
	}
	return times, nil
}

func slotIndex(t string) int {
	for i, s := range SlotCatalog {
		if s == t {
			return i
		}
	}
	return len(SlotCatalog)
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, doctorIDs []string, status, date string) ([]*Appointment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var items []*Appointment
	for _, a := range m.appts {
		matched := false
		for _, id := range doctorIDs {
			if a.DoctorID == id {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return slotIndex(items[i].Time) < slotIndex(items[j].Time)
	})
	return items, nil
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID, status string) ([]*Appointment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var items []*Appointment
	for _, a := range m.appts {
		if a.PatientID != patientID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return slotIndex(items[i].Time) < slotIndex(items[j].Time)
	})
	return items, nil
}

func (m *mockApptRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	var items []*Appointment
	for _, a := range m.appts {
		if p, ok := params["doctor_id"]; ok && a.DoctorID != p {
			continue
		}
		if p, ok := params["patient_id"]; ok && a.PatientID != p {
			continue
		}
		if p, ok := params["status"]; ok && a.Status != p {
			continue
		}
		if p, ok := params["start_date"]; ok && a.Date < p {
			continue
		}
		if p, ok := params["end_date"]; ok && a.Date > p {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, len(items), nil
}

// stubResolver implements IdentityResolver with configurable knowledge.
type stubResolver struct {
	doctorNames  map[string]string
	patientNames map[string]string
	patients     map[string]*identity.User
	aliasIDs     map[string][]string
	canonical    map[string]string
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		doctorNames:  map[string]string{},
		patientNames: map[string]string{},
		patients:     map[string]*identity.User{},
		aliasIDs:     map[string][]string{},
		canonical:    map[string]string{},
	}
}

func (s *stubResolver) ResolveDoctorName(_ context.Context, id string) string {
	if n, ok := identity.DefaultLegacyDoctors[id]; ok {
		return n
	}
	if n, ok := s.doctorNames[id]; ok {
		return n
	}
	return identity.UnknownDoctor
}

func (s *stubResolver) ResolvePatientName(_ context.Context, id string) string {
	if n, ok := s.patientNames[id]; ok {
		return n
	}
	return identity.UnknownPatient
}

func (s *stubResolver) ResolvePatient(_ context.Context, id string) *identity.User {
	return s.patients[id]
}

func (s *stubResolver) DoctorQueryIDs(_ context.Context, id string) []string {
	if ids, ok := s.aliasIDs[id]; ok {
		return ids
	}
	return []string{id}
}

func (s *stubResolver) CanonicalDoctorID(_ context.Context, id string) string {
	if c, ok := s.canonical[id]; ok {
		return c
	}
	return id
}

type capturedNotification struct {
	Template  string
	Data      map[string]string
	Recipient string
}

type stubNotifier struct {
	sent []capturedNotification
}

func (s *stubNotifier) Notify(_ context.Context, template string, data map[string]string, recipient string) {
	s.sent = append(s.sent, capturedNotification{template, data, recipient})
}

func newTestService(repo AppointmentRepository, ids IdentityResolver) *Service {
	return NewService(repo, ids, nil, zerolog.Nop())
}

func mustCreate(t *testing.T, svc *Service, req CreateRequest) *Appointment {
	t.Helper()
	a, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return a
}

func TestCreate_ResolvesLegacyDoctorName(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})

	if a.DoctorName != "Dr. Jhon" {
		t.Errorf("expected doctor name 'Dr. Jhon', got %q", a.DoctorName)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected default status scheduled, got %q", a.Status)
	}
	if a.PatientName != identity.UnknownPatient {
		t.Errorf("expected unresolved patient to default, got %q", a.PatientName)
	}
}

func TestCreate_SuppliedDoctorNameWinsVerbatim(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
		DoctorName: "Dr. Custom",
	})
	if a.DoctorName != "Dr. Custom" {
		t.Errorf("supplied name must be used verbatim, got %q", a.DoctorName)
	}
}

func TestCreate_ConflictCarriesExistingAppointment(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())

	first := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})

	_, err := svc.Create(context.Background(), CreateRequest{
		DoctorID: "doc1", PatientID: "p2", Date: "2024-06-01", Time: "09:00 AM",
	})
	he := httperr.From(err)
	if he == nil || he.Kind != httperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	occupant, ok := he.Details["appointment"].(*Appointment)
	if !ok {
		t.Fatalf("expected occupying appointment in details, got %T", he.Details["appointment"])
	}
	if occupant.ID != first.ID {
		t.Errorf("expected the original appointment, got %s", occupant.ID)
	}
}

func TestCreate_CancelledSlotCanBeRebooked(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())
	triple := CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"}

	first := mustCreate(t, svc, triple)

	if _, err := svc.Create(context.Background(), triple); httperr.From(err) == nil {
		t.Fatal("second booking of an occupied slot must conflict")
	}

	if _, err := svc.UpdateStatus(context.Background(), first.ID, StatusCancelled, "", false); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.Create(context.Background(), triple); err != nil {
		t.Fatalf("rebooking after cancellation must succeed, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())

	cases := []CreateRequest{
		{PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"},                                      // missing doctor
		{DoctorID: "doc1", Date: "2024-06-01", Time: "09:00 AM"},                                     // missing patient
		{DoctorID: "doc1", PatientID: "p1", Time: "09:00 AM"},                                        // missing date
		{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01"},                                      // missing time
		{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "9am"},                         // not a catalog slot
		{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM", Status: "pending"}, // unknown status
	}
	for i, req := range cases {
		_, err := svc.Create(context.Background(), req)
		he := httperr.From(err)
		if he == nil || he.Kind != httperr.KindValidation {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreate_ActorRoleOverridesIdentifiers(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "someone-else", Date: "2024-06-01", Time: "09:00 AM",
		ActorRole: identity.RolePatient, ActorID: "real-patient",
	})
	if a.PatientID != "real-patient" {
		t.Errorf("patient caller must book as themselves, got %q", a.PatientID)
	}

	b := mustCreate(t, svc, CreateRequest{
		DoctorID: "spoofed-doctor", PatientID: "p1", Date: "2024-06-02", Time: "09:00 AM",
		ActorRole: identity.RoleDoctor, ActorID: "real-doctor",
	})
	if b.DoctorID != "real-doctor" {
		t.Errorf("doctor caller must book as themselves, got %q", b.DoctorID)
	}
}

func TestCreate_LostRaceSurfacesWinner(t *testing.T) {
	repo := newMockApptRepo()
	winner := &Appointment{
		ID: uuid.New(), DoctorID: "doc1", PatientID: "p2",
		Date: "2024-06-01", Time: "09:00 AM", Status: StatusScheduled,
	}
	// Pre-check sees a free slot but the store's constraint rejects the
	// insert, as happens when a concurrent booking lands between the two.
	repo.rejectNextCreate = true
	repo.rejectedOccupant = winner

	svc := newTestService(repo, newStubResolver())
	_, err := svc.Create(context.Background(), CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})
	he := httperr.From(err)
	if he == nil || he.Kind != httperr.KindConflict {
		t.Fatalf("expected conflict after lost race, got %v", err)
	}
	occupant, _ := he.Details["appointment"].(*Appointment)
	if occupant == nil || occupant.ID != winner.ID {
		t.Errorf("expected race winner in conflict body")
	}
}

func TestCreate_CanonicalMappingAppliedToStoredRow(t *testing.T) {
	ids := newStubResolver()
	ids.canonical["doc4"] = "real-rohan-id"
	ids.aliasIDs["doc4"] = []string{"doc4", "real-rohan-id"}

	repo := newMockApptRepo()
	svc := newTestService(repo, ids)

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc4", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})
	if a.DoctorID != "real-rohan-id" {
		t.Errorf("expected canonical id stored, got %q", a.DoctorID)
	}
	if a.DoctorName != "Dr. Rohan" {
		t.Errorf("name still resolves from the legacy table, got %q", a.DoctorName)
	}

	// Booking the same slot under either identifier now conflicts.
	_, err := svc.Create(context.Background(), CreateRequest{
		DoctorID: "doc4", PatientID: "p2", Date: "2024-06-01", Time: "09:00 AM",
	})
	if httperr.From(err) == nil || httperr.From(err).Kind != httperr.KindConflict {
		t.Fatalf("expected conflict via alias, got %v", err)
	}
}

func TestHasConflict_Validation(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())
	_, err := svc.HasConflict(context.Background(), "", "2024-06-01", "09:00 AM", uuid.Nil)
	if httperr.From(err) == nil {
		t.Fatal("expected validation error for missing doctor id")
	}
}

func TestAvailableSlots_FullCatalogWhenUnbooked(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())
	slots, err := svc.AvailableSlots(context.Background(), "doc1", "2024-06-01")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(slots) != len(SlotCatalog) {
		t.Fatalf("expected all %d slots, got %d", len(SlotCatalog), len(slots))
	}
	for i, s := range slots {
		if s != SlotCatalog[i] {
			t.Errorf("catalog order must be preserved: index %d expected %q got %q", i, SlotCatalog[i], s)
		}
	}
}

func TestAvailableSlots_DisjointFromBooked(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	booked := []string{"10:00 AM", "01:00 PM", "05:00 PM"}
	for i, slot := range booked {
		mustCreate(t, svc, CreateRequest{
			DoctorID: "doc2", PatientID: "p1", Date: "2024-06-01", Time: slot,
			Notes: string(rune('a' + i)),
		})
	}
	// A cancelled appointment frees its slot.
	c := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc2", PatientID: "p1", Date: "2024-06-01", Time: "11:00 AM",
	})
	if _, err := svc.UpdateStatus(context.Background(), c.ID, StatusCancelled, "", false); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	slots, err := svc.AvailableSlots(context.Background(), "doc2", "2024-06-01")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	available := make(map[string]bool)
	for _, s := range slots {
		available[s] = true
	}
	for _, b := range booked {
		if available[b] {
			t.Errorf("booked slot %q must not be available", b)
		}
	}
	if !available["11:00 AM"] {
		t.Error("cancelled slot must be available again")
	}
	if len(slots)+len(booked) != len(SlotCatalog) {
		t.Errorf("available ∪ booked must cover the catalog: %d + %d != %d",
			len(slots), len(booked), len(SlotCatalog))
	}
}

func TestAvailableSlots_SeesCanonicalStoredBooking(t *testing.T) {
	repo := newMockApptRepo()
	ids := newStubResolver()
	real := uuid.New().String()
	ids.canonical["doc1"] = real
	ids.aliasIDs["doc1"] = []string{"doc1", real}
	svc := newTestService(repo, ids)

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})
	if a.DoctorID != real {
		t.Fatalf("expected booking stored under canonical id %s, got %s", real, a.DoctorID)
	}

	// Availability queried through the legacy code must see the row
	// stored under the canonical id.
	slots, err := svc.AvailableSlots(context.Background(), "doc1", "2024-06-01")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(slots) != len(SlotCatalog)-1 {
		t.Fatalf("expected %d available slots, got %v", len(SlotCatalog)-1, slots)
	}
	for _, s := range slots {
		if s == "09:00 AM" {
			t.Fatal("booked slot must not be advertised as available")
		}
	}

	// Rebooking the advertised-as-taken slot through either identifier
	// conflicts.
	for _, docID := range []string{"doc1", real} {
		_, err := svc.Create(context.Background(), CreateRequest{
			DoctorID: docID, PatientID: "p2", Date: "2024-06-01", Time: "09:00 AM",
		})
		he := httperr.From(err)
		if he == nil || he.Kind != httperr.KindConflict {
			t.Fatalf("doctor id %s: expected conflict, got %v", docID, err)
		}
	}
}

func TestAvailableSlots_Validation(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())
	if _, err := svc.AvailableSlots(context.Background(), "", "2024-06-01"); httperr.From(err) == nil {
		t.Error("expected validation error for missing doctor id")
	}
	if _, err := svc.AvailableSlots(context.Background(), "doc1", ""); httperr.From(err) == nil {
		t.Error("expected validation error for missing date")
	}
}

func TestUpdate_NotesOnlySkipsConflictCheck(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})

	repo.conflictCalls = 0
	notes := "bring previous scans"
	updated, err := svc.Update(context.Background(), a.ID, UpdateRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("notes-only update failed: %v", err)
	}
	if updated.Notes != notes {
		t.Errorf("expected notes persisted, got %q", updated.Notes)
	}
	if repo.conflictCalls != 0 {
		t.Errorf("notes-only update must not run a conflict check, ran %d", repo.conflictCalls)
	}
}

func TestUpdate_TimeChangeRechecksConflict(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	blocker := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "10:00 AM",
	})
	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p2", Date: "2024-06-01", Time: "09:00 AM",
	})

	target := "10:00 AM"
	_, err := svc.Update(context.Background(), a.ID, UpdateRequest{Time: &target})
	he := httperr.From(err)
	if he == nil || he.Kind != httperr.KindConflict {
		t.Fatalf("expected conflict moving onto an occupied slot, got %v", err)
	}
	occupant, _ := he.Details["appointment"].(*Appointment)
	if occupant == nil || occupant.ID != blocker.ID {
		t.Error("expected the blocking appointment in the conflict body")
	}

	free := "11:00 AM"
	updated, err := svc.Update(context.Background(), a.ID, UpdateRequest{Time: &free})
	if err != nil {
		t.Fatalf("moving to a free slot must succeed, got %v", err)
	}
	if updated.Time != free {
		t.Errorf("expected time %q, got %q", free, updated.Time)
	}
}

func TestUpdate_ExcludesSelfFromConflict(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})

	// Re-submitting the same date with an explicit time equal to its own
	// slot must not conflict with itself.
	sameDate, sameTime := "2024-06-02", a.Time
	if _, err := svc.Update(context.Background(), a.ID, UpdateRequest{Date: &sameDate, Time: &sameTime}); err != nil {
		t.Fatalf("expected no self-conflict, got %v", err)
	}
}

func TestUpdate_InvalidSlotLabel(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())
	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})
	bad := "9:00"
	_, err := svc.Update(context.Background(), a.ID, UpdateRequest{Time: &bad})
	if he := httperr.From(err); he == nil || he.Kind != httperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatus_EmptyStatusLeavesRowUnchanged(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())
	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})

	_, err := svc.UpdateStatus(context.Background(), a.ID, "", "notes", true)
	if he := httperr.From(err); he == nil || he.Kind != httperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	stored, _ := svc.Get(context.Background(), a.ID)
	if stored.Status != StatusScheduled || stored.Notes != "" {
		t.Errorf("failed update must not mutate the row: %q/%q", stored.Status, stored.Notes)
	}
}

func TestUpdateStatus_AnyToAnyIsPermitted(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())
	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})

	// No state machine: even a backwards transition is accepted.
	for _, status := range []string{StatusCompleted, StatusScheduled, StatusMissed, StatusConfirmed} {
		if _, err := svc.UpdateStatus(context.Background(), a.ID, status, "", false); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}
}

func TestUpdateStatus_StoreFailureIsNotNotFound(t *testing.T) {
	repo := newMockApptRepo()
	repo.failWith = errors.New("connection refused")

	svc := newTestService(repo, newStubResolver())
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), StatusConfirmed, "", false)
	he := httperr.From(err)
	if he == nil || he.Kind != httperr.KindInternal {
		t.Fatalf("expected internal error for store failure, got %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New())
	he = httperr.From(err)
	if he == nil || he.Kind != httperr.KindInternal {
		t.Fatalf("expected internal error from Get on store failure, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), StatusConfirmed, "", false)
	if he := httperr.From(err); he == nil || he.Kind != httperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateStatus_NotesOverwriteOnlyWhenProvided(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())
	a := mustCreate(t, svc, CreateRequest{
		DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
		Notes: "original",
	})

	got, err := svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed, "", false)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got.Notes != "original" {
		t.Errorf("omitted notes must be preserved, got %q", got.Notes)
	}

	got, err = svc.UpdateStatus(context.Background(), a.ID, StatusCompleted, "done", true)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got.Notes != "done" {
		t.Errorf("provided notes must overwrite, got %q", got.Notes)
	}
}

func TestListByDoctor_AliasMatchesBothIdentifiers(t *testing.T) {
	ids := newStubResolver()
	ids.aliasIDs["doc4"] = []string{"doc4", "real-rohan-id"}

	repo := newMockApptRepo()
	svc := newTestService(repo, ids)

	mustCreate(t, svc, CreateRequest{
		DoctorID: "real-rohan-id", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM",
	})
	// An old row still stored under the literal legacy code.
	old := &Appointment{
		ID: uuid.New(), DoctorID: "doc4", PatientID: "p2",
		Date: "2024-06-01", Time: "10:00 AM", Status: StatusScheduled,
	}
	repo.appts[old.ID] = old

	items, err := svc.ListByDoctor(context.Background(), "doc4", "", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected both access paths to match, got %d rows", len(items))
	}
}

func TestListByDoctor_OrderedByDateThenSlot(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-02", Time: "09:00 AM"})
	mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "01:00 PM"})
	mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})

	items, err := svc.ListByDoctor(context.Background(), "doc1", "", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []struct{ date, slot string }{
		{"2024-06-01", "09:00 AM"},
		{"2024-06-01", "01:00 PM"},
		{"2024-06-02", "09:00 AM"},
	}
	for i, w := range want {
		if items[i].Date != w.date || items[i].Time != w.slot {
			t.Errorf("index %d: expected %s %s, got %s %s", i, w.date, w.slot, items[i].Date, items[i].Time)
		}
	}
}

func TestListByDoctor_EnrichesPatientNames(t *testing.T) {
	ids := newStubResolver()
	ids.patientNames["p1"] = "John Smith"

	repo := newMockApptRepo()
	svc := newTestService(repo, ids)

	mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})

	// Simulate the name becoming resolvable only after booking.
	for _, a := range repo.appts {
		a.PatientName = identity.UnknownPatient
	}

	items, err := svc.ListByDoctor(context.Background(), "doc1", "", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if items[0].PatientName != "John Smith" {
		t.Errorf("expected enriched patient name, got %q", items[0].PatientName)
	}
}

func TestListByPatient_EnrichesDoctorNames(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	mustCreate(t, svc, CreateRequest{DoctorID: "doc3", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})
	for _, a := range repo.appts {
		a.DoctorName = ""
	}

	items, err := svc.ListByPatient(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if items[0].DoctorName != "Dr. Monk" {
		t.Errorf("expected enriched doctor name 'Dr. Monk', got %q", items[0].DoctorName)
	}
}

func TestDelete_HardDeleteBypassesWorkflow(t *testing.T) {
	repo := newMockApptRepo()
	svc := newTestService(repo, newStubResolver())

	a := mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})
	if err := svc.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), a.ID); httperr.From(err) == nil {
		t.Error("deleted appointment must be gone")
	}
	// And the slot is bookable again.
	if _, err := svc.Create(context.Background(), CreateRequest{
		DoctorID: "doc1", PatientID: "p2", Date: "2024-06-01", Time: "09:00 AM",
	}); err != nil {
		t.Errorf("slot must be free after hard delete, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := newTestService(newMockApptRepo(), newStubResolver())
	err := svc.Delete(context.Background(), uuid.New())
	if he := httperr.From(err); he == nil || he.Kind != httperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRefreshPatientInfo_PersistsResolvedName(t *testing.T) {
	ids := newStubResolver()
	repo := newMockApptRepo()
	svc := newTestService(repo, ids)

	a := mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})
	if a.PatientName != identity.UnknownPatient {
		t.Fatalf("precondition: patient unresolved, got %q", a.PatientName)
	}

	ids.patientNames["p1"] = "John Smith"
	refreshed, err := svc.RefreshPatientInfo(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.PatientName != "John Smith" {
		t.Errorf("expected refreshed name, got %q", refreshed.PatientName)
	}
	stored, _ := svc.Get(context.Background(), a.ID)
	if stored.PatientName != "John Smith" {
		t.Errorf("refreshed name must be persisted, got %q", stored.PatientName)
	}
}

func TestCreate_NotifiesPatientBestEffort(t *testing.T) {
	ids := newStubResolver()
	ids.patients["p1"] = &identity.User{Email: "p1@example.com"}
	ids.patientNames["p1"] = "John Smith"

	n := &stubNotifier{}
	svc := NewService(newMockApptRepo(), ids, n, zerolog.Nop())

	mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})

	if len(n.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(n.sent))
	}
	if n.sent[0].Template != "appointment-booked" || n.sent[0].Recipient != "p1@example.com" {
		t.Errorf("unexpected notification: %+v", n.sent[0])
	}
}

func TestUpdateStatus_CancellationUsesCancelTemplate(t *testing.T) {
	ids := newStubResolver()
	ids.patients["p1"] = &identity.User{Email: "p1@example.com"}

	n := &stubNotifier{}
	svc := NewService(newMockApptRepo(), ids, n, zerolog.Nop())

	a := mustCreate(t, svc, CreateRequest{DoctorID: "doc1", PatientID: "p1", Date: "2024-06-01", Time: "09:00 AM"})
	n.sent = nil

	if _, err := svc.UpdateStatus(context.Background(), a.ID, StatusCancelled, "", false); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0].Template != "appointment-cancelled" {
		t.Fatalf("expected cancellation template, got %+v", n.sent)
	}
}
