package documents

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raidenx1212/meditech-sub001/internal/domain/identity"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/chain"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
)

// PatientResolver is the slice of identity resolution needed for
// notifications.
type PatientResolver interface {
	ResolvePatient(ctx context.Context, patientID string) *identity.User
}

// Notifier dispatches best-effort notifications after a state change.
type Notifier interface {
	Notify(ctx context.Context, templateID string, data map[string]string, recipient string)
}

type Service struct {
	docs     DocumentRepository
	anchorer chain.Anchorer
	ids      PatientResolver
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(docs DocumentRepository, anchorer chain.Anchorer, ids PatientResolver, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{docs: docs, anchorer: anchorer, ids: ids, notifier: notifier, logger: logger}
}

// CreateRequest carries new document metadata. Either Content (raw bytes,
// hashed server-side) or SHA256 (precomputed hex digest) must be supplied.
type CreateRequest struct {
	PatientID   string
	Title       string
	ContentType string
	Content     []byte
	SHA256      string
}

func validDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Document, error) {
	if req.PatientID == "" || req.Title == "" {
		return nil, httperr.Validation("patient_id and title are required")
	}
	digest := req.SHA256
	if len(req.Content) > 0 {
		digest = chain.HashDocument(req.Content)
	}
	if digest == "" {
		return nil, httperr.Validation("either content or sha256 is required")
	}
	if !validDigest(digest) {
		return nil, httperr.Validation("sha256 must be a 64-character hex digest")
	}

	d := &Document{
		PatientID:   req.PatientID,
		Title:       req.Title,
		ContentType: req.ContentType,
		SHA256:      digest,
		Status:      StatusPending,
	}
	if err := s.docs.Create(ctx, d); err != nil {
		return nil, httperr.Internal("creating document", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("document not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading document", err)
	}
	return d, nil
}

// Approve moves a pending document to approved, anchoring its digest on
// chain first. The transaction reference is persisted with the approval,
// so a document is never marked approved without a successful anchor.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*Document, error) {
	d, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("document not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading document", err)
	}
	if d.Status != StatusPending {
		return nil, httperr.Conflict("document is already " + d.Status)
	}

	txID, err := s.anchorer.Anchor(ctx, d.ID.String(), d.SHA256)
	if err != nil {
		return nil, httperr.Unavailable("anchoring document digest", err)
	}

	d.Status = StatusApproved
	d.ApprovedBy = approvedBy
	d.AnchorTxID = txID
	if err := s.docs.Update(ctx, d); err != nil {
		return nil, httperr.Internal("persisting approval", err)
	}

	s.notifyPatient(ctx, d, "document-approved", map[string]string{"tx_id": txID})
	return d, nil
}

// Reject moves a pending document to rejected. No chain interaction.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string) (*Document, error) {
	d, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("document not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading document", err)
	}
	if d.Status != StatusPending {
		return nil, httperr.Conflict("document is already " + d.Status)
	}

	d.Status = StatusRejected
	d.ApprovedBy = rejectedBy
	if err := s.docs.Update(ctx, d); err != nil {
		return nil, httperr.Internal("persisting rejection", err)
	}

	s.notifyPatient(ctx, d, "document-rejected", map[string]string{"reason": reason})
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.docs.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httperr.NotFound("document not found")
		}
		return httperr.Internal("loading document", err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return httperr.Internal("deleting document", err)
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Document, error) {
	if patientID == "" {
		return nil, httperr.Validation("patient_id is required")
	}
	items, err := s.docs.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, httperr.Internal("listing patient documents", err)
	}
	return items, nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Document, int, error) {
	items, total, err := s.docs.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, httperr.Internal("searching documents", err)
	}
	return items, total, nil
}

func (s *Service) notifyPatient(ctx context.Context, d *Document, template string, extra map[string]string) {
	if s.notifier == nil || s.ids == nil {
		return
	}
	patient := s.ids.ResolvePatient(ctx, d.PatientID)
	if patient == nil || patient.Email == "" {
		return
	}
	data := map[string]string{
		"patient_name":  patient.DisplayName(identity.UnknownPatient),
		"document_name": d.Title,
	}
	for k, v := range extra {
		data[k] = v
	}
	s.notifier.Notify(ctx, template, data, patient.Email)
}
