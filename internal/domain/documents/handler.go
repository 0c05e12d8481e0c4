package documents

import (
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Raidenx1212/meditech-sub001/internal/platform/auth"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
	"github.com/Raidenx1212/meditech-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/documents", h.ListDocuments, auth.RequireRole("doctor"))
	api.POST("/documents", h.CreateDocument)
	api.GET("/documents/patient/:patientId", h.ListByPatient)
	api.GET("/documents/:id", h.GetDocument)
	api.DELETE("/documents/:id", h.DeleteDocument, auth.RequireRole("admin"))
	api.POST("/documents/:id/approve", h.ApproveDocument, auth.RequireRole("doctor"))
	api.POST("/documents/:id/reject", h.RejectDocument, auth.RequireRole("doctor"))
}

type createDocumentRequest struct {
	PatientID   string `json:"patient_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"` // base64, optional
	SHA256      string `json:"sha256"`  // precomputed digest, optional
}

func (h *Handler) CreateDocument(c echo.Context) error {
	var req createDocumentRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	// A patient uploads documents to their own chart.
	patientID := req.PatientID
	if auth.RoleFromContext(ctx) == "patient" {
		if uid := auth.UserIDFromContext(ctx); uid != "" {
			patientID = uid
		}
	}
	var content []byte
	if req.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return httperr.Validation("content must be base64-encoded")
		}
		content = decoded
	}
	d, err := h.svc.Create(ctx, CreateRequest{
		PatientID:   patientID,
		Title:       req.Title,
		ContentType: req.ContentType,
		Content:     content,
		SHA256:      req.SHA256,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.authorizePatientAccess(c, d.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for query, key := range map[string]string{
		"patientId": "patient_id",
		"status":    "status",
	} {
		if v := c.QueryParam(query); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID := c.Param("patientId")
	if err := h.authorizePatientAccess(c, patientID); err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ApproveDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	ctx := c.Request().Context()
	d, err := h.svc.Approve(ctx, id, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

type rejectDocumentRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	var req rejectDocumentRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	d, err := h.svc.Reject(ctx, id, auth.UserIDFromContext(ctx), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) authorizePatientAccess(c echo.Context, patientID string) error {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) != "patient" {
		return nil
	}
	if auth.UserIDFromContext(ctx) != patientID {
		return httperr.Forbidden("patients may only access their own documents")
	}
	return nil
}
