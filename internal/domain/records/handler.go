package records

import (
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
	api.GET("/records", h.ListRecords, auth.RequireRole("doctor"))
	api.POST("/records", h.CreateRecord, auth.RequireRole("doctor"))
	api.GET("/records/patient/:patientId", h.ListByPatient)
	api.GET("/records/:id", h.GetRecord)
	api.PUT("/records/:id", h.UpdateRecord, auth.RequireRole("doctor"))
	api.DELETE("/records/:id", h.DeleteRecord, auth.RequireRole("admin"))
}

type createRecordRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	VisitDate string `json:"visit_date"`
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
	Notes     string `json:"notes"`
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var req createRecordRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	// A doctor files records under their own identity.
	doctorID := req.DoctorID
	if auth.RoleFromContext(ctx) == "doctor" {
		if uid := auth.UserIDFromContext(ctx); uid != "" {
			doctorID = uid
		}
	}
	rec := &PatientRecord{
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		VisitDate: req.VisitDate,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Notes:     req.Notes,
	}
	if err := h.svc.Create(ctx, rec); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.authorizePatientAccess(c, rec.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for query, key := range map[string]string{
		"patientId": "patient_id",
		"doctorId":  "doctor_id",
		"startDate": "start_date",
		"endDate":   "end_date",
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

type updateRecordRequest struct {
	VisitDate *string `json:"visit_date"`
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
	Notes     *string `json:"notes"`
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	var req updateRecordRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	rec, err := h.svc.Update(c.Request().Context(), id, UpdateRequest{
		VisitDate: req.VisitDate,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// authorizePatientAccess limits patients to their own chart. Doctors and
// admins see everything.
func (h *Handler) authorizePatientAccess(c echo.Context, patientID string) error {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) != "patient" {
		return nil
	}
	if auth.UserIDFromContext(ctx) != patientID {
		return httperr.Forbidden("patients may only access their own records")
	}
	return nil
}
