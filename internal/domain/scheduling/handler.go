package scheduling

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
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/available-slots", h.AvailableSlots)
	api.GET("/appointments/doctor/:doctorId", h.ListByDoctor)
	api.GET("/appointments/patient/:patientId", h.ListByPatient)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments", h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.PATCH("/appointments/:id/status", h.UpdateStatus)
	api.POST("/appointments/:id/refresh-patient-info", h.RefreshPatientInfo)
	api.DELETE("/appointments/:id", h.DeleteAppointment, auth.RequireRole("admin", "doctor"))
}

type createAppointmentRequest struct {
	DoctorID   string `json:"doctor_id"`
	PatientID  string `json:"patient_id"`
	DoctorName string `json:"doctor_name"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Notes      string `json:"notes"`
	Status     string `json:"status"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}

	ctx := c.Request().Context()
	a, err := h.svc.Create(ctx, CreateRequest{
		DoctorID:   req.DoctorID,
		PatientID:  req.PatientID,
		DoctorName: req.DoctorName,
		Date:       req.Date,
		Time:       req.Time,
		Notes:      req.Notes,
		Status:     req.Status,
		ActorRole:  auth.RoleFromContext(ctx),
		ActorID:    auth.UserIDFromContext(ctx),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for query, key := range map[string]string{
		"patientId": "patient_id",
		"doctorId":  "doctor_id",
		"status":    "status",
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

type updateAppointmentRequest struct {
	Date  *string `json:"date"`
	Time  *string `json:"time"`
	Notes *string `json:"notes"`
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	a, err := h.svc.Update(c.Request().Context(), id, UpdateRequest{
		Date:  req.Date,
		Time:  req.Time,
		Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status, notes, req.Notes != nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	items, err := h.svc.ListByDoctor(c.Request().Context(),
		c.Param("doctorId"), c.QueryParam("status"), c.QueryParam("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ListByPatient(c echo.Context) error {
	items, err := h.svc.ListByPatient(c.Request().Context(),
		c.Param("patientId"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	slots, err := h.svc.AvailableSlots(c.Request().Context(),
		c.QueryParam("doctorId"), c.QueryParam("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": c.QueryParam("doctorId"),
		"date":      c.QueryParam("date"),
		"slots":     slots,
	})
}

func (h *Handler) RefreshPatientInfo(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.Validation("invalid id")
	}
	a, err := h.svc.RefreshPatientInfo(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
