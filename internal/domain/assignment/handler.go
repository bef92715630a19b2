package assignment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/caregraph/caregraph/internal/domain/provider"
	"github.com/caregraph/caregraph/internal/domain/relationship"
	"github.com/caregraph/caregraph/internal/platform/auth"
	"github.com/caregraph/caregraph/internal/platform/db"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc  *Service
	pool *pgxpool.Pool
}

func NewHandler(svc *Service, pool *pgxpool.Pool) *Handler {
	return &Handler{svc: svc, pool: pool}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "provider-admin", "clinician"))
	read.GET("/providers/:personID/patients", h.ListPatients)
	read.GET("/providers/:personID/patient-relationships", h.ListPatientRelationships)
	read.GET("/providers/:personID/supervisors", h.ListSupervisors)
	read.GET("/providers/:personID/supervisor-relationships", h.ListSupervisorRelationships)
	read.GET("/supervisors/:personID/supervisees", h.ListSupervisees)
	read.GET("/supervisors/:personID/supervisee-relationships", h.ListSuperviseeRelationships)
	read.GET("/patients/:personID/providers", h.ListProviders)
	read.GET("/patients/:personID/provider-relationships", h.ListProviderRelationships)

	write := api.Group("", auth.RequireRole("admin", "provider-admin"))
	write.POST("/assignments/patients", h.AssignPatient)
	write.POST("/assignments/patients/unassign", h.UnassignPatient)
	write.POST("/assignments/patients/unassign-all", h.UnassignAllPatients)
	write.POST("/assignments/transfer", h.TransferPatients)
	write.POST("/assignments/supervisors", h.AssignSupervisor)
	write.POST("/assignments/supervisors/unassign", h.UnassignSupervisor)
	write.POST("/assignments/supervisors/unassign-all", h.UnassignAllSupervisors)
	write.POST("/assignments/supervisors/release-all", h.UnassignAllProviders)
}

func httpError(err error) error {
	var (
		already      *AlreadyAssignedError
		notAssigned  *NotAssignedError
		invalidType  *InvalidRelationshipTypeError
		unsupported  *UnsupportedRelationshipTypeError
		invalidSup   *InvalidSupervisorError
		sameProvider *SameProviderError
		notProvider  *provider.NotProviderError
		consistency  *ConsistencyError
	)
	switch {
	case errors.As(err, &already):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &notAssigned):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &invalidType),
		errors.As(err, &unsupported),
		errors.As(err, &invalidSup),
		errors.As(err, &sameProvider),
		errors.As(err, &notProvider):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &consistency):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, provider.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func dateQuery(c echo.Context) (time.Time, error) {
	d, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

func typeQuery(c echo.Context) (*uuid.UUID, error) {
	raw := c.QueryParam("relationship_type_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid relationship type id")
	}
	return &id, nil
}

func personParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("personID"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid person id")
	}
	return id, nil
}

// -- patient assignment --

type assignPatientRequest struct {
	PatientPersonID    uuid.UUID `json:"patient_person_id"`
	ProviderPersonID   uuid.UUID `json:"provider_person_id"`
	RelationshipTypeID uuid.UUID `json:"relationship_type_id"`
	Date               string    `json:"date"`
}

func (h *Handler) AssignPatient(c echo.Context) error {
	var req assignPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	var rel *relationship.Relationship
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		rel, err = h.svc.AssignPatientToProvider(ctx, req.PatientPersonID, req.ProviderPersonID, req.RelationshipTypeID, date)
		return err
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rel)
}

func (h *Handler) UnassignPatient(c echo.Context) error {
	var req assignPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnassignPatientFromProvider(ctx, req.PatientPersonID, req.ProviderPersonID, req.RelationshipTypeID, date)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnassignAllPatients(c echo.Context) error {
	var req struct {
		ProviderPersonID   uuid.UUID  `json:"provider_person_id"`
		RelationshipTypeID *uuid.UUID `json:"relationship_type_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnassignAllPatientsFromProvider(ctx, req.ProviderPersonID, req.RelationshipTypeID)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) TransferPatients(c echo.Context) error {
	var req struct {
		SourcePersonID      uuid.UUID  `json:"source_person_id"`
		DestinationPersonID uuid.UUID  `json:"destination_person_id"`
		RelationshipTypeID  *uuid.UUID `json:"relationship_type_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.TransferAllPatients(ctx, req.SourcePersonID, req.DestinationPersonID, req.RelationshipTypeID)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatients(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	typeID, err := typeQuery(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	patients, err := h.svc.PatientsOfProvider(c.Request().Context(), personID, typeID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) ListPatientRelationships(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	typeID, err := typeQuery(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	rels, err := h.svc.PatientRelationshipsForProvider(c.Request().Context(), personID, typeID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rels)
}

func (h *Handler) ListProviders(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	typeID, err := typeQuery(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	persons, err := h.svc.ProvidersForPatient(c.Request().Context(), personID, typeID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, persons)
}

func (h *Handler) ListProviderRelationships(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	typeID, err := typeQuery(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	rels, err := h.svc.ProviderRelationshipsForPatient(c.Request().Context(), personID, nil, typeID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rels)
}

// -- supervision --

type supervisionRequest struct {
	ProviderPersonID   uuid.UUID `json:"provider_person_id"`
	SupervisorPersonID uuid.UUID `json:"supervisor_person_id"`
	Date               string    `json:"date"`
}

func (h *Handler) AssignSupervisor(c echo.Context) error {
	var req supervisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	var rel *relationship.Relationship
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		rel, err = h.svc.AssignProviderToSupervisor(ctx, req.ProviderPersonID, req.SupervisorPersonID, date)
		return err
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rel)
}

func (h *Handler) UnassignSupervisor(c echo.Context) error {
	var req supervisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnassignProviderFromSupervisor(ctx, req.ProviderPersonID, req.SupervisorPersonID, date)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnassignAllSupervisors(c echo.Context) error {
	var req struct {
		ProviderPersonID uuid.UUID `json:"provider_person_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnassignAllSupervisorsFromProvider(ctx, req.ProviderPersonID)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnassignAllProviders(c echo.Context) error {
	var req struct {
		SupervisorPersonID uuid.UUID `json:"supervisor_person_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnassignAllProvidersFromSupervisor(ctx, req.SupervisorPersonID)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListSupervisors(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	persons, err := h.svc.SupervisorsForProvider(c.Request().Context(), personID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, persons)
}

func (h *Handler) ListSupervisorRelationships(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	rels, err := h.svc.SupervisorRelationshipsForProvider(c.Request().Context(), personID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rels)
}

func (h *Handler) ListSupervisees(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	persons, err := h.svc.SuperviseesForSupervisor(c.Request().Context(), personID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, persons)
}

func (h *Handler) ListSuperviseeRelationships(c echo.Context) error {
	personID, err := personParam(c)
	if err != nil {
		return err
	}
	date, err := dateQuery(c)
	if err != nil {
		return err
	}
	rels, err := h.svc.SuperviseeRelationshipsForSupervisor(c.Request().Context(), personID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rels)
}
