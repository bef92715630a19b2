package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/caregraph/caregraph/internal/domain/person"
	"github.com/caregraph/caregraph/internal/domain/role"
	"github.com/caregraph/caregraph/internal/platform/auth"
	"github.com/caregraph/caregraph/internal/platform/db"
	"github.com/caregraph/caregraph/pkg/pagination"
)

type Handler struct {
	svc  *Service
	pool *pgxpool.Pool
}

func NewHandler(svc *Service, pool *pgxpool.Pool) *Handler {
	return &Handler{svc: svc, pool: pool}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "provider-admin", "clinician"))
	read.GET("/providers/:personID", h.GetProvider)
	read.GET("/providers/:personID/roles", h.ListRoles)
	read.GET("/providers/:personID/supervisable-roles", h.ListSupervisableRoles)
	read.GET("/providers/:personID/can-supervise/:superviseeID", h.CanSupervise)
	read.GET("/providers/by-role/:roleID", h.ListByRole)
	read.GET("/providers/by-relationship-type/:typeID", h.ListByRelationshipType)
	read.GET("/providers/by-supervisee-role/:roleID", h.ListBySuperviseeRole)

	write := api.Group("", auth.RequireRole("admin", "provider-admin"))
	write.POST("/providers", h.AssignRole)
	write.POST("/providers/:personID/roles/:roleID/unassign", h.UnassignRole)
	write.DELETE("/providers/:personID/roles/:roleID", h.PurgeRole)
}

func httpError(err error) error {
	var notProvider *NotProviderError
	switch {
	case errors.As(err, &notProvider):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, role.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, role.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func personParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid person id")
	}
	return id, nil
}

func (h *Handler) GetProvider(c echo.Context) error {
	personID, err := personParam(c, "personID")
	if err != nil {
		return err
	}
	includeRetired := c.QueryParam("include_retired") == "true"
	records, err := h.svc.Records(c.Request().Context(), personID, includeRetired)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"person_id":   personID,
		"is_provider": len(records) > 0,
		"records":     records,
	})
}

func (h *Handler) ListRoles(c echo.Context) error {
	personID, err := personParam(c, "personID")
	if err != nil {
		return err
	}
	roles, err := h.svc.Roles(c.Request().Context(), personID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) ListSupervisableRoles(c echo.Context) error {
	personID, err := personParam(c, "personID")
	if err != nil {
		return err
	}
	roles, err := h.svc.RolesThatCanSupervise(c.Request().Context(), personID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) CanSupervise(c echo.Context) error {
	supervisorID, err := personParam(c, "personID")
	if err != nil {
		return err
	}
	superviseeID, err := personParam(c, "superviseeID")
	if err != nil {
		return err
	}
	ok, err := h.svc.CanSupervise(c.Request().Context(), supervisorID, superviseeID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"can_supervise": ok})
}

func pagePersons(c echo.Context, persons []*person.Person) error {
	pg := pagination.FromContext(c)
	total := len(persons)
	if pg.Offset >= total {
		persons = []*person.Person{}
	} else {
		end := pg.Offset + pg.Limit
		if end > total {
			end = total
		}
		persons = persons[pg.Offset:end]
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(persons, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByRole(c echo.Context) error {
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role id")
	}
	persons, err := h.svc.PersonsByRole(c.Request().Context(), roleID)
	if err != nil {
		return httpError(err)
	}
	return pagePersons(c, persons)
}

func (h *Handler) ListByRelationshipType(c echo.Context) error {
	typeID, err := uuid.Parse(c.Param("typeID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid relationship type id")
	}
	persons, err := h.svc.PersonsByRelationshipType(c.Request().Context(), typeID)
	if err != nil {
		return httpError(err)
	}
	return pagePersons(c, persons)
}

func (h *Handler) ListBySuperviseeRole(c echo.Context) error {
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role id")
	}
	persons, err := h.svc.PersonsBySuperviseeRole(c.Request().Context(), roleID)
	if err != nil {
		return httpError(err)
	}
	return pagePersons(c, persons)
}

func (h *Handler) AssignRole(c echo.Context) error {
	var req struct {
		PersonID   uuid.UUID `json:"person_id"`
		RoleID     uuid.UUID `json:"role_id"`
		Identifier *string   `json:"identifier"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var rec *Provider
	err := db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		rec, err = h.svc.AssignRole(ctx, req.PersonID, req.RoleID, req.Identifier)
		return err
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) UnassignRole(c echo.Context) error {
	personID, err := personParam(c, "personID")
	if err != nil {
		return err
	}
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role id")
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnassignRole(ctx, personID, roleID, req.Reason)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PurgeRole(c echo.Context) error {
	personID, err := personParam(c, "personID")
	if err != nil {
		return err
	}
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role id")
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.PurgeRole(ctx, personID, roleID)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
