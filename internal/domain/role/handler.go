package role

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

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
	read.GET("/roles", h.ListRoles)
	read.GET("/roles/:id", h.GetRole)
	read.GET("/roles/:id/supervisors", h.ListSupervisorRoles)
	read.GET("/roles/by-relationship-type/:typeID", h.ListRolesByRelationshipType)
	read.GET("/relationship-types", h.ListRelationshipTypes)

	write := api.Group("", auth.RequireRole("admin", "provider-admin"))
	write.POST("/roles", h.CreateRole)
	write.PUT("/roles/:id", h.UpdateRole)
	write.POST("/roles/:id/retire", h.RetireRole)
	write.POST("/roles/:id/unretire", h.UnretireRole)
	write.DELETE("/roles/:id", h.PurgeRole)
}

func httpError(err error) error {
	var inUse *InUseError
	switch {
	case errors.As(err, &inUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListRoles(c echo.Context) error {
	includeRetired := c.QueryParam("include_retired") == "true"
	roles, err := h.svc.AllRoles(c.Request().Context(), includeRetired)
	if err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	total := len(roles)
	roles = pageRoles(roles, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(roles, total, pg.Limit, pg.Offset))
}

func pageRoles(roles []*Role, pg pagination.Params) []*Role {
	if pg.Offset >= len(roles) {
		return []*Role{}
	}
	end := pg.Offset + pg.Limit
	if end > len(roles) {
		end = len(roles)
	}
	return roles[pg.Offset:end]
}

func (h *Handler) GetRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ro, err := h.svc.Role(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ro)
}

func (h *Handler) ListSupervisorRoles(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	roles, err := h.svc.RolesBySupervisee(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) ListRolesByRelationshipType(c echo.Context) error {
	typeID, err := uuid.Parse(c.Param("typeID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid relationship type id")
	}
	roles, err := h.svc.RolesByRelationshipType(c.Request().Context(), typeID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) ListRelationshipTypes(c echo.Context) error {
	includeRetired := c.QueryParam("include_retired") == "true"
	types, err := h.svc.AllRelationshipTypes(c.Request().Context(), includeRetired)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, types)
}

func (h *Handler) CreateRole(c echo.Context) error {
	var ro Role
	if err := c.Bind(&ro); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ro.ID = uuid.Nil
	err := db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.SaveRole(ctx, &ro)
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ro)
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var ro Role
	if err := c.Bind(&ro); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ro.ID = id
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		if _, err := h.svc.Role(ctx, id); err != nil {
			return err
		}
		return h.svc.SaveRole(ctx, &ro)
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ro)
}

func (h *Handler) RetireRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.RetireRole(ctx, id, req.Reason)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnretireRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.UnretireRole(ctx, id)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PurgeRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err = db.InTx(c.Request().Context(), h.pool, func(ctx context.Context) error {
		return h.svc.PurgeRole(ctx, id)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
