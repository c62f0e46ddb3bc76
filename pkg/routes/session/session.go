package session

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tutorlink/internal/repositories/lecturedby"
	"github.com/Ramsey-B/tutorlink/internal/repositories/module"
	"github.com/Ramsey-B/tutorlink/internal/repositories/session"
	"github.com/Ramsey-B/tutorlink/internal/repositories/sessiontype"
	"github.com/Ramsey-B/tutorlink/internal/repositories/ue"
	"github.com/Ramsey-B/tutorlink/pkg/assignment"
	ctxmiddleware "github.com/Ramsey-B/tutorlink/pkg/context"
	"github.com/Ramsey-B/tutorlink/pkg/metrics"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Register registers session routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/filters", Filters)
	g.GET("/:id/lecturers", Lecturers)
	g.POST("/register", RegisterLecturer)
	g.POST("/unregister", UnregisterLecturer)
}

// FiltersResponse holds the selectable filter values of the session listing.
type FiltersResponse struct {
	SessionTypes []models.SessionType `json:"session_types"`
	Modules      []models.Module      `json:"modules"`
	Ues          []models.Ue          `json:"ues"`
}

// Filters returns the selectable filter values
func Filters(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.Filters")
	defer span.End()

	ctx, sessionTypes, err := ectoinject.GetContext[*sessiontype.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	types, err := sessionTypes.List(ctx)
	if err != nil {
		return err
	}

	ctx, modules, err := ectoinject.GetContext[*module.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	allModules, err := modules.List(ctx)
	if err != nil {
		return err
	}

	ctx, ues, err := ectoinject.GetContext[*ue.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	allUes, err := ues.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, FiltersResponse{
		SessionTypes: types,
		Modules:      allModules,
		Ues:          allUes,
	})
}

// List returns a page of sessions matching the query filters
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 12
	}

	filter := models.SessionListFilter{
		Types: c.QueryParams()["type"],
	}

	for _, raw := range c.QueryParams()["module"] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid module id %q", raw)
		}
		filter.ModuleIDs = append(filter.ModuleIDs, id)
	}
	for _, raw := range c.QueryParams()["ue"] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid ue id %q", raw)
		}
		filter.UeIDs = append(filter.UeIDs, id)
	}

	if raw := c.QueryParam("date_min"); raw != "" {
		dateMin, err := time.Parse(dateLayout, raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid date format for min date")
		}
		filter.DateMin = &dateMin
	}
	if raw := c.QueryParam("date_max"); raw != "" {
		dateMax, err := time.Parse(dateLayout, raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid date format for max date")
		}
		filter.DateMax = &dateMax
	}

	ctx, repo, err := ectoinject.GetContext[*session.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Lecturers returns the lecturer links of a session
func Lecturers(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.Lecturers")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	ctx, sessions, err := ectoinject.GetContext[*session.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	detail, err := sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if detail == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "the session with id %d does not exist", id)
	}

	ctx, lecturers, err := ectoinject.GetContext[*lecturedby.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	links, err := lecturers.ListForSession(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session":   detail,
		"lecturers": links,
	})
}

// RegistrationRequest is the body of register and unregister calls. An empty
// username targets the acting user.
type RegistrationRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Username  string `json:"username"`
}

// RegistrationResponse reports the outcome message.
type RegistrationResponse struct {
	Message string `json:"message"`
}

// RegisterLecturer registers a lecturer on a session
func RegisterLecturer(c echo.Context) error {
	return registration(c, "register")
}

// UnregisterLecturer removes a lecturer from a session
func UnregisterLecturer(c echo.Context) error {
	return registration(c, "unregister")
}

func registration(c echo.Context, operation string) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler."+operation)
	defer span.End()

	actingUsername := ctxmiddleware.GetUsername(ctx)
	if actingUsername == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	var req RegistrationRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*assignment.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get assignment service")
	}

	var message string
	if operation == "register" {
		message, err = service.Register(ctx, actingUsername, req.SessionID, req.Username)
	} else {
		message, err = service.Unregister(ctx, actingUsername, req.SessionID, req.Username)
	}
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(operation, "error").Inc()
		return mapAssignmentError(err)
	}

	metrics.RegistrationsTotal.WithLabelValues(operation, "success").Inc()
	return c.JSON(http.StatusOK, RegistrationResponse{Message: message})
}

func mapAssignmentError(err error) error {
	switch {
	case errors.Is(err, assignment.ErrInvalidSessionID):
		return httperror.NewHTTPError(http.StatusBadRequest, "Invalid session id.")
	case errors.Is(err, assignment.ErrSessionNotFound):
		return httperror.NewHTTPErrorf(http.StatusNotFound, "%v", err)
	case errors.Is(err, assignment.ErrInvalidUsername):
		return httperror.NewHTTPError(http.StatusBadRequest, "Invalid username.")
	case errors.Is(err, assignment.ErrUnauthorized):
		return httperror.NewHTTPError(http.StatusForbidden, "You are not allowed to act on other users.")
	case errors.Is(err, assignment.ErrAlreadyRegistered):
		return httperror.NewHTTPErrorf(http.StatusConflict, "%v", err)
	case errors.Is(err, assignment.ErrNotRegistered):
		return httperror.NewHTTPErrorf(http.StatusConflict, "%v", err)
	default:
		return err
	}
}
