package home

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tutorlink/internal/repositories/session"
	ctxmiddleware "github.com/Ramsey-B/tutorlink/pkg/context"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

const dashboardLimit = 12

// Register registers the dashboard route
func Register(g *echo.Group) {
	g.GET("", Dashboard)
}

// DashboardResponse is the landing page data: sessions that still need a
// lecturer, the user's next sessions and their total lectured hours.
type DashboardResponse struct {
	UrgentSessions []models.SessionDetail `json:"urgent_sessions"`
	NextSessions   []models.SessionDetail `json:"next_sessions"`
	TotalHours     float64                `json:"total_hours"`
}

// Dashboard returns the acting user's dashboard
func Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "home_handler.Dashboard")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	ctx, sessions, err := ectoinject.GetContext[*session.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	now := time.Now()

	urgent, err := sessions.ListUrgent(ctx, now, dashboardLimit)
	if err != nil {
		return err
	}

	next, err := sessions.ListUpcomingForUser(ctx, username, now, dashboardLimit)
	if err != nil {
		return err
	}

	hours, err := sessions.TotalLecturedHours(ctx, username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, DashboardResponse{
		UrgentSessions: urgent,
		NextSessions:   next,
		TotalHours:     hours,
	})
}
