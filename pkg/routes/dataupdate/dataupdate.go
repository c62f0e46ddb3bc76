package dataupdate

import (
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tutorlink/internal/repositories/user"
	ctxmiddleware "github.com/Ramsey-B/tutorlink/pkg/context"
	"github.com/Ramsey-B/tutorlink/pkg/events"
	"github.com/Ramsey-B/tutorlink/pkg/feed"
	"github.com/Ramsey-B/tutorlink/pkg/metrics"
	"github.com/Ramsey-B/tutorlink/pkg/reconcile"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

// Register registers the feed import route
func Register(g *echo.Group) {
	g.POST("/update", Update)
}

// UpdateResponse is the import result returned to the administrator.
type UpdateResponse struct {
	New        int      `json:"new"`
	Modified   int      `json:"modified"`
	NotChanged int      `json:"not_changed"`
	Deleted    int      `json:"deleted"`
	Messages   []string `json:"messages"`
	Summary    string   `json:"summary"`
}

// Update imports a scheduling feed export. Admin only; the whole import is
// one transaction, so a malformed feed leaves storage untouched.
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataupdate_handler.Update")
	defer span.End()

	username := ctxmiddleware.GetUsername(ctx)
	if username == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "username is required")
	}

	ctx, users, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	actor, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if actor == nil || !actor.Admin {
		return httperror.NewHTTPError(http.StatusForbidden, "admin privileges are required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "no file selected")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()

	parsed, err := feed.Parse(file)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("parse_error").Inc()
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "%v", err)
	}

	ctx, engine, err := ectoinject.GetContext[*reconcile.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconciliation engine")
	}

	start := time.Now()
	result, err := engine.Reconcile(ctx, parsed)
	metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, reconcile.ErrReferentialInconsistency) {
			metrics.ReconciliationsTotal.WithLabelValues("inconsistent").Inc()
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "%v", err)
		}
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.ReconciliationsTotal.WithLabelValues("success").Inc()
	metrics.ObserveReconciliation(result.New, result.Modified, result.NotChanged, result.Deleted)

	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err != nil {
		ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
		logger.WithContext(ctx).WithError(err).Error("Failed to get event emitter, skipping session events")
	} else {
		emitter.EmitResult(ctx, result)
	}

	return c.JSON(http.StatusOK, UpdateResponse{
		New:        result.New,
		Modified:   result.Modified,
		NotChanged: result.NotChanged,
		Deleted:    result.Deleted,
		Messages:   result.Messages,
		Summary:    "Data updated: " + result.Summary(),
	})
}
