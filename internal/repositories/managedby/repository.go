package managedby

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

// Repository handles module-manager persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new managed-by repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Manages reports whether the user manages the module.
func (r *Repository) Manages(ctx context.Context, username string, moduleID int) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "managedby.Repository.Manages")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("managed_by")
	sb.Where(
		sb.Equal("user_username", username),
		sb.Equal("module_id", moduleID),
	)

	query, args := sb.Build()
	var count int
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"username": username, "module_id": moduleID}).Error("Failed to check module manager")
		return false, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to check module manager: %v", err)
	}
	return count > 0, nil
}

// ListForUser returns the modules the user manages.
func (r *Repository) ListForUser(ctx context.Context, username string) ([]models.ManagedBy, error) {
	ctx, span := tracing.StartSpan(ctx, "managedby.Repository.ListForUser")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("module_id", "user_username")
	sb.From("managed_by")
	sb.Where(sb.Equal("user_username", username))
	sb.OrderBy("module_id")

	query, args := sb.Build()
	var links []models.ManagedBy
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("username", username).Error("Failed to list managed modules")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list managed modules: %v", err)
	}
	return links, nil
}
