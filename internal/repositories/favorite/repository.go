package favorite

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

// Repository handles favorite-module persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new favorite repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ListForUser returns the modules the user follows, ordered by name.
func (r *Repository) ListForUser(ctx context.Context, username string) ([]models.Module, error) {
	ctx, span := tracing.StartSpan(ctx, "favorite.Repository.ListForUser")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("module.id", "module.name", "module.label")
	sb.From("favorite")
	sb.Join("module", "module.id = favorite.module_id")
	sb.Where(sb.Equal("favorite.user_username", username))
	sb.OrderBy("module.name")

	query, args := sb.Build()
	var modules []models.Module
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &modules, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("username", username).Error("Failed to list favorites")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list favorites: %v", err)
	}
	return modules, nil
}

// Add marks a module as a favorite. Adding twice is a no-op.
func (r *Repository) Add(ctx context.Context, username string, moduleID int) error {
	ctx, span := tracing.StartSpan(ctx, "favorite.Repository.Add")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto("favorite").
		Cols("module_id", "user_username").
		Values(moduleID, username).
		OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"username": username, "module_id": moduleID}).Error("Failed to add favorite")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to add favorite: %v", err)
	}
	return nil
}

// Remove unmarks a favorite module.
func (r *Repository) Remove(ctx context.Context, username string, moduleID int) error {
	ctx, span := tracing.StartSpan(ctx, "favorite.Repository.Remove")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("favorite")
	db.Where(
		db.Equal("module_id", moduleID),
		db.Equal("user_username", username),
	)

	query, args := db.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"username": username, "module_id": moduleID}).Error("Failed to remove favorite")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to remove favorite: %v", err)
	}
	return nil
}
