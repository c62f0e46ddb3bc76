package sessiontype

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

// Repository handles session-type persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new session-type repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Get returns the session type with the given code, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*models.SessionType, error) {
	ctx, span := tracing.StartSpan(ctx, "sessiontype.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("session_type")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var sessionType models.SessionType
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &sessionType, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get session type")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get session type: %v", err)
	}
	return &sessionType, nil
}

// List returns all session types ordered by code.
func (r *Repository) List(ctx context.Context) ([]models.SessionType, error) {
	ctx, span := tracing.StartSpan(ctx, "sessiontype.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("session_type")
	sb.OrderBy("id")

	query, args := sb.Build()
	var sessionTypes []models.SessionType
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &sessionTypes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list session types")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list session types: %v", err)
	}
	return sessionTypes, nil
}

// Insert creates a session type.
func (r *Repository) Insert(ctx context.Context, sessionType models.SessionType) error {
	ctx, span := tracing.StartSpan(ctx, "sessiontype.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("session_type")
	ib.Cols("id", "name")
	ib.Values(sessionType.ID, sessionType.Name)

	query, args := ib.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", sessionType.ID).Error("Failed to insert session type")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert session type: %v", err)
	}
	return nil
}

// UpdateName updates the display label of a session type.
func (r *Repository) UpdateName(ctx context.Context, id, name string) error {
	ctx, span := tracing.StartSpan(ctx, "sessiontype.Repository.UpdateName")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("session_type")
	ub.Set(ub.Assign("name", name))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update session type")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update session type: %v", err)
	}
	return nil
}
