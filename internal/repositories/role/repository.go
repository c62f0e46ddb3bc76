package role

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

// Repository handles role persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new role repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetByName returns the role with the given name, or nil when absent.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "role.Repository.GetByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("role")
	sb.Where(sb.Equal("name", name))

	query, args := sb.Build()
	var role models.Role
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &role, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to get role")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get role: %v", err)
	}
	return &role, nil
}

// GetByID returns the role with the given id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "role.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("role")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var role models.Role
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &role, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get role")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get role: %v", err)
	}
	return &role, nil
}

// List returns all roles ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "role.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("role")
	sb.OrderBy("id")

	query, args := sb.Build()
	var roles []models.Role
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &roles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list roles")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list roles: %v", err)
	}
	return roles, nil
}

// Insert creates a role with an explicit id.
func (r *Repository) Insert(ctx context.Context, role models.Role) error {
	ctx, span := tracing.StartSpan(ctx, "role.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("role")
	ib.Cols("id", "name")
	ib.Values(role.ID, role.Name)

	query, args := ib.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", role.Name).Error("Failed to insert role")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert role: %v", err)
	}
	return nil
}

// UpdateID corrects a role id that drifted from the fixed contract.
func (r *Repository) UpdateID(ctx context.Context, name string, id int) error {
	ctx, span := tracing.StartSpan(ctx, "role.Repository.UpdateID")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("role")
	ub.Set(ub.Assign("id", id))
	ub.Where(ub.Equal("name", name))

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to update role id")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update role: %v", err)
	}
	return nil
}
