package module

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

// Repository handles module persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new module repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetByName returns the module with the given name, or nil when absent.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.Module, error) {
	ctx, span := tracing.StartSpan(ctx, "module.Repository.GetByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "label")
	sb.From("module")
	sb.Where(sb.Equal("name", name))

	query, args := sb.Build()
	var module models.Module
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &module, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to get module")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get module: %v", err)
	}
	return &module, nil
}

// List returns all modules ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Module, error) {
	ctx, span := tracing.StartSpan(ctx, "module.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "label")
	sb.From("module")
	sb.OrderBy("name")

	query, args := sb.Build()
	var modules []models.Module
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &modules, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list modules")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list modules: %v", err)
	}
	return modules, nil
}

// Insert creates a module and returns its generated id.
func (r *Repository) Insert(ctx context.Context, name, label string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "module.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("module")
	ib.Cols("name", "label")
	ib.Values(name, label)
	ib.Returning("id")

	query, args := ib.Build()
	var id int
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to insert module")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert module: %v", err)
	}
	return id, nil
}

// UpdateLabel updates the display label of a module.
func (r *Repository) UpdateLabel(ctx context.Context, id int, label string) error {
	ctx, span := tracing.StartSpan(ctx, "module.Repository.UpdateLabel")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("module")
	ub.Set(ub.Assign("label", label))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update module label")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update module: %v", err)
	}
	return nil
}
