package ue

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

// Repository handles UE persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new UE repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetByName returns the UE with the given name, or nil when absent.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.Ue, error) {
	ctx, span := tracing.StartSpan(ctx, "ue.Repository.GetByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "label")
	sb.From("ue")
	sb.Where(sb.Equal("name", name))

	query, args := sb.Build()
	var ue models.Ue
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &ue, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to get ue")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get ue: %v", err)
	}
	return &ue, nil
}

// List returns all UEs ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Ue, error) {
	ctx, span := tracing.StartSpan(ctx, "ue.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "label")
	sb.From("ue")
	sb.OrderBy("name")

	query, args := sb.Build()
	var ues []models.Ue
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &ues, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ues")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list ues: %v", err)
	}
	return ues, nil
}

// Insert creates a UE and returns its generated id.
func (r *Repository) Insert(ctx context.Context, name, label string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ue.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("ue")
	ib.Cols("name", "label")
	ib.Values(name, label)
	ib.Returning("id")

	query, args := ib.Build()
	var id int
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to insert ue")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert ue: %v", err)
	}
	return id, nil
}

// UpdateLabel updates the display label of a UE.
func (r *Repository) UpdateLabel(ctx context.Context, id int, label string) error {
	ctx, span := tracing.StartSpan(ctx, "ue.Repository.UpdateLabel")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("ue")
	ub.Set(ub.Assign("label", label))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update ue label")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update ue: %v", err)
	}
	return nil
}
