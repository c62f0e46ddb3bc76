package lecturedby

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

// Repository handles lecturer-link persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new lectured-by repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Get returns the link for (session, user), or nil when absent.
func (r *Repository) Get(ctx context.Context, sessionID int64, username string) (*models.LecturedBy, error) {
	ctx, span := tracing.StartSpan(ctx, "lecturedby.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("session_id", "user_username", "synapse")
	sb.From("lectured_by")
	sb.Where(
		sb.Equal("session_id", sessionID),
		sb.Equal("user_username", username),
	)

	query, args := sb.Build()
	var link models.LecturedBy
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &link, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"session_id": sessionID, "username": username}).Error("Failed to get lecturer link")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get lecturer link: %v", err)
	}
	return &link, nil
}

// ListForSession returns all lecturer usernames of a session.
func (r *Repository) ListForSession(ctx context.Context, sessionID int64) ([]models.LecturedBy, error) {
	ctx, span := tracing.StartSpan(ctx, "lecturedby.Repository.ListForSession")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("session_id", "user_username", "synapse")
	sb.From("lectured_by")
	sb.Where(sb.Equal("session_id", sessionID))
	sb.OrderBy("user_username")

	query, args := sb.Build()
	var links []models.LecturedBy
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("session_id", sessionID).Error("Failed to list lecturer links")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list lecturer links: %v", err)
	}
	return links, nil
}

// Insert creates a lecturer link.
func (r *Repository) Insert(ctx context.Context, link models.LecturedBy) error {
	ctx, span := tracing.StartSpan(ctx, "lecturedby.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("lectured_by")
	ib.Cols("session_id", "user_username", "synapse")
	ib.Values(link.SessionID, link.UserUsername, link.Synapse)

	query, args := ib.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"session_id": link.SessionID, "username": link.UserUsername}).Error("Failed to insert lecturer link")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert lecturer link: %v", err)
	}
	return nil
}

// Confirm sets synapse=true on an existing link.
func (r *Repository) Confirm(ctx context.Context, sessionID int64, username string) error {
	ctx, span := tracing.StartSpan(ctx, "lecturedby.Repository.Confirm")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("lectured_by")
	ub.Set(ub.Assign("synapse", true))
	ub.Where(
		ub.Equal("session_id", sessionID),
		ub.Equal("user_username", username),
	)

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"session_id": sessionID, "username": username}).Error("Failed to confirm lecturer link")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to confirm lecturer link: %v", err)
	}
	return nil
}

// Delete removes a lecturer link regardless of its synapse flag.
func (r *Repository) Delete(ctx context.Context, sessionID int64, username string) error {
	ctx, span := tracing.StartSpan(ctx, "lecturedby.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("lectured_by")
	db.Where(
		db.Equal("session_id", sessionID),
		db.Equal("user_username", username),
	)

	query, args := db.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"session_id": sessionID, "username": username}).Error("Failed to delete lecturer link")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete lecturer link: %v", err)
	}
	return nil
}
