package session

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

var detailColumns = []string{
	"session.id", "session.module_id", "session.ue_id", "session.group_name",
	"session.type", "session.salle", "session.date_start", "session.date_end",
	"module.name AS module_name", "ue.name AS ue_name", "session_type.name AS type_name",
}

// Repository handles session persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new session repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ListIDs returns the ids of all stored sessions.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.ListIDs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("session")

	query, args := sb.Build()
	var ids []int64
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list session ids")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list session ids: %v", err)
	}
	return ids, nil
}

// Get returns the session with its module, UE and type names joined in, or
// nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*models.SessionDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.Get")
	defer span.End()

	sb := r.detailBuilder()
	sb.Where(sb.Equal("session.id", id))

	query, args := sb.Build()
	var detail models.SessionDetail
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &detail, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get session")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get session: %v", err)
	}
	return &detail, nil
}

// GetSession returns the bare session row, or nil when absent.
func (r *Repository) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.GetSession")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "module_id", "ue_id", "group_name", "type", "salle", "date_start", "date_end")
	sb.From("session")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var session models.Session
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get session")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get session: %v", err)
	}
	return &session, nil
}

// Insert creates a session with its external id.
func (r *Repository) Insert(ctx context.Context, session models.Session) error {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("session")
	ib.Cols("id", "module_id", "ue_id", "group_name", "type", "salle", "date_start", "date_end")
	ib.Values(session.ID, session.ModuleID, session.UeID, session.GroupName, session.Type, session.Salle, session.DateStart, session.DateEnd)

	query, args := ib.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", session.ID).Error("Failed to insert session")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert session: %v", err)
	}
	return nil
}

// Update rewrites all mutable fields of a session.
func (r *Repository) Update(ctx context.Context, session models.Session) error {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.Update")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("session")
	ub.Set(
		ub.Assign("module_id", session.ModuleID),
		ub.Assign("ue_id", session.UeID),
		ub.Assign("group_name", session.GroupName),
		ub.Assign("type", session.Type),
		ub.Assign("salle", session.Salle),
		ub.Assign("date_start", session.DateStart),
		ub.Assign("date_end", session.DateEnd),
	)
	ub.Where(ub.Equal("id", session.ID))

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", session.ID).Error("Failed to update session")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update session: %v", err)
	}
	return nil
}

// Delete removes a session. Lecturer links go with it via the cascade on
// lectured_by.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("session")
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to delete session")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete session: %v", err)
	}
	return nil
}

// List returns a page of sessions matching the filter, ordered by start
// date, together with the total match count.
func (r *Repository) List(ctx context.Context, filter models.SessionListFilter, page, pageSize int) (*models.SessionListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.List")
	defer span.End()

	count := sqlbuilder.PostgreSQL.NewSelectBuilder()
	count.Select("COUNT(*)")
	count.From("session")
	applyFilter(count, filter)

	query, args := count.Build()
	var total int
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count sessions")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count sessions: %v", err)
	}

	sb := r.detailBuilder()
	applyFilter(sb, filter)
	sb.OrderBy("session.date_start")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var items []models.SessionDetail
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sessions")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list sessions: %v", err)
	}

	return &models.SessionListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// ListUrgent returns upcoming sessions that have no lecturer at all, soonest
// first.
func (r *Repository) ListUrgent(ctx context.Context, after time.Time, limit int) ([]models.SessionDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.ListUrgent")
	defer span.End()

	sb := r.detailBuilder()
	sb.JoinWithOption(sqlbuilder.LeftJoin, "lectured_by", "session.id = lectured_by.session_id")
	sb.Where(
		sb.IsNull("lectured_by.user_username"),
		sb.GreaterEqualThan("session.date_start", after),
	)
	sb.OrderBy("session.date_start")
	sb.Limit(limit)

	query, args := sb.Build()
	var sessions []models.SessionDetail
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &sessions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list urgent sessions")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list urgent sessions: %v", err)
	}
	return sessions, nil
}

// ListUpcomingForUser returns the user's next lectured sessions, soonest
// first.
func (r *Repository) ListUpcomingForUser(ctx context.Context, username string, after time.Time, limit int) ([]models.SessionDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.ListUpcomingForUser")
	defer span.End()

	sb := r.detailBuilder()
	sb.Join("lectured_by", "session.id = lectured_by.session_id")
	sb.Where(
		sb.Equal("lectured_by.user_username", username),
		sb.GreaterEqualThan("session.date_start", after),
	)
	sb.OrderBy("session.date_start")
	sb.Limit(limit)

	query, args := sb.Build()
	var sessions []models.SessionDetail
	if err := database.QueryerFrom(ctx, r.db).SelectContext(ctx, &sessions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("username", username).Error("Failed to list upcoming sessions")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list upcoming sessions: %v", err)
	}
	return sessions, nil
}

// TotalLecturedHours returns the summed duration in hours of all sessions
// the user lectures, past and future.
func (r *Repository) TotalLecturedHours(ctx context.Context, username string) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.TotalLecturedHours")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COALESCE(SUM(EXTRACT(EPOCH FROM (session.date_end - session.date_start))) / 3600, 0)")
	sb.From("session")
	sb.Join("lectured_by", "session.id = lectured_by.session_id")
	sb.Where(sb.Equal("lectured_by.user_username", username))

	query, args := sb.Build()
	var hours float64
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &hours, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("username", username).Error("Failed to sum lectured hours")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to sum lectured hours: %v", err)
	}
	return hours, nil
}

func (r *Repository) detailBuilder() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(detailColumns...)
	sb.From("session")
	sb.Join("module", "module.id = session.module_id")
	sb.Join("ue", "ue.id = session.ue_id")
	sb.Join("session_type", "session_type.id = session.type")
	return sb
}

func applyFilter(sb *sqlbuilder.SelectBuilder, filter models.SessionListFilter) {
	if len(filter.Types) > 0 {
		sb.Where(sb.In("session.type", sqlbuilder.List(filter.Types)))
	}
	if len(filter.ModuleIDs) > 0 {
		sb.Where(sb.In("session.module_id", sqlbuilder.List(filter.ModuleIDs)))
	}
	if len(filter.UeIDs) > 0 {
		sb.Where(sb.In("session.ue_id", sqlbuilder.List(filter.UeIDs)))
	}
	if filter.DateMin != nil {
		sb.Where(sb.GreaterEqualThan("session.date_start", *filter.DateMin))
	}
	if filter.DateMax != nil {
		sb.Where(sb.LessEqualThan("session.date_end", *filter.DateMax))
	}
}
