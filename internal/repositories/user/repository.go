package user

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

// Repository handles user persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new user repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetByUsername returns the user with the given username, or nil when absent.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByUsername")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("username", "surname", "name", "email", "role_id", "admin")
	sb.From(`"user"`)
	sb.Where(sb.Equal("username", username))

	query, args := sb.Build()
	var user models.User
	if err := database.QueryerFrom(ctx, r.db).GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("username", username).Error("Failed to get user")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get user: %v", err)
	}
	return &user, nil
}

// Insert creates a user. Reconciliation calls this for lecturers first seen
// in the feed; profile fields stay empty until the user fills them in.
func (r *Repository) Insert(ctx context.Context, user models.User) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Insert")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(`"user"`)
	ib.Cols("username", "surname", "name", "email", "role_id", "admin")
	ib.Values(user.Username, user.Surname, user.Name, user.Email, user.RoleID, user.Admin)

	query, args := ib.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("username", user.Username).Error("Failed to insert user")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert user: %v", err)
	}
	return nil
}

// UpdateProfile sets the interactively collected profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, username, email, name, surname string, roleID int) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.UpdateProfile")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(`"user"`)
	ub.Set(
		ub.Assign("email", email),
		ub.Assign("name", name),
		ub.Assign("surname", surname),
		ub.Assign("role_id", roleID),
	)
	ub.Where(ub.Equal("username", username))

	query, args := ub.Build()
	if _, err := database.QueryerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("username", username).Error("Failed to update user profile")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update user: %v", err)
	}
	return nil
}
