// Package assignment implements interactive lecturer registration on
// sessions, with the authorization rules for acting on other users.
package assignment

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

// TxStarter begins the short transaction each operation runs in.
type TxStarter interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// SessionStore is the session access the service needs.
type SessionStore interface {
	GetSession(ctx context.Context, id int64) (*models.Session, error)
}

// UserStore is the user access the service needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// LecturerStore is the lectured-by access the service needs. Rows inserted
// here always carry synapse=false; only reconciliation sets the flag.
type LecturerStore interface {
	Get(ctx context.Context, sessionID int64, username string) (*models.LecturedBy, error)
	Insert(ctx context.Context, link models.LecturedBy) error
	Delete(ctx context.Context, sessionID int64, username string) error
}

// ManagerStore answers whether a user manages a module.
type ManagerStore interface {
	Manages(ctx context.Context, username string, moduleID int) (bool, error)
}

// Service handles lecturer registration and unregistration.
type Service struct {
	logger    ectologger.Logger
	db        TxStarter
	sessions  SessionStore
	users     UserStore
	lecturers LecturerStore
	managers  ManagerStore
}

// NewService creates a new assignment service.
func NewService(
	logger ectologger.Logger,
	db TxStarter,
	sessions SessionStore,
	users UserStore,
	lecturers LecturerStore,
	managers ManagerStore,
) *Service {
	return &Service{
		logger:    logger,
		db:        db,
		sessions:  sessions,
		users:     users,
		lecturers: lecturers,
		managers:  managers,
	}
}

// Register registers targetUsername as a lecturer on the session. An empty
// target means the acting user registers themselves. Acting on another user
// requires the actor to be an admin or to manage the session's module.
func (s *Service) Register(ctx context.Context, actingUsername, sessionID, targetUsername string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "assignment.Service.Register")
	defer span.End()

	ctx, tx, err := s.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	session, target, err := s.resolve(ctx, actingUsername, sessionID, targetUsername)
	if err != nil {
		return "", err
	}

	existing, err := s.lecturers.Get(ctx, session.ID, target.Username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyRegistered, target.Username)
	}

	link := models.LecturedBy{
		SessionID:    session.ID,
		UserUsername: target.Username,
		Synapse:      false,
	}
	if err := s.lecturers.Insert(ctx, link); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": session.ID,
		"username":   target.Username,
	}).Info("lecturer registered")

	if target.Username == actingUsername {
		return "You have successfully registered for the session.", nil
	}
	return fmt.Sprintf("%s has successfully been registered for the session.", target.Username), nil
}

// Unregister removes targetUsername from the session's lecturer list. The
// row is removed regardless of its synapse flag; the next reconciliation
// will restore a feed-asserted registration.
func (s *Service) Unregister(ctx context.Context, actingUsername, sessionID, targetUsername string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "assignment.Service.Unregister")
	defer span.End()

	ctx, tx, err := s.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	session, target, err := s.resolve(ctx, actingUsername, sessionID, targetUsername)
	if err != nil {
		return "", err
	}

	existing, err := s.lecturers.Get(ctx, session.ID, target.Username)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, target.Username)
	}

	if err := s.lecturers.Delete(ctx, session.ID, target.Username); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": session.ID,
		"username":   target.Username,
	}).Info("lecturer unregistered")

	if target.Username == actingUsername {
		return "You have successfully unregistered from the session.", nil
	}
	return fmt.Sprintf("%s has successfully been unregistered from the session.", target.Username), nil
}

// resolve validates the session id and target username and enforces the
// authorization rule for acting on another user.
func (s *Service) resolve(ctx context.Context, actingUsername, sessionID, targetUsername string) (*models.Session, *models.User, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, fmt.Errorf("%w: id %d", ErrSessionNotFound, id)
	}

	if targetUsername == "" {
		targetUsername = actingUsername
	}

	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidUsername, targetUsername)
	}

	if target.Username != actingUsername {
		if err := s.authorize(ctx, actingUsername, session.ModuleID); err != nil {
			return nil, nil, err
		}
	}

	return session, target, nil
}

func (s *Service) authorize(ctx context.Context, actingUsername string, moduleID int) error {
	actor, err := s.users.GetByUsername(ctx, actingUsername)
	if err != nil {
		return err
	}
	if actor == nil {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, actingUsername)
	}
	if actor.Admin {
		return nil
	}

	manages, err := s.managers.Manages(ctx, actingUsername, moduleID)
	if err != nil {
		return err
	}
	if !manages {
		return ErrUnauthorized
	}
	return nil
}
