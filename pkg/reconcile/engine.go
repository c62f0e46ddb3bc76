// Package reconcile implements the diff and merge of a parsed scheduling
// feed against the stored session data.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tutorlink/pkg/feed"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

const messageTimeLayout = "2006-01-02 15:04:05"

// Engine applies a parsed feed to storage inside a single transaction.
type Engine struct {
	logger       ectologger.Logger
	db           TxStarter
	roles        RoleStore
	sessionTypes SessionTypeStore
	modules      ModuleStore
	ues          UeStore
	users        UserStore
	sessions     SessionStore
	lecturers    LecturerStore
}

// NewEngine creates a new reconciliation engine.
func NewEngine(
	logger ectologger.Logger,
	db TxStarter,
	roles RoleStore,
	sessionTypes SessionTypeStore,
	modules ModuleStore,
	ues UeStore,
	users UserStore,
	sessions SessionStore,
	lecturers LecturerStore,
) *Engine {
	return &Engine{
		logger:       logger,
		db:           db,
		roles:        roles,
		sessionTypes: sessionTypes,
		modules:      modules,
		ues:          ues,
		users:        users,
		sessions:     sessions,
		lecturers:    lecturers,
	}
}

// Reconcile diffs the feed against storage and applies the minimal set of
// mutations. All reads and writes run in one transaction; any error before
// commit leaves storage untouched. Sessions absent from the feed are deleted
// together with their lecturer links, including interactive ones.
func (e *Engine) Reconcile(ctx context.Context, f *feed.Feed) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.Reconcile")
	defer span.End()

	log := e.logger.WithContext(ctx).WithField("record_count", len(f.Records))
	log.Info("starting reconciliation")

	ctx, tx, err := e.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := e.syncRoles(ctx); err != nil {
		return nil, err
	}
	if err := e.syncSessionTypes(ctx, f.SessionTypes); err != nil {
		return nil, err
	}

	moduleIDs, err := e.syncModules(ctx, f.Modules)
	if err != nil {
		return nil, err
	}
	ueIDs, err := e.syncUes(ctx, f.Ues)
	if err != nil {
		return nil, err
	}
	if err := e.syncUsers(ctx, f.Lecturers); err != nil {
		return nil, err
	}

	result, err := e.syncSessions(ctx, f, moduleIDs, ueIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"new":         result.New,
		"modified":    result.Modified,
		"not_changed": result.NotChanged,
		"deleted":     result.Deleted,
	}).Info("reconciliation complete")

	return result, nil
}

// syncRoles keeps the fixed role table in place. Role ids are part of the
// external contract; a drifted id is corrected in place.
func (e *Engine) syncRoles(ctx context.Context) error {
	for _, role := range models.DefaultRoles {
		existing, err := e.roles.GetByName(ctx, role.Name)
		if err != nil {
			return err
		}

		if existing == nil {
			if err := e.roles.Insert(ctx, role); err != nil {
				return err
			}
			continue
		}

		if existing.ID != role.ID {
			if err := e.roles.UpdateID(ctx, role.Name, role.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) syncSessionTypes(ctx context.Context, labels map[string]string) error {
	for id, name := range labels {
		existing, err := e.sessionTypes.Get(ctx, id)
		if err != nil {
			return err
		}

		if existing == nil {
			if err := e.sessionTypes.Insert(ctx, models.SessionType{ID: id, Name: name}); err != nil {
				return err
			}
			continue
		}

		if existing.Name != name {
			if err := e.sessionTypes.UpdateName(ctx, id, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncModules upserts the module reference table and returns the name to id
// mapping the session diff resolves against.
func (e *Engine) syncModules(ctx context.Context, labels map[string]string) (map[string]int, error) {
	ids := make(map[string]int, len(labels))

	for name, label := range labels {
		existing, err := e.modules.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}

		if existing == nil {
			id, err := e.modules.Insert(ctx, name, label)
			if err != nil {
				return nil, err
			}
			ids[name] = id
			continue
		}

		if existing.Label != label {
			if err := e.modules.UpdateLabel(ctx, existing.ID, label); err != nil {
				return nil, err
			}
		}
		ids[name] = existing.ID
	}

	return ids, nil
}

func (e *Engine) syncUes(ctx context.Context, labels map[string]string) (map[string]int, error) {
	ids := make(map[string]int, len(labels))

	for name, label := range labels {
		existing, err := e.ues.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}

		if existing == nil {
			id, err := e.ues.Insert(ctx, name, label)
			if err != nil {
				return nil, err
			}
			ids[name] = id
			continue
		}

		if existing.Label != label {
			if err := e.ues.UpdateLabel(ctx, existing.ID, label); err != nil {
				return nil, err
			}
		}
		ids[name] = existing.ID
	}

	return ids, nil
}

// syncUsers creates users first seen as lecturers. Existing users are left
// alone: profile fields collected interactively are authoritative over
// feed-derived placeholders.
func (e *Engine) syncUsers(ctx context.Context, lecturers []feed.Identity) error {
	for _, lecturer := range lecturers {
		existing, err := e.users.GetByUsername(ctx, lecturer.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		user := models.User{
			Username: lecturer.Username,
			Surname:  lecturer.Surname,
			Name:     lecturer.Firstname,
		}
		if err := e.users.Insert(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) syncSessions(ctx context.Context, f *feed.Feed, moduleIDs, ueIDs map[string]int) (*Result, error) {
	storedIDs, err := e.sessions.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	stored := make(map[int64]bool, len(storedIDs))
	for _, id := range storedIDs {
		stored[id] = true
	}

	inFeed := make(map[int64]bool, len(f.Records))
	for _, record := range f.Records {
		inFeed[record.ID] = true
	}

	result := &Result{}

	// Adds and updates follow feed order; deletions are sorted by id.
	for _, record := range f.Records {
		moduleID, ok := moduleIDs[record.Module]
		if !ok {
			return nil, fmt.Errorf("%w: session %d references module %q", ErrReferentialInconsistency, record.ID, record.Module)
		}
		ueID, ok := ueIDs[record.Ue]
		if !ok {
			return nil, fmt.Errorf("%w: session %d references UE %q", ErrReferentialInconsistency, record.ID, record.Ue)
		}

		if stored[record.ID] {
			if err := e.updateSession(ctx, record, moduleID, ueID, result); err != nil {
				return nil, err
			}
		} else {
			if err := e.addSession(ctx, record, moduleID, ueID, result); err != nil {
				return nil, err
			}
		}
	}

	var toDelete []int64
	for _, id := range storedIDs {
		if !inFeed[id] {
			toDelete = append(toDelete, id)
		}
	}
	sort.Slice(toDelete, func(i, j int) bool { return toDelete[i] < toDelete[j] })

	for _, id := range toDelete {
		if err := e.sessions.Delete(ctx, id); err != nil {
			return nil, err
		}
		result.Deleted++
		result.DeletedIDs = append(result.DeletedIDs, id)
	}

	return result, nil
}

func (e *Engine) addSession(ctx context.Context, record feed.Record, moduleID, ueID int, result *Result) error {
	session := models.Session{
		ID:        record.ID,
		ModuleID:  moduleID,
		UeID:      ueID,
		GroupName: record.GroupName,
		Type:      record.Type,
		Salle:     record.Salles,
		DateStart: record.DateStart,
		DateEnd:   record.DateEnd,
	}
	if err := e.sessions.Insert(ctx, session); err != nil {
		return err
	}

	for _, username := range record.Lecturers {
		link := models.LecturedBy{
			SessionID:    record.ID,
			UserUsername: username,
			Synapse:      true,
		}
		if err := e.lecturers.Insert(ctx, link); err != nil {
			return err
		}
	}

	result.New++
	result.AddedIDs = append(result.AddedIDs, record.ID)
	return nil
}

// updateSession compares the stored session field by field against the feed
// record. Feed lecturers missing from storage are added with synapse=true;
// lecturers present in both are reconfirmed on the existing row without
// counting as a change. Lecturers absent from the feed are never removed.
func (e *Engine) updateSession(ctx context.Context, record feed.Record, moduleID, ueID int, result *Result) error {
	current, err := e.sessions.Get(ctx, record.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("reconcile: session %d listed but not loadable", record.ID)
	}

	var messages []string
	changed := false

	next := current.Session

	if current.ModuleName != record.Module {
		messages = append(messages, fmt.Sprintf("Session %d has changed module from %s to %s.", record.ID, current.ModuleName, record.Module))
		next.ModuleID = moduleID
		changed = true
	}
	if current.UeName != record.Ue {
		messages = append(messages, fmt.Sprintf("Session %d has changed UE from %s to %s.", record.ID, current.UeName, record.Ue))
		next.UeID = ueID
		changed = true
	}
	if current.GroupName != record.GroupName {
		messages = append(messages, fmt.Sprintf("Session %d has changed group from %s to %s.", record.ID, current.GroupName, record.GroupName))
		next.GroupName = record.GroupName
		changed = true
	}
	if current.Type != record.Type {
		messages = append(messages, fmt.Sprintf("Session %d has changed type from %s to %s.", record.ID, current.Type, record.Type))
		next.Type = record.Type
		changed = true
	}
	if current.Salle != record.Salles {
		messages = append(messages, fmt.Sprintf("Session %d has changed salle from %s to %s.", record.ID, current.Salle, record.Salles))
		next.Salle = record.Salles
		changed = true
	}
	if !current.DateStart.Equal(record.DateStart) {
		messages = append(messages, fmt.Sprintf("Session %d has changed start date from %s to %s.",
			record.ID, current.DateStart.Format(messageTimeLayout), record.DateStart.Format(messageTimeLayout)))
		next.DateStart = record.DateStart
		changed = true
	}
	if !current.DateEnd.Equal(record.DateEnd) {
		messages = append(messages, fmt.Sprintf("Session %d has changed end date from %s to %s.",
			record.ID, current.DateEnd.Format(messageTimeLayout), record.DateEnd.Format(messageTimeLayout)))
		next.DateEnd = record.DateEnd
		changed = true
	}

	if changed {
		if err := e.sessions.Update(ctx, next); err != nil {
			return err
		}
	}

	for _, username := range record.Lecturers {
		link, err := e.lecturers.Get(ctx, record.ID, username)
		if err != nil {
			return err
		}

		if link == nil {
			insert := models.LecturedBy{
				SessionID:    record.ID,
				UserUsername: username,
				Synapse:      true,
			}
			if err := e.lecturers.Insert(ctx, insert); err != nil {
				return err
			}
			messages = append(messages, fmt.Sprintf("Session %d has new lecturer %s.", record.ID, username))
			changed = true
			continue
		}

		// Upgrading an interactive registration to a confirmed one does
		// not count the session as modified.
		if !link.Synapse {
			if err := e.lecturers.Confirm(ctx, record.ID, username); err != nil {
				return err
			}
		}
	}

	if changed {
		result.Modified++
		result.UpdatedIDs = append(result.UpdatedIDs, record.ID)
		result.Messages = append(result.Messages, messages...)
	} else {
		result.NotChanged++
	}

	return nil
}
