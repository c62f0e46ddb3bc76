package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/feed"
	"github.com/Ramsey-B/tutorlink/pkg/models"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if !t.rolledBack {
		t.committed = true
	}
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type lecturerKey struct {
	sessionID int64
	username  string
}

// fakeStore is an in-memory implementation of every store the engine uses.
type fakeStore struct {
	tx *fakeTx

	roles        map[string]int
	sessionTypes map[string]string
	modules      map[string]models.Module
	ues          map[string]models.Ue
	users        map[string]models.User
	sessions     map[int64]models.Session
	lecturers    map[lecturerKey]bool

	nextModuleID int
	nextUeID     int

	insertSessionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:        map[string]int{},
		sessionTypes: map[string]string{},
		modules:      map[string]models.Module{},
		ues:          map[string]models.Ue{},
		users:        map[string]models.User{},
		sessions:     map[int64]models.Session{},
		lecturers:    map[lecturerKey]bool{},
		nextModuleID: 1,
		nextUeID:     1,
	}
}

func (s *fakeStore) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	s.tx = &fakeTx{}
	return ctx, s.tx, nil
}

func (s *fakeStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	id, ok := s.roles[name]
	if !ok {
		return nil, nil
	}
	return &models.Role{ID: id, Name: name}, nil
}

func (s *fakeStore) Insert(ctx context.Context, role models.Role) error {
	s.roles[role.Name] = role.ID
	return nil
}

func (s *fakeStore) UpdateID(ctx context.Context, name string, id int) error {
	s.roles[name] = id
	return nil
}

type fakeSessionTypes struct{ s *fakeStore }

func (f fakeSessionTypes) Get(ctx context.Context, id string) (*models.SessionType, error) {
	name, ok := f.s.sessionTypes[id]
	if !ok {
		return nil, nil
	}
	return &models.SessionType{ID: id, Name: name}, nil
}

func (f fakeSessionTypes) Insert(ctx context.Context, sessionType models.SessionType) error {
	f.s.sessionTypes[sessionType.ID] = sessionType.Name
	return nil
}

func (f fakeSessionTypes) UpdateName(ctx context.Context, id, name string) error {
	f.s.sessionTypes[id] = name
	return nil
}

type fakeModules struct{ s *fakeStore }

func (f fakeModules) GetByName(ctx context.Context, name string) (*models.Module, error) {
	m, ok := f.s.modules[name]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f fakeModules) Insert(ctx context.Context, name, label string) (int, error) {
	id := f.s.nextModuleID
	f.s.nextModuleID++
	f.s.modules[name] = models.Module{ID: id, Name: name, Label: label}
	return id, nil
}

func (f fakeModules) UpdateLabel(ctx context.Context, id int, label string) error {
	for name, m := range f.s.modules {
		if m.ID == id {
			m.Label = label
			f.s.modules[name] = m
		}
	}
	return nil
}

type fakeUes struct{ s *fakeStore }

func (f fakeUes) GetByName(ctx context.Context, name string) (*models.Ue, error) {
	u, ok := f.s.ues[name]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f fakeUes) Insert(ctx context.Context, name, label string) (int, error) {
	id := f.s.nextUeID
	f.s.nextUeID++
	f.s.ues[name] = models.Ue{ID: id, Name: name, Label: label}
	return id, nil
}

func (f fakeUes) UpdateLabel(ctx context.Context, id int, label string) error {
	for name, u := range f.s.ues {
		if u.ID == id {
			u.Label = label
			f.s.ues[name] = u
		}
	}
	return nil
}

type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := f.s.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f fakeUsers) Insert(ctx context.Context, user models.User) error {
	f.s.users[user.Username] = user
	return nil
}

type fakeSessions struct{ s *fakeStore }

func (f fakeSessions) ListIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.s.sessions))
	for id := range f.s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f fakeSessions) Get(ctx context.Context, id int64) (*models.SessionDetail, error) {
	session, ok := f.s.sessions[id]
	if !ok {
		return nil, nil
	}

	detail := &models.SessionDetail{Session: session}
	for name, m := range f.s.modules {
		if m.ID == session.ModuleID {
			detail.ModuleName = name
		}
	}
	for name, u := range f.s.ues {
		if u.ID == session.UeID {
			detail.UeName = name
		}
	}
	return detail, nil
}

func (f fakeSessions) Insert(ctx context.Context, session models.Session) error {
	if f.s.insertSessionErr != nil {
		return f.s.insertSessionErr
	}
	f.s.sessions[session.ID] = session
	return nil
}

func (f fakeSessions) Update(ctx context.Context, session models.Session) error {
	f.s.sessions[session.ID] = session
	return nil
}

func (f fakeSessions) Delete(ctx context.Context, id int64) error {
	delete(f.s.sessions, id)
	for key := range f.s.lecturers {
		if key.sessionID == id {
			delete(f.s.lecturers, key)
		}
	}
	return nil
}

type fakeLecturers struct{ s *fakeStore }

func (f fakeLecturers) Get(ctx context.Context, sessionID int64, username string) (*models.LecturedBy, error) {
	synapse, ok := f.s.lecturers[lecturerKey{sessionID, username}]
	if !ok {
		return nil, nil
	}
	return &models.LecturedBy{SessionID: sessionID, UserUsername: username, Synapse: synapse}, nil
}

func (f fakeLecturers) Insert(ctx context.Context, link models.LecturedBy) error {
	f.s.lecturers[lecturerKey{link.SessionID, link.UserUsername}] = link.Synapse
	return nil
}

func (f fakeLecturers) Confirm(ctx context.Context, sessionID int64, username string) error {
	f.s.lecturers[lecturerKey{sessionID, username}] = true
	return nil
}

func newTestEngine(store *fakeStore) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(
		logger,
		store,
		store,
		fakeSessionTypes{store},
		fakeModules{store},
		fakeUes{store},
		fakeUsers{store},
		fakeSessions{store},
		fakeLecturers{store},
	)
}

func testFeed(ids ...int64) *feed.Feed {
	f := &feed.Feed{
		SessionTypes: map[string]string{"CM": "Cours magistral"},
		Modules:      map[string]string{"M111": "Analyse"},
		Ues:          map[string]string{"UE11": "Mathematiques"},
		Lecturers: []feed.Identity{
			{Surname: "FERTIER", Firstname: "Audrey", Username: "afertier"},
		},
	}
	for _, id := range ids {
		f.Records = append(f.Records, feed.Record{
			ID:        id,
			Module:    "M111",
			Ue:        "UE11",
			Lecturers: []string{"afertier"},
			GroupName: "G1",
			Type:      "CM",
			Salles:    "B203",
			DateStart: time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC),
			DateEnd:   time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC),
		})
	}
	return f
}

func TestEngine_Reconcile_NewSessions(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	result, err := engine.Reconcile(context.Background(), testFeed(101, 102, 103))
	require.NoError(t, err)

	assert.Equal(t, 3, result.New)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 0, result.NotChanged)
	assert.Equal(t, 0, result.Deleted)
	assert.Empty(t, result.Messages)
	assert.Equal(t, []int64{101, 102, 103}, result.AddedIDs)

	assert.True(t, store.tx.committed)
	assert.Len(t, store.sessions, 3)
	assert.True(t, store.lecturers[lecturerKey{101, "afertier"}])
	assert.Equal(t, map[string]int{"Autre": -1, "Professeur": 0, "Doctorant": 1, "Vacataire": 2}, store.roles)

	user, ok := store.users["afertier"]
	require.True(t, ok)
	assert.Equal(t, "FERTIER", user.Surname)
	assert.Equal(t, "Audrey", user.Name)
}

func TestEngine_Reconcile_Idempotent(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	_, err := engine.Reconcile(context.Background(), testFeed(101, 102, 103))
	require.NoError(t, err)

	result, err := engine.Reconcile(context.Background(), testFeed(101, 102, 103))
	require.NoError(t, err)

	assert.Equal(t, 0, result.New)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 3, result.NotChanged)
	assert.Equal(t, 0, result.Deleted)
	assert.Empty(t, result.Messages)
}

func TestEngine_Reconcile_FieldChange(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	_, err := engine.Reconcile(context.Background(), testFeed(101, 102, 103))
	require.NoError(t, err)

	f := testFeed(101, 102, 103)
	f.Records[0].Salles = "B117"

	result, err := engine.Reconcile(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 0, result.New)
	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 2, result.NotChanged)
	assert.Equal(t, 0, result.Deleted)
	assert.Equal(t, []string{"Session 101 has changed salle from B203 to B117."}, result.Messages)
	assert.Equal(t, []int64{101}, result.UpdatedIDs)
	assert.Equal(t, "B117", store.sessions[101].Salle)
}

func TestEngine_Reconcile_Deletion(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	_, err := engine.Reconcile(context.Background(), testFeed(101, 102, 103))
	require.NoError(t, err)

	result, err := engine.Reconcile(context.Background(), testFeed(102, 103))
	require.NoError(t, err)

	assert.Equal(t, 0, result.New)
	assert.Equal(t, 2, result.NotChanged)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []int64{101}, result.DeletedIDs)

	_, exists := store.sessions[101]
	assert.False(t, exists)
	_, linked := store.lecturers[lecturerKey{101, "afertier"}]
	assert.False(t, linked)
}

func TestEngine_Reconcile_NewLecturerCountsAsModified(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	_, err := engine.Reconcile(context.Background(), testFeed(101))
	require.NoError(t, err)

	f := testFeed(101)
	f.Records[0].Lecturers = []string{"afertier", "jdupont"}
	f.Lecturers = append(f.Lecturers, feed.Identity{Surname: "DUPONT", Firstname: "Jean", Username: "jdupont"})

	result, err := engine.Reconcile(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 0, result.NotChanged)
	assert.Equal(t, []string{"Session 101 has new lecturer jdupont."}, result.Messages)
	assert.True(t, store.lecturers[lecturerKey{101, "jdupont"}])
}

func TestEngine_Reconcile_UpgradesInteractiveRegistration(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	_, err := engine.Reconcile(context.Background(), testFeed(101))
	require.NoError(t, err)

	// Interactive registration on the same session, then the feed reasserts
	// the pairing.
	f := testFeed(101)
	f.Records[0].Lecturers = []string{"afertier", "jdupont"}
	f.Lecturers = append(f.Lecturers, feed.Identity{Surname: "DUPONT", Firstname: "Jean", Username: "jdupont"})
	store.lecturers[lecturerKey{101, "jdupont"}] = false
	store.users["jdupont"] = models.User{Username: "jdupont", Surname: "DUPONT", Name: "Jean"}

	result, err := engine.Reconcile(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 1, result.NotChanged)
	assert.Empty(t, result.Messages)
	assert.True(t, store.lecturers[lecturerKey{101, "jdupont"}])
}

func TestEngine_Reconcile_DoesNotOverwriteExistingUser(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	email := "audrey@example.org"
	store.users["afertier"] = models.User{Username: "afertier", Surname: "Custom", Name: "Profile", Email: &email}

	_, err := engine.Reconcile(context.Background(), testFeed(101))
	require.NoError(t, err)

	user := store.users["afertier"]
	assert.Equal(t, "Custom", user.Surname)
	assert.Equal(t, "Profile", user.Name)
	require.NotNil(t, user.Email)
	assert.Equal(t, email, *user.Email)
}

func TestEngine_Reconcile_CorrectsRoleDrift(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	store.roles["Professeur"] = 7

	_, err := engine.Reconcile(context.Background(), testFeed(101))
	require.NoError(t, err)

	assert.Equal(t, 0, store.roles["Professeur"])
}

func TestEngine_Reconcile_ReferentialInconsistency(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	f := testFeed(101)
	f.Records[0].Module = "M999"

	_, err := engine.Reconcile(context.Background(), f)
	require.ErrorIs(t, err, ErrReferentialInconsistency)
	assert.False(t, store.tx.committed)
	assert.True(t, store.tx.rolledBack)
}

func TestEngine_Reconcile_StorageErrorAborts(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	boom := errors.New("connection reset")
	store.insertSessionErr = boom

	_, err := engine.Reconcile(context.Background(), testFeed(101))
	require.ErrorIs(t, err, boom)
	assert.False(t, store.tx.committed)
	assert.True(t, store.tx.rolledBack)
}
