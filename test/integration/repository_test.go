package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/tutorlink/internal/repositories/lecturedby"
	"github.com/Ramsey-B/tutorlink/internal/repositories/managedby"
	"github.com/Ramsey-B/tutorlink/internal/repositories/module"
	"github.com/Ramsey-B/tutorlink/internal/repositories/role"
	"github.com/Ramsey-B/tutorlink/internal/repositories/session"
	"github.com/Ramsey-B/tutorlink/internal/repositories/sessiontype"
	"github.com/Ramsey-B/tutorlink/internal/repositories/ue"
	"github.com/Ramsey-B/tutorlink/internal/repositories/user"
	"github.com/Ramsey-B/tutorlink/pkg/assignment"
	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/feed"
	"github.com/Ramsey-B/tutorlink/pkg/models"
	"github.com/Ramsey-B/tutorlink/pkg/reconcile"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		t.Skip("DB_HOST not set, skipping integration tests")
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "tutorlink"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewInstance(db, getTestLogger())
}

func cleanTables(t *testing.T, db database.DB) {
	ctx := context.Background()
	for _, table := range []string{"favorite", "managed_by", "lectured_by", "session", `"user"`, "ue", "module", "session_type", "role"} {
		_, err := db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
}

func newTestEngine(db database.DB) *reconcile.Engine {
	logger := getTestLogger()
	return reconcile.NewEngine(
		logger,
		db,
		role.NewRepository(db, logger),
		sessiontype.NewRepository(db, logger),
		module.NewRepository(db, logger),
		ue.NewRepository(db, logger),
		user.NewRepository(db, logger),
		session.NewRepository(db, logger),
		lecturedby.NewRepository(db, logger),
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

func TestReconcile_Postgres(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	engine := newTestEngine(db)

	result, err := engine.Reconcile(ctx, testFeed(101, 102, 103))
	require.NoError(t, err)
	assert.Equal(t, 3, result.New)

	t.Run("second run is idempotent", func(t *testing.T) {
		result, err := engine.Reconcile(ctx, testFeed(101, 102, 103))
		require.NoError(t, err)
		assert.Equal(t, 0, result.New)
		assert.Equal(t, 3, result.NotChanged)
	})

	t.Run("session detail joins names", func(t *testing.T) {
		sessions := session.NewRepository(db, getTestLogger())
		detail, err := sessions.Get(ctx, 101)
		require.NoError(t, err)
		require.NotNil(t, detail)
		assert.Equal(t, "M111", detail.ModuleName)
		assert.Equal(t, "UE11", detail.UeName)
		assert.Equal(t, "Cours magistral", detail.TypeName)
	})

	t.Run("deletion cascades lecturer links", func(t *testing.T) {
		result, err := engine.Reconcile(ctx, testFeed(102, 103))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Deleted)

		lecturers := lecturedby.NewRepository(db, getTestLogger())
		link, err := lecturers.Get(ctx, 101, "afertier")
		require.NoError(t, err)
		assert.Nil(t, link)
	})
}

func TestAssignment_Postgres(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	logger := getTestLogger()

	engine := newTestEngine(db)
	_, err := engine.Reconcile(ctx, testFeed(201))
	require.NoError(t, err)

	users := user.NewRepository(db, logger)
	require.NoError(t, users.Insert(ctx, models.User{Username: "jdupont", Surname: "DUPONT", Name: "Jean"}))

	service := assignment.NewService(
		logger,
		db,
		session.NewRepository(db, logger),
		users,
		lecturedby.NewRepository(db, logger),
		managedby.NewRepository(db, logger),
	)

	msg, err := service.Register(ctx, "jdupont", "201", "")
	require.NoError(t, err)
	assert.Equal(t, "You have successfully registered for the session.", msg)

	t.Run("duplicate registration is rejected", func(t *testing.T) {
		_, err := service.Register(ctx, "jdupont", "201", "")
		assert.ErrorIs(t, err, assignment.ErrAlreadyRegistered)
	})

	t.Run("interactive row upgrades on reconcile", func(t *testing.T) {
		f := testFeed(201)
		f.Records[0].Lecturers = []string{"afertier", "jdupont"}
		f.Lecturers = append(f.Lecturers, feed.Identity{Surname: "DUPONT", Firstname: "Jean", Username: "jdupont"})

		result, err := engine.Reconcile(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, 1, result.NotChanged)

		lecturers := lecturedby.NewRepository(db, logger)
		link, err := lecturers.Get(ctx, 201, "jdupont")
		require.NoError(t, err)
		require.NotNil(t, link)
		assert.True(t, link.Synapse)
	})

	t.Run("unregister removes the row", func(t *testing.T) {
		_, err := service.Unregister(ctx, "jdupont", "201", "")
		require.NoError(t, err)

		lecturers := lecturedby.NewRepository(db, logger)
		link, err := lecturers.Get(ctx, 201, "jdupont")
		require.NoError(t, err)
		assert.Nil(t, link)
	})
}
