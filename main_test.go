package main

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tutorlink/internal/repositories/favorite"
	"github.com/Ramsey-B/tutorlink/internal/repositories/lecturedby"
	"github.com/Ramsey-B/tutorlink/internal/repositories/managedby"
	"github.com/Ramsey-B/tutorlink/internal/repositories/module"
	"github.com/Ramsey-B/tutorlink/internal/repositories/role"
	"github.com/Ramsey-B/tutorlink/internal/repositories/session"
	"github.com/Ramsey-B/tutorlink/internal/repositories/sessiontype"
	"github.com/Ramsey-B/tutorlink/internal/repositories/ue"
	"github.com/Ramsey-B/tutorlink/internal/repositories/user"
	"github.com/Ramsey-B/tutorlink/pkg/assignment"
	"github.com/Ramsey-B/tutorlink/pkg/events"
	"github.com/Ramsey-B/tutorlink/pkg/reconcile"
)

func TestRegisterDependencies(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	container, err := ectoinject.NewDIDefaultContainer()
	require.NoError(t, err)

	roleRepo := role.NewRepository(nil, logger)
	sessionTypeRepo := sessiontype.NewRepository(nil, logger)
	moduleRepo := module.NewRepository(nil, logger)
	ueRepo := ue.NewRepository(nil, logger)
	userRepo := user.NewRepository(nil, logger)
	sessionRepo := session.NewRepository(nil, logger)
	lecturedByRepo := lecturedby.NewRepository(nil, logger)
	managedByRepo := managedby.NewRepository(nil, logger)
	favoriteRepo := favorite.NewRepository(nil, logger)
	engine := reconcile.NewEngine(logger, nil, roleRepo, sessionTypeRepo, moduleRepo, ueRepo, userRepo, sessionRepo, lecturedByRepo)
	assignments := assignment.NewService(logger, nil, sessionRepo, userRepo, lecturedByRepo, managedByRepo)
	emitter := events.NewEmitter(nil, logger)

	err = registerDependencies(container, logger, roleRepo, sessionTypeRepo, moduleRepo, ueRepo, userRepo, sessionRepo, lecturedByRepo, managedByRepo, favoriteRepo, engine, assignments, emitter)
	require.NoError(t, err)

	ctx := context.Background()

	// handlers resolve against the default container
	ctx, gotEngine, err := ectoinject.GetContext[*reconcile.Engine](ctx)
	require.NoError(t, err)
	assert.Same(t, engine, gotEngine)

	ctx, gotService, err := ectoinject.GetContext[*assignment.Service](ctx)
	require.NoError(t, err)
	assert.Same(t, assignments, gotService)

	ctx, gotSessions, err := ectoinject.GetContext[*session.Repository](ctx)
	require.NoError(t, err)
	assert.Same(t, sessionRepo, gotSessions)

	ctx, gotEmitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	require.NoError(t, err)
	assert.Same(t, emitter, gotEmitter)

	_, gotLogger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	require.NoError(t, err)
	assert.NotNil(t, gotLogger)
}
