package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/tutorlink/config"
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
	"github.com/Ramsey-B/tutorlink/pkg/database"
	"github.com/Ramsey-B/tutorlink/pkg/events"
	"github.com/Ramsey-B/tutorlink/pkg/kafka"
	"github.com/Ramsey-B/tutorlink/pkg/middleware"
	"github.com/Ramsey-B/tutorlink/pkg/reconcile"
	"github.com/Ramsey-B/tutorlink/pkg/routes/dataupdate"
	"github.com/Ramsey-B/tutorlink/pkg/routes/health"
	homeroute "github.com/Ramsey-B/tutorlink/pkg/routes/home"
	profileroute "github.com/Ramsey-B/tutorlink/pkg/routes/profile"
	sessionroute "github.com/Ramsey-B/tutorlink/pkg/routes/session"
	"github.com/Ramsey-B/tutorlink/pkg/tracing"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("service exited with error")
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func run(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	tracing.SetTracer(tracerProvider.Tracer(cfg.AppName))
	defer tracerProvider.Shutdown(ctx)

	db, err := database.Connect(ctx, database.ConnectionConfig{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	if err := migrations.Migrate(cfg.DatabaseName, db); err != nil {
		return err
	}

	roleRepo := role.NewRepository(db, logger)
	sessionTypeRepo := sessiontype.NewRepository(db, logger)
	moduleRepo := module.NewRepository(db, logger)
	ueRepo := ue.NewRepository(db, logger)
	userRepo := user.NewRepository(db, logger)
	sessionRepo := session.NewRepository(db, logger)
	lecturedByRepo := lecturedby.NewRepository(db, logger)
	managedByRepo := managedby.NewRepository(db, logger)
	favoriteRepo := favorite.NewRepository(db, logger)

	engine := reconcile.NewEngine(logger, db, roleRepo, sessionTypeRepo, moduleRepo, ueRepo, userRepo, sessionRepo, lecturedByRepo)
	assignments := assignment.NewService(logger, db, sessionRepo, userRepo, lecturedByRepo, managedByRepo)

	var producer *kafka.Producer
	if cfg.KafkaProducerEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}

	var publisher events.SessionPublisher
	if producer != nil {
		publisher = producer
	}
	emitter := events.NewEmitter(publisher, logger)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}
	if err := registerDependencies(container, logger, roleRepo, sessionTypeRepo, moduleRepo, ueRepo, userRepo, sessionRepo, lecturedByRepo, managedByRepo, favoriteRepo, engine, assignments, emitter); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	homeroute.Register(api.Group("/home"))
	sessionroute.Register(api.Group("/sessions"))
	profileroute.Register(api.Group("/profile"))
	dataupdate.Register(api.Group("/data"))

	if cfg.MetricsEnabled {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}

	go func() {
		checker.SetReady(true)
		logger.Infof("starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func registerDependencies(
	container ectocontainer.DIContainer,
	logger ectologger.Logger,
	roleRepo *role.Repository,
	sessionTypeRepo *sessiontype.Repository,
	moduleRepo *module.Repository,
	ueRepo *ue.Repository,
	userRepo *user.Repository,
	sessionRepo *session.Repository,
	lecturedByRepo *lecturedby.Repository,
	managedByRepo *managedby.Repository,
	favoriteRepo *favorite.Repository,
	engine *reconcile.Engine,
	assignments *assignment.Service,
	emitter *events.Emitter,
) error {
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*role.Repository](container, roleRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*sessiontype.Repository](container, sessionTypeRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*module.Repository](container, moduleRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*ue.Repository](container, ueRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*user.Repository](container, userRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*session.Repository](container, sessionRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*lecturedby.Repository](container, lecturedByRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*managedby.Repository](container, managedByRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*favorite.Repository](container, favoriteRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reconcile.Engine](container, engine); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*assignment.Service](container, assignments); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*events.Emitter](container, emitter)
}
