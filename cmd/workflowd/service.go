package main

import (
	"context"
	"fmt"

	"github.com/kbukum/flowengine/api"
	"github.com/kbukum/flowengine/auth"
	"github.com/kbukum/flowengine/bootstrap"
	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/events"
	"github.com/kbukum/flowengine/kafka"
	"github.com/kbukum/flowengine/llm"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/nodes"
	"github.com/kbukum/flowengine/observability"
	"github.com/kbukum/flowengine/redis"
	"github.com/kbukum/flowengine/repository"
	"github.com/kbukum/flowengine/server"
	"github.com/kbukum/flowengine/server/middleware"
	"github.com/kbukum/flowengine/sse"
	"github.com/kbukum/flowengine/workflow"
)

// ledger is what either credit backend provides.
type ledger interface {
	workflow.Ledger
	workflow.UserDirectory
	accountSeeder
}

// service holds the infrastructure components and, after configure, the
// engine built on top of them.
type service struct {
	app *bootstrap.App[*Config]
	cfg *Config
	log *logger.Logger

	db    *database.Component
	redis *redis.Component
	kafka *kafka.Component
	otel  *telemetry

	stream  *sse.Component
	metrics *observability.Metrics

	repos  *repository.Repositories
	ledger ledger
	cache  *redis.WorkflowCache
	engine *workflow.Engine
}

// newService registers infrastructure with app. When serve is set, the
// engine and the HTTP server are wired in configure, after the infrastructure
// has started.
func newService(app *bootstrap.App[*Config], serve bool) (*service, error) {
	cfg := app.Cfg
	s := &service{app: app, cfg: cfg, log: app.Logger.WithComponent(serviceName)}

	if cfg.Tracing.Enabled {
		s.otel = newTelemetry(cfg)
		if err := app.RegisterComponent(s.otel); err != nil {
			return nil, err
		}
	}

	s.db = database.NewComponent(cfg.Database, app.Logger).WithAutoMigrate(repository.Models()...)
	if err := app.RegisterComponent(s.db); err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled {
		s.redis = redis.NewComponent(cfg.Redis, app.Logger)
		if err := app.RegisterComponent(s.redis); err != nil {
			return nil, err
		}
	}
	if cfg.Kafka.Enabled {
		s.kafka = kafka.NewComponent(cfg.Kafka, app.Logger)
		if err := app.RegisterComponent(s.kafka); err != nil {
			return nil, err
		}
	}

	if serve {
		app.OnConfigure(func(ctx context.Context, app *bootstrap.App[*Config]) error {
			return s.configure(ctx)
		})
	}
	return s, nil
}

func (s *service) configure(ctx context.Context) error {
	s.wireStorage()

	report, err := s.seed(ctx)
	if err != nil {
		return err
	}
	s.app.Summary.AddNote("seeded %d workflows, %d node types, %d accounts",
		report.Workflows, report.NodeTypes, report.Accounts)

	if s.cfg.Stream.Enabled {
		s.stream = sse.NewComponent(s.cfg.Stream, "/api/v1/events", s.app.Logger)
	}
	if s.otel != nil {
		m, err := observability.NewMetrics(observability.Meter(serviceName))
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		s.metrics = m
	}
	if err := s.wireEngine(); err != nil {
		return err
	}

	sweeper := s.engine.Sweeper()
	sweep := component.NewPeriodic("reservation-sweeper", s.cfg.Engine.SweepInterval,
		func(ctx context.Context) error {
			_, err := sweeper.Sweep(ctx)
			return err
		}, s.app.Logger)

	srv, err := s.buildServer()
	if err != nil {
		return err
	}
	started := []component.Component{sweep}
	if s.stream != nil {
		started = append(started, s.stream)
	}
	started = append(started, server.NewComponent(srv))
	for _, c := range started {
		if err := s.app.RegisterComponent(c); err != nil {
			return err
		}
	}
	// Starts only the components registered above.
	return s.app.Components.StartAll(ctx)
}

func (s *service) wireStorage() {
	s.repos = repository.New(s.db.DB())
	s.ledger = s.repos.Accounts
	if s.redis == nil {
		return
	}
	client := s.redis.Client()
	if s.cfg.Ledger == LedgerRedis {
		s.ledger = redis.NewLedger(client)
	}
	if s.cfg.WorkflowCacheTTL > 0 {
		s.cache = redis.NewWorkflowCache(client, s.repos.Workflows, s.cfg.WorkflowCacheTTL)
	}
}

func (s *service) seed(ctx context.Context) (seedReport, error) {
	if s.repos == nil {
		s.wireStorage()
	}
	sd := &seeder{
		cfg: s.cfg.Seed,
		rules: dag.Rules{
			StartType:         s.cfg.Engine.StartType,
			SinglePredecessor: s.cfg.Engine.SinglePredecessorTypes,
		},
		workflows: s.repos.Workflows,
		accounts:  s.ledger,
		log:       s.log,
	}
	if s.cache != nil {
		sd.invalidate = s.cache.Invalidate
	}
	return sd.Run(ctx)
}

func (s *service) wireEngine() error {
	var provider llm.Provider
	if s.cfg.LLM.Dialect != "" {
		adapter, err := llm.New(s.cfg.LLM)
		if err != nil {
			return fmt.Errorf("llm: %w", err)
		}
		provider = llm.NewResilientProvider(adapter, s.cfg.LLM.Resilience, s.app.Logger)
	} else {
		s.log.Warn("No LLM dialect configured; llm and classifier nodes will fail validation")
	}

	registry := workflow.NewRegistry(s.app.Logger)
	nodes.RegisterBuiltins(registry, nodes.Dependencies{LLM: provider, Knowledge: s.repos.Knowledge})

	var store workflow.WorkflowStore = s.repos.Workflows
	if s.cache != nil {
		store = s.cache
	}

	publisher := events.Publisher(events.NewLogPublisher(s.app.Logger))
	if s.kafka != nil {
		publisher = events.Multi(publisher, events.NewKafkaPublisher(s.kafka.Producer(), serviceName))
	}
	if s.stream != nil {
		publisher = events.Multi(publisher, sse.NewEventPublisher(s.stream.Hub()))
	}

	opts := []workflow.Option{
		workflow.WithReservations(s.repos.Reservations),
		workflow.WithPublisher(publisher),
		workflow.WithLogger(s.app.Logger),
	}
	if s.metrics != nil {
		opts = append(opts, workflow.WithMetrics(s.metrics))
	}

	engine, err := workflow.NewEngine(s.cfg.Engine, workflow.Dependencies{
		Workflows:  store,
		Executions: s.repos.Executions,
		Ledger:     s.ledger,
		NodeTypes:  s.repos.Workflows,
		Users:      s.ledger,
		Registry:   registry,
	}, opts...)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	s.engine = engine
	return nil
}

func (s *service) buildServer() (*server.Server, error) {
	srv := server.New(s.cfg.Server, s.app.Logger)
	var extra []middleware.Middleware
	if s.otel != nil {
		extra = append(extra, middleware.Tracing(s.metrics))
	}
	srv.ApplyMiddleware(extra...)
	srv.RegisterDefaultEndpoints(s.cfg.Name, s.app.Components.HealthAll)

	authCfg := middleware.AuthConfig{}
	if s.cfg.Auth.Enabled {
		tokens, err := auth.NewTokenService(s.cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		authCfg.Validator = tokens
	} else {
		s.log.Warn("Authentication disabled; callers are identified by the " + middleware.HeaderUserID + " header")
	}

	handler := api.NewHandler(s.engine, s.repos.Executions, s.cfg.API, s.app.Logger)
	if s.stream != nil {
		handler.WithEventStream(s.stream.Hub())
	}
	handler.Register(srv.GinEngine(), middleware.Authenticate(authCfg))
	return srv, nil
}
