package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/config"
	"github.com/kbukum/flowengine/logger"
)

// Config is what App needs from a service config. Embedding
// config.ServiceConfig by value provides all three methods; the embedding
// type overrides ApplyDefaults and Validate to cover its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

const defaultGracefulTimeout = 15 * time.Second

// App runs one service process. C is the typed service config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	summaryOut      io.Writer
	gracefulTimeout time.Duration

	onStart     []Hook
	onConfigure []func(ctx context.Context, app *App[C]) error
	onReady     []Hook
	onStop      []Hook
}

// NewApp applies defaults to cfg and validates it. Without WithLogger the
// global logger is initialized from the config's logging section.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	if o.logger == nil {
		logger.Init(&base.Logging, base.Name)
		o.logger = logger.GetGlobalLogger()
	}
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(o.logger),
		Logger:          o.logger,
		Summary:         NewSummary(base.Name, base.Version),
		summaryOut:      os.Stdout,
		gracefulTimeout: defaultGracefulTimeout,
	}
	if o.summaryOut != nil {
		app.summaryOut = o.summaryOut
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	return app, nil
}

func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers business wiring. It runs after components and
// OnStart hooks, with the started registry available on app.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck lists every component that is not healthy, as
// name=status(message).
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := fmt.Sprintf("%s=%s", h.Name, h.Status)
		if h.Message != "" {
			entry += "(" + h.Message + ")"
		}
		bad = append(bad, entry)
	}
	if len(bad) == 0 {
		return nil
	}
	return fmt.Errorf("unhealthy components: [%s]", strings.Join(bad, " "))
}

// Run starts the service and blocks until SIGINT, SIGTERM or ctx is done.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	<-sigCtx.Done()
	stop()
	if ctx.Err() != nil {
		a.Logger.Info("Context canceled, shutting down")
	} else {
		a.Logger.Info("Received shutdown signal")
	}
	return a.stop()
}

// RunTask runs a finite task inside the same lifecycle as Run. A signal
// cancels the task's context.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return errors.Join(task(taskCtx), a.stop())
}

// Shutdown stops hooks and components when the caller manages the
// lifecycle itself. Shutdown is bounded by the graceful timeout, not ctx.
func (a *App[C]) Shutdown(_ context.Context) error {
	return a.stop()
}

type phase struct {
	name string
	run  func(ctx context.Context) error
}

func (a *App[C]) phases() []phase {
	return []phase{
		{"onStart hook", func(ctx context.Context) error { return runHooks(ctx, a.onStart) }},
		{"configuration", func(ctx context.Context) error {
			for _, fn := range a.onConfigure {
				if err := fn(ctx, a); err != nil {
					return err
				}
			}
			return nil
		}},
		{"ready check", func(ctx context.Context) error {
			if err := a.ReadyCheck(ctx); err != nil {
				a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready_check", err))
			}
			return nil
		}},
		{"onReady hook", func(ctx context.Context) error { return runHooks(ctx, a.onReady) }},
	}
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	for _, p := range a.phases() {
		if err := p.run(ctx); err != nil {
			// Unwind whatever already started.
			return errors.Join(fmt.Errorf("%s failed: %w", p.name, err), a.stop())
		}
	}

	a.Summary.SetStartupDuration(time.Since(began))
	a.Summary.Display(ctx, a.summaryOut, a.Components)
	return nil
}

func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	hookErr := runHooks(ctx, a.onStop)
	if hookErr != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("on_stop", hookErr))
	}
	stopErr := a.Components.StopAll(ctx)
	if stopErr != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop_components", stopErr))
	}
	a.Logger.Info("Application shutdown complete")
	return errors.Join(hookErr, stopErr)
}
