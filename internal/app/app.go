// Package app assembles the long-lived pieces of a bilancio process: the
// record store, the optional event publisher and the services built on them.
package app

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

// App is the explicit application context handed to commands and the HTTP
// server. Nothing in it is global.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Store  storage.Store

	// Publisher is nil when AMQP is not configured
	Publisher services.EventPublisher

	Income   *services.IncomeService
	Expenses *services.ExpenseService
	Summary  *services.SummaryService

	closers []func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	factory backend.Factory
}

// WithFactory replaces the backend factory.
func WithFactory(f backend.Factory) Option {
	return func(o *options) { o.factory = f }
}

// New opens the configured backend (running migrations as part of opening
// it), connects to the broker when AMQP_URL is set and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	o := options{factory: backend.NewFactory(logger)}
	for _, opt := range opts {
		opt(&o)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := o.factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", bcfg.Type, err)
	}

	a := &App{
		Config: cfg,
		Logger: logger.WithComponent(log.ComponentApp),
		Store:  res.Store,
	}
	if res.Cleanup != nil {
		a.closers = append(a.closers, res.Cleanup)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			a.Logger.Warn("Failed to initialize AMQP client, continuing without events",
				log.FieldError, err)
		} else {
			a.Publisher = client
			a.closers = append(a.closers, client.Close)
			a.Logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	a.Income = services.NewIncomeService(a.Store, a.Publisher)
	a.Expenses = services.NewExpenseService(a.Store, a.Publisher)
	a.Summary = services.NewSummaryService(a.Store)

	a.Logger.Info("Application initialized",
		log.FieldBackend, bcfg.Type.String(),
		"events_enabled", a.Publisher != nil)
	return a, nil
}

// Ready reports whether the record store answers.
func (a *App) Ready(ctx context.Context) error {
	return a.Store.Ping(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
