// Package app wires the configuration into a running service: persistence
// gateway, engine, observability sinks, notifier and the HTTP API.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetops/dispatchd/api/trips"
	"github.com/fleetops/dispatchd/config"
	coreaudit "github.com/fleetops/dispatchd/core/audit"
	"github.com/fleetops/dispatchd/core/engine"
	coremetrics "github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/core/refs"
	corestore "github.com/fleetops/dispatchd/core/store"
	infraaudit "github.com/fleetops/dispatchd/infra/audit"
	"github.com/fleetops/dispatchd/infra/logger"
	"github.com/fleetops/dispatchd/infra/metrics"
	"github.com/fleetops/dispatchd/infra/notify"
	infrastore "github.com/fleetops/dispatchd/infra/store"
	"github.com/fleetops/dispatchd/internal/eventbus"
)

// Service owns the engine and its collaborators.
type Service struct {
	Engine *engine.Engine
	Store  corestore.Store

	bus         *eventbus.Bus[engine.TransitionEvent]
	notifier    *notify.PahoNotifier
	log         logger.Logger
	apiAddr     string
	promEnabled bool
	promAddr    string
	audit       coreaudit.Store
}

// NewStore builds the persistence gateway selected by the configuration.
func NewStore(cfg config.StorageConfig) (corestore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return infrastore.NewMemoryStore(), nil
	case "sqlite":
		return infrastore.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %s", cfg.Backend)
	}
}

// NewAuditStore builds the audit store selected by the configuration.
func NewAuditStore(cfg config.AuditConfig) (coreaudit.Store, error) {
	switch cfg.Backend {
	case "jsonl":
		return infraaudit.NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return infraaudit.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit backend %s", cfg.Backend)
	}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	st, err := NewStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.MetricsSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	alloc, err := refs.FromStore(context.Background(), st)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New[engine.TransitionEvent]()
	eng, err := engine.New(st, alloc, logger.New("engine"), sink, bus, cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	auditStore, err := NewAuditStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	eng.SetAuditStore(auditStore)

	svc := &Service{
		Engine:      eng,
		Store:       st,
		bus:         bus,
		log:         logg,
		apiAddr:     cfg.API.Addr,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
		audit:       auditStore,
	}
	if cfg.Notify.Enabled {
		n, err := notify.NewPahoNotifier(cfg.Notify)
		if err != nil {
			return nil, fmt.Errorf("notifier: %w", err)
		}
		eng.SetNotifier(n)
		svc.notifier = n
	}
	return svc, nil
}

// Run starts the HTTP API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go s.logTransitions(ctx)

	handler := trips.NewHandler(s.Engine, s.Store, s.audit)
	srv := &http.Server{Addr: s.apiAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("trip API listening on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// logTransitions drains the event bus so every applied transition shows up
// in the service log even when no external notifier is configured.
func (s *Service) logTransitions(ctx context.Context) {
	sub := s.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			s.bus.Unsubscribe(sub)
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.log.Debugw("trip transition", map[string]any{
				"trip":  ev.TripID,
				"ref":   ev.Ref,
				"event": string(ev.Event),
				"to":    string(ev.To),
			})
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			return err
		}
	}
	if err := s.Engine.Close(); err != nil {
		return err
	}
	return s.Store.Close()
}
