// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/rollcall/internal/api"
	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/audit"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/authz"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/ledger"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/store"
	"github.com/tomtom215/rollcall/internal/supervisor"
	"github.com/tomtom215/rollcall/internal/supervisor/services"
	ws "github.com/tomtom215/rollcall/internal/websocket"
)

// app holds every long-lived component. closers run in reverse order.
type app struct {
	cfg *config.Config

	store       *store.Store
	ledgerCache *ledger.CachedClient
	revocations auth.RevocationStore
	bus         *events.Bus
	natsServer  *events.EmbeddedServer
	hub         *ws.Hub
	server      *http.Server

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.store, err = store.Open(store.Config{Path: cfg.Store.Path, InMemory: cfg.Store.InMemory})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.onClose(a.store.Close)
	logging.Info().Str("path", cfg.Store.Path).Bool("in_memory", cfg.Store.InMemory).Msg("Store opened")

	ledgerClient, err := initLedger(&cfg.Ledger)
	if err != nil {
		return nil, err
	}
	a.ledgerCache, _ = ledgerClient.(*ledger.CachedClient)

	auditLog, err := initAudit(ctx, &cfg.Audit)
	if err != nil {
		return nil, err
	}
	a.onClose(auditLog.Close)

	publisher, err := a.initEvents(&cfg.Events)
	if err != nil {
		return nil, err
	}

	svc, err := attendance.NewService(attendance.Config{
		SubmitOnMark: cfg.Ledger.SubmitOnMark,
		CallTimeout:  cfg.Ledger.CallTimeout,
		Concurrency:  cfg.Reconcile.Concurrency,
	}, attendance.Deps{
		Store:  a.store,
		Ledger: ledgerClient,
		Audit:  audit.NewRecorder(auditLog),
		Events: publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("create attendance service: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("create JWT manager: %w", err)
	}
	// Revocations share the store's BadgerDB under their own key prefix.
	a.revocations = auth.NewBadgerRevocationStore(a.store.DB(), auth.DefaultRevocationPrefix)
	a.onClose(a.revocations.Close)

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfigFromSecurity(&cfg.Security))
	if err != nil {
		return nil, fmt.Errorf("create authorization enforcer: %w", err)
	}
	a.onClose(func() error { enforcer.Close(); return nil })

	handler := api.NewHandler(api.HandlerDeps{
		Service:     svc,
		Revocations: a.revocations,
		Hub:         a.hub,
		Store:       a.store,
		CORSOrigins: cfg.Security.CORSOrigins,
	})
	router := api.NewRouter(handler,
		auth.NewMiddleware(jwtManager, a.revocations),
		enforcer,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)

	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}

// supervisorTree registers the long-running services.
func (a *app) supervisorTree() (*supervisor.SupervisorTree, error) {
	cfg := a.cfg
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFromServer(&cfg.Server))
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	if !cfg.Store.InMemory {
		tree.AddDataService(services.NewStoreGCService(a.store, cfg.Store.GCInterval))
	}
	tree.AddDataService(services.NewRevocationCleanupService(a.revocations, cfg.Security.RevocationCleanup))
	if a.ledgerCache != nil {
		tree.AddDataService(services.NewPeriodicService("ledger-cache-purge", ledgerCacheTTL, func(ctx context.Context) error {
			_, err := a.ledgerCache.PurgeExpired(ctx)
			return err
		}))
	}

	if a.hub != nil {
		tree.AddMessagingService(services.NewWebSocketHubService(a.hub))
		tree.AddMessagingService(ws.NewForwarder(a.bus, a.hub))
	}
	if a.natsServer != nil {
		tree.AddMessagingService(services.NewNATSServerService(a.natsServer, cfg.Server.ShutdownTimeout))
	}

	tree.AddAPIService(services.NewHTTPServerService(a.server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", a.server.Addr).Msg("HTTP server service added")
	return tree, nil
}
