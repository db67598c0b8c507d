// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rollcall/internal/audit"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/ledger"
	"github.com/tomtom215/rollcall/internal/logging"
	ws "github.com/tomtom215/rollcall/internal/websocket"
)

const (
	// ledgerBreakerName labels the gateway circuit breaker metrics.
	ledgerBreakerName = "ledger-gateway"

	ledgerCacheSize = 10000
	ledgerCacheTTL  = time.Hour
)

// initLedger returns the gateway client behind a circuit breaker and a
// finalized record cache, or the in-memory ledger when attestation is
// disabled.
func initLedger(cfg *config.LedgerConfig) (ledger.Client, error) {
	if !cfg.Enabled {
		logging.Warn().Msg("Ledger disabled, attestations are kept in memory only")
		return ledger.NewMemory(), nil
	}

	seed, err := ledger.ParseSeed(cfg.MasterSeed)
	if err != nil {
		return nil, fmt.Errorf("ledger master seed: %w", err)
	}
	keys, err := ledger.NewKeyDeriver(seed)
	if err != nil {
		return nil, err
	}
	client, err := ledger.NewHTTPClient(ledger.HTTPConfig{
		BaseURL:           cfg.URL,
		Keys:              keys,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create ledger client: %w", err)
	}

	logging.Info().
		Str("url", cfg.URL).
		Str("fee_payer", ledger.PublicHex(keys.Payer())).
		Float64("requests_per_second", cfg.RequestsPerSecond).
		Msg("Ledger gateway configured")
	breaker := ledger.NewBreakerClient(client, ledgerBreakerName, ledger.BreakerSettings{})
	return ledger.NewCachedClient(breaker, ledgerCacheSize, ledgerCacheTTL), nil
}

// initAudit opens the DuckDB attestation log, or an in-memory log when
// auditing is disabled.
func initAudit(ctx context.Context, cfg *config.AuditConfig) (audit.Log, error) {
	if !cfg.Enabled {
		logging.Warn().Msg("Attestation log disabled, ledger calls are kept in memory only")
		return audit.NewMemoryLog(), nil
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	l, err := audit.OpenDuckDB(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open attestation log: %w", err)
	}
	logging.Info().Str("path", path).Msg("Attestation log opened")
	return l, nil
}

// initEvents builds the event bus and the live session hub. With events
// disabled the service publishes nowhere and the live endpoint answers 503.
func (a *app) initEvents(cfg *config.EventsConfig) (events.Publisher, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Event bus disabled")
		return events.Nop{}, nil
	}

	adapter := logging.NewWatermillAdapter()
	url := cfg.NATSURL
	if cfg.EmbeddedServer {
		srv, err := events.StartEmbeddedServer(events.ServerConfig{Port: -1, StoreDir: cfg.StoreDir})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		a.natsServer = srv
		// The supervisor owns a running server's shutdown; this covers a
		// failure before the tree starts.
		a.onClose(func() error {
			if !srv.Running() {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		})
		url = srv.ClientURL()
	}

	var (
		bus *events.Bus
		err error
	)
	if url != "" {
		bus, err = events.NewNATSBus(events.NATSConfig{URL: url}, adapter)
		if err != nil {
			return nil, fmt.Errorf("connect event bus: %w", err)
		}
	} else {
		bus = events.NewGoChannelBus(adapter)
	}
	a.bus = bus
	a.onClose(bus.Close)
	a.hub = ws.NewHub()

	logging.Info().Str("transport", bus.Transport()).Msg("Event bus ready")
	return bus, nil
}
