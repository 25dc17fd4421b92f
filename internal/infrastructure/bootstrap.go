package infrastructure

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/config"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/repository"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/repository/memory"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/service"
	transportHTTP "github.com/waseembabar1113-crypto/Treasure-money-backend/internal/transport/http"
	transportNATS "github.com/waseembabar1113-crypto/Treasure-money-backend/internal/transport/nats"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	converter, err := domain.NewConverter(cfg.CoinRate)
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()

	// ── Bus (optional) ────────────────────────────────────────────────────
	var bus repository.MessageBus
	var servers []Server
	var nc *nats.Conn

	if cfg.NatsEnabled {
		nc, err = connectNats(cfg.NatsAddr())
		if err != nil {
			return nil, nil, err
		}
		bus = transportNATS.NewBus(nc)
		cleanupFns = append(cleanupFns, nc.Close)
	}

	// ── Store ─────────────────────────────────────────────────────────────
	var svc service.LedgerService

	switch cfg.StoreProvider {
	case "postgres":
		db, err := connectPostgres(cfg.DSN())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, db.Close)

		rdb, err := connectRedis(cfg.RedisAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })

		svc = repository.NewLedgerRepo(db, rdb, bus, converter, cfg.AllowNegativeBalance)

	case "memory":
		svc = memory.NewLedger(bus, converter, cfg.AllowNegativeBalance)

	default:
		return nil, runCleanup(cleanupFns), fmt.Errorf("unknown store provider %q", cfg.StoreProvider)
	}

	// ── Servers ───────────────────────────────────────────────────────────
	if nc != nil {
		servers = append(servers, transportNATS.NewHandler(svc, nc))
		servers = append(servers, worker.NewJournalWorker(svc, nc))
	}

	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		servers = append(servers, transportHTTP.NewServer(addr, svc))
	}

	if len(servers) == 0 {
		return nil, runCleanup(cleanupFns), fmt.Errorf("nothing to run: enable the HTTP API or NATS")
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in
// reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
