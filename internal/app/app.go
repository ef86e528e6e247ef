package app

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"splitledger/internal/auth"
	"splitledger/internal/config"
	"splitledger/internal/db"
	"splitledger/internal/domain/balances"
	"splitledger/internal/domain/group"
	"splitledger/internal/domain/ledger"
	"splitledger/internal/domain/user"
	"splitledger/internal/metrics"
	"splitledger/internal/repository/inmemory"
	grouprepo "splitledger/internal/repository/postgres/group"
	ledgerrepo "splitledger/internal/repository/postgres/ledger"
	userrepo "splitledger/internal/repository/postgres/user"
	"splitledger/internal/repository/sqlite"
	"splitledger/internal/transport/httpserver"
	"splitledger/internal/transport/httpserver/handler"
	authmw "splitledger/internal/transport/httpserver/middleware"
	"splitledger/pkg/logger"
)

// backend is the set of repositories of one storage driver.
type backend struct {
	users  user.Repository
	groups group.Repository
	ledger ledger.Repository
	ping   func(ctx context.Context) error
	close  func() error
}

func (b backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

type App struct {
	cfg        config.Config
	httpServer *http.Server
	backend    backend
}

func New(log logger.Logger, cfg config.Config) (*App, error) {
	log.Info("app: opening storage", "driver", cfg.DB.Driver)
	store, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	svc := newServices(cfg, store, m)

	var (
		issuer   handler.TokenIssuer
		verifier authmw.TokenVerifier
	)
	if cfg.Auth.JWTSecret != "" {
		tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			store.close()
			return nil, err
		}
		issuer, verifier = tokens, tokens
	}

	if cfg.Auth.SkipAuth {
		log.Warn("app: auth disabled, requests run as the mock user", "user_id", cfg.Auth.MockUserID)
		if _, err := svc.users.EnsureUser(context.Background(), cfg.Auth.MockUserID, cfg.Auth.MockUserName, cfg.Auth.MockUserEmail); err != nil {
			store.close()
			return nil, fmt.Errorf("ensure mock user: %w", err)
		}
	}

	handlers := handler.New(svc.users, svc.groups, svc.ledger, svc.balances, issuer, store, log)
	router := httpserver.NewRouter(cfg, handlers, verifier, m, log)

	return &App{
		cfg:        cfg,
		httpServer: httpserver.New(cfg, router),
		backend:    store,
	}, nil
}

// services are the domain services over one backend. m may be nil.
type services struct {
	users    *user.Service
	groups   *group.Service
	ledger   *ledger.Service
	balances *balances.Service
}

func newServices(cfg config.Config, store backend, m *metrics.Metrics) services {
	var (
		recorder ledger.Recorder
		observer balances.EdgeObserver
	)
	if m != nil {
		recorder, observer = m, m
	}
	users := user.NewService(store.users, cfg.Auth.BcryptCost)
	groups := group.NewService(store.groups, users, group.WithCache(inmemory.NewMemberCache(), cfg.Groups.CacheTTL))
	ledgers := ledger.NewService(store.ledger, groups, users, recorder)
	return services{
		users:    users,
		groups:   groups,
		ledger:   ledgers,
		balances: balances.NewService(groups, ledgers, observer),
	}
}

// Migrate brings the configured database schema up to date and closes the
// connection again.
func Migrate(cfg config.Config, log logger.Logger) error {
	store, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	return store.Close()
}

// openBackend connects the configured driver and brings its schema up to
// date.
func openBackend(cfg config.Config, log logger.Logger) (backend, error) {
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.DB.SQLitePath)
		if err != nil {
			return backend{}, err
		}
		log.Info("app: sqlite store ready", "path", cfg.DB.SQLitePath)
		return backend{
			users:  store.Users(),
			groups: store.Groups(),
			ledger: store.Ledger(),
			ping:   store.Ping,
			close:  store.Close,
		}, nil
	case config.DriverPostgres:
		dbConn, err := db.NewPostgres(cfg.DB, log)
		if err != nil {
			return backend{}, err
		}
		if err := db.Migrate(dbConn, log); err != nil {
			closeGorm(dbConn)
			return backend{}, fmt.Errorf("migrate: %w", err)
		}
		return backend{
			users:  userrepo.NewPostgres(dbConn),
			groups: grouprepo.NewPostgres(dbConn),
			ledger: ledgerrepo.NewPostgres(dbConn),
			ping: func(ctx context.Context) error {
				sqlDB, err := dbConn.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			close: func() error { return closeGorm(dbConn) },
		}, nil
	default:
		return backend{}, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
}

func (b backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func closeGorm(dbConn *gorm.DB) error {
	sqlDB, err := dbConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	return a.backend.Close()
}
