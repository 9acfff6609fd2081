package adminauth

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/adminkit/adminauth/lockout"
	"github.com/adminkit/adminauth/password"
	"github.com/adminkit/adminauth/permission"
	"github.com/adminkit/adminauth/session"
	"github.com/adminkit/adminauth/token"
)

// Builder assembles an Engine. Redis is optional: it can be injected with
// WithRedis or opened from Config.Redis; with neither, the volatile stores
// fall back to in-memory implementations, which is fine for tests and
// single-node deployments but loses state on restart.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *slog.Logger

	permissions []permission.Permission
	roles       map[string][]string

	accounts  AccountRepository
	auditSink AuditSink

	sessions session.Store
	counters lockout.CounterStore
	resets   resetStore

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis points sessions, lockout counters, and reset challenges at an
// existing Redis client. It takes precedence over Config.Redis, and the
// caller keeps ownership of the connection.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.logger = log
	return b
}

// WithPermissions declares the permission catalog. The catalog freezes
// when Build returns; later additions go through Engine.RegisterPermission.
func (b *Builder) WithPermissions(perms []permission.Permission) *Builder {
	b.permissions = perms
	return b
}

// WithRoles declares the initial role to permission mapping.
func (b *Builder) WithRoles(roles map[string][]string) *Builder {
	b.roles = roles
	return b
}

// WithAccountRepository wires the caller's account database.
func (b *Builder) WithAccountRepository(repo AccountRepository) *Builder {
	b.accounts = repo
	return b
}

// WithAuditSink sets the audit destination. Without one, audit events are
// dispatched to a NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSessionStore overrides the session store, mainly for tests.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithLockoutStore overrides the lockout counter store, mainly for tests.
func (b *Builder) WithLockoutStore(store lockout.CounterStore) *Builder {
	b.counters = store
	return b
}

// Build validates the configuration, wires the stores, seeds the
// permission catalog and roles, and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.accounts == nil {
		return nil, errors.New("account repository is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = slog.Default()
	}

	issuer, err := token.NewIssuer(b.config.tokenConfig())
	if err != nil {
		return nil, err
	}

	argon, err := password.NewArgon2(b.config.argon2Params())
	if err != nil {
		return nil, err
	}
	verifier := password.NewVerifier(argon, password.NewBcrypt())

	rdb := b.redis
	var ownedRedis redis.UniversalClient
	if rdb == nil && b.config.Redis.Addr != "" {
		ownedRedis = redis.NewClient(&redis.Options{
			Addr:     b.config.Redis.Addr,
			Password: b.config.Redis.Password,
			DB:       b.config.Redis.DB,
		})
		rdb = ownedRedis
	}

	sessions := b.sessions
	counters := b.counters
	resets := b.resets
	if rdb != nil {
		if sessions == nil {
			sessions = session.NewRedisStore(rdb, b.config.Session.Prefix)
		}
		if counters == nil {
			counters = lockout.NewRedisCounters(rdb, b.config.Session.Prefix)
		}
		if resets == nil {
			resets = newRedisResetStore(rdb, b.config.Session.Prefix)
		}
	} else {
		if sessions == nil {
			sessions = session.NewMemoryStore()
		}
		if counters == nil {
			counters = lockout.NewMemoryCounters()
		}
		if resets == nil {
			resets = newMemoryResetStore()
		}
	}

	catalog := permission.NewCatalog()
	for _, p := range b.permissions {
		if err := catalog.Register(p); err != nil {
			return nil, err
		}
	}
	resolver := permission.NewResolver(catalog)
	for name, perms := range b.roles {
		if err := resolver.DefineRole(name, perms); err != nil {
			return nil, err
		}
	}
	catalog.Freeze()

	var metrics *Metrics
	if b.config.Metrics.Enabled {
		metrics = NewMetrics(b.config.Metrics.Namespace)
	}

	eng := &Engine{
		cfg:        b.config,
		log:        log,
		ownedRedis: ownedRedis,
		accounts:   b.accounts,
		verifier:   verifier,
		issuer:     issuer,
		sessions:   sessions,
		resets:     resets,
		catalog:    catalog,
		resolver:   resolver,
		checker:    permission.NewChecker(resolver),
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:    metrics,
	}
	eng.guard = lockout.NewGuard(b.config.lockoutConfig(), counters, log)
	eng.guard.Degraded = eng.onLockoutDegraded

	b.built = true
	return eng, nil
}
